package cryptoutils

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/hashicorp/vault/shamir"
)

// SplitKey splits a provider key's seed into parts Shamir shares, any
// threshold of which recover it. Shares are hex encoded for paper backup.
func SplitKey(priv ed25519.PrivateKey, parts, threshold int) ([]string, error) {
	if threshold < 2 || threshold > parts {
		return nil, fmt.Errorf("invalid threshold %d of %d", threshold, parts)
	}
	shares, err := shamir.Split(priv.Seed(), parts, threshold)
	if err != nil {
		return nil, fmt.Errorf("could not split key: %w", err)
	}
	encoded := make([]string, len(shares))
	for i, share := range shares {
		encoded[i] = hex.EncodeToString(share)
	}
	return encoded, nil
}

// CombineShares recovers a provider key from hex encoded shares. Too few
// shares yield a different key rather than an error, so callers compare the
// result with the expected public key.
func CombineShares(encoded []string) (ed25519.PrivateKey, error) {
	if len(encoded) < 2 {
		return nil, errors.New("at least two shares are required")
	}
	shares := make([][]byte, len(encoded))
	for i, s := range encoded {
		share, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("share %d: %w", i, err)
		}
		shares[i] = share
	}
	seed, err := shamir.Combine(shares)
	if err != nil {
		return nil, fmt.Errorf("could not combine shares: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("recovered seed has length %d", len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
