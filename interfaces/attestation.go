package interfaces

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Attestation is the payload a provider signs to vouch that a TEE with the
// given measurement handled a verification request.
type Attestation struct {
	Provider  PublicKey `json:"provider"`
	TeeHash   TeeHash   `json:"tee_hash"`
	RequestID uint64    `json:"request_id"`
}

// Encode returns the canonical encoding covered by the provider signature:
// the RLP list [provider, tee_hash, request_id].
func (a *Attestation) Encode() ([]byte, error) {
	payload, err := rlp.EncodeToBytes(a)
	if err != nil {
		return nil, fmt.Errorf("could not encode attestation: %w", err)
	}
	return payload, nil
}

// Hash is the Keccak-256 digest of the canonical encoding. Certificates
// reference attestations by this value.
func (a *Attestation) Hash() (common.Hash, error) {
	payload, err := a.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(payload), nil
}
