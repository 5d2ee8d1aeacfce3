package interfaces

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Principal is an authorization subject: an admin, a certificate owner or a
// contract address on the ledger.
type Principal = common.Address

// NewPrincipalFromHex parses a 40-char hex address, with or without 0x prefix.
func NewPrincipalFromHex(addr string) (Principal, error) {
	if !common.IsHexAddress(addr) {
		return Principal{}, fmt.Errorf("invalid principal address: %q", addr)
	}
	return common.HexToAddress(addr), nil
}

// PublicKey is a raw Ed25519 public key identifying an attestation provider.
type PublicKey [32]byte

// Signature is a raw Ed25519 signature.
type Signature [64]byte

// TeeHash identifies a trusted TEE measurement.
type TeeHash [32]byte

func decodeFixedHex(src string, dst []byte) error {
	clean := strings.TrimPrefix(src, "0x")
	if len(clean) != 2*len(dst) {
		return fmt.Errorf("invalid length: hex string must be %d characters", 2*len(dst))
	}
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return fmt.Errorf("invalid hex format: %w", err)
	}
	copy(dst, raw)
	return nil
}

func NewPublicKeyFromBytes(raw []byte) (PublicKey, error) {
	var key PublicKey
	if len(raw) != len(key) {
		return PublicKey{}, errors.New("invalid public key length: must be 32 bytes")
	}
	copy(key[:], raw)
	return key, nil
}

func NewPublicKeyFromHex(s string) (PublicKey, error) {
	var key PublicKey
	if err := decodeFixedHex(s, key[:]); err != nil {
		return PublicKey{}, fmt.Errorf("public key: %w", err)
	}
	return key, nil
}

func (k PublicKey) String() string { return hex.EncodeToString(k[:]) }
func (k PublicKey) Bytes() []byte  { return k[:] }

func (k PublicKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := NewPublicKeyFromHex(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func NewSignatureFromBytes(raw []byte) (Signature, error) {
	var sig Signature
	if len(raw) != len(sig) {
		return Signature{}, errors.New("invalid signature length: must be 64 bytes")
	}
	copy(sig[:], raw)
	return sig, nil
}

func NewSignatureFromHex(s string) (Signature, error) {
	var sig Signature
	if err := decodeFixedHex(s, sig[:]); err != nil {
		return Signature{}, fmt.Errorf("signature: %w", err)
	}
	return sig, nil
}

func (s Signature) String() string { return hex.EncodeToString(s[:]) }
func (s Signature) Bytes() []byte  { return s[:] }

func (s Signature) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Signature) UnmarshalText(text []byte) error {
	parsed, err := NewSignatureFromHex(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func NewTeeHashFromBytes(raw []byte) (TeeHash, error) {
	var h TeeHash
	if len(raw) != len(h) {
		return TeeHash{}, errors.New("invalid tee hash length: must be 32 bytes")
	}
	copy(h[:], raw)
	return h, nil
}

func NewTeeHashFromHex(s string) (TeeHash, error) {
	var h TeeHash
	if err := decodeFixedHex(s, h[:]); err != nil {
		return TeeHash{}, fmt.Errorf("tee hash: %w", err)
	}
	return h, nil
}

func (h TeeHash) String() string { return hex.EncodeToString(h[:]) }
func (h TeeHash) Bytes() []byte  { return h[:] }

func (h TeeHash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *TeeHash) UnmarshalText(text []byte) error {
	parsed, err := NewTeeHashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
