package interfaces

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// TrustRegistry curates trusted attestation providers and TEE measurement
// hashes, and owns the verification request lifecycle.
//
// Mutating calls are authorized by the signers carried in ctx (see
// host.WithSigners). A missing authorization aborts the call.
type TrustRegistry interface {
	Initialize(ctx context.Context, admin Principal) error
	// Admin returns nil when the registry has not been initialized.
	Admin(ctx context.Context) (*Principal, error)

	AddProvider(ctx context.Context, key PublicKey) error
	RemoveProvider(ctx context.Context, key PublicKey) error
	HasProvider(ctx context.Context, key PublicKey) (bool, error)

	AddTeeHash(ctx context.Context, hash TeeHash) error
	RemoveTeeHash(ctx context.Context, hash TeeHash) error
	HasTeeHash(ctx context.Context, hash TeeHash) (bool, error)

	// IsVerified reports whether both the hash and the provider are trusted.
	IsVerified(ctx context.Context, hash TeeHash, provider PublicKey) (bool, error)

	SubmitRequest(ctx context.Context, contentHash common.Hash) (uint64, error)
	// GetRequest returns nil when the request never existed or has expired.
	GetRequest(ctx context.Context, id uint64) (*VerificationRequest, error)
	ProcessVerification(ctx context.Context, id uint64, attestation Attestation, signature Signature) (RequestState, error)
}

// CertificateLedger is the append-only store of provenance certificates.
type CertificateLedger interface {
	Initialize(ctx context.Context, authority Principal) error
	Mint(ctx context.Context, owner Principal, details CertificateDetails) (uint64, error)
	GetCertificate(ctx context.Context, id uint64) (*Certificate, error)
	CertificateByManifest(ctx context.Context, manifestHash string) (*Certificate, error)
	CertificateCount(ctx context.Context) (uint64, error)
}

// VerificationOracle is the relay-facing facade over the registry and the
// certificate ledger.
type VerificationOracle interface {
	Initialize(ctx context.Context, registry, provenance, admin Principal) error

	VerifyTeeHash(ctx context.Context, hash TeeHash) error
	VerifyAttestation(ctx context.Context, provider PublicKey, hash TeeHash, payload []byte, signature Signature) error

	AddProvider(ctx context.Context, relayer Principal) error
	RemoveProvider(ctx context.Context, relayer Principal) error
	IsProvider(ctx context.Context, relayer Principal) (bool, error)

	VerifyAndMint(ctx context.Context, relayer, owner Principal, requestID uint64, details CertificateDetails) (*MintResult, error)
}
