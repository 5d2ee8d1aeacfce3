package interfaces

// CertificateDetails is the caller-supplied part of a certificate.
type CertificateDetails struct {
	StorageID       string `json:"storage_id"`
	ManifestHash    string `json:"manifest_hash"`
	AttestationHash string `json:"attestation_hash"`
}

// Certificate is an immutable provenance record. Timestamp is the ledger
// clock at mint time.
type Certificate struct {
	ID              uint64    `json:"id"`
	StorageID       string    `json:"storage_id"`
	ManifestHash    string    `json:"manifest_hash"`
	AttestationHash string    `json:"attestation_hash"`
	Creator         Principal `json:"creator"`
	Timestamp       uint64    `json:"timestamp"`
}

// MintResult reports the outcome of the verify-and-mint workflow. Content
// verification and certificate minting are reported independently: a failed
// mint never turns a verified request into an unverified one.
type MintResult struct {
	RequestID         uint64       `json:"request_id"`
	State             RequestState `json:"state"`
	ContentVerified   bool         `json:"content_verified"`
	VerificationError string       `json:"verification_error,omitempty"`
	CertificateMinted bool         `json:"certificate_minted"`
	CertificateID     uint64       `json:"certificate_id,omitempty"`
	MintError         string       `json:"mint_error,omitempty"`
}
