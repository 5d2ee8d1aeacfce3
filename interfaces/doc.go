// Package interfaces defines the types shared by the provenance registry
// components and the contracts between them.
//
// # Ledger types
//
// Principal, PublicKey, Signature and TeeHash are the fixed-size identities
// the contracts operate on. Attestation is the provider-signed payload and
// defines its canonical encoding. VerificationRequest, RequestState and
// Certificate are the records the contracts persist.
//
// # Contract clients
//
// TrustRegistry, CertificateLedger and VerificationOracle describe the
// contract surfaces as seen by callers outside the ledger (HTTP handlers,
// command line tools). ContractError values are the typed business outcomes.
//
// # Storage
//
// StorageBackend and StorageBackendFactory provide content-addressed archival
// for content bodies and manifests across file, S3, IPFS, GitHub and Vault
// backends.
package interfaces
