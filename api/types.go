package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// ErrorResponse is the body of every non-2xx API response. Code carries the
// contract error code when the failure is a typed contract outcome.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    uint32 `json:"code,omitempty"`
	Aborted bool   `json:"aborted,omitempty"`
}

type AdminResponse struct {
	Admin *interfaces.Principal `json:"admin"`
}

type InitializeRegistryRequest struct {
	Admin interfaces.Principal `json:"admin"`
}

type InitializeProvenanceRequest struct {
	Authority interfaces.Principal `json:"authority"`
}

type InitializeOracleRequest struct {
	Registry   interfaces.Principal `json:"registry"`
	Provenance interfaces.Principal `json:"provenance"`
	Admin      interfaces.Principal `json:"admin"`
}

// TrustedResponse answers membership queries on the registry and the relay
// list.
type TrustedResponse struct {
	Trusted bool `json:"trusted"`
}

type SubmitRequestRequest struct {
	ContentHash common.Hash `json:"content_hash"`
}

type SubmitRequestResponse struct {
	ID uint64 `json:"id"`
}

type AttestationSubmission struct {
	Attestation interfaces.Attestation `json:"attestation"`
	Signature   interfaces.Signature   `json:"signature"`
}

type ProcessResponse struct {
	State interfaces.RequestState `json:"state"`
}

type VerifyTeeHashRequest struct {
	TeeHash interfaces.TeeHash `json:"tee_hash"`
}

type VerifyAttestationRequest struct {
	Provider  interfaces.PublicKey `json:"provider"`
	TeeHash   interfaces.TeeHash   `json:"tee_hash"`
	Payload   hexutil.Bytes        `json:"payload"`
	Signature interfaces.Signature `json:"signature"`
}

type VerifyResponse struct {
	Verified bool `json:"verified"`
}

// VerifyAndMintRequest is submitted by an approved relayer; the relayer is
// the request signer.
type VerifyAndMintRequest struct {
	Owner     interfaces.Principal          `json:"owner"`
	RequestID uint64                        `json:"request_id"`
	Details   interfaces.CertificateDetails `json:"details"`
}

type ContentResponse struct {
	StorageID    string `json:"storage_id"`
	ManifestHash string `json:"manifest_hash"`
}

type EventsResponse struct {
	Events []interfaces.Event `json:"events"`
}
