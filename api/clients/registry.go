package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/tee-provenance-registry/api"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// RegistryClient is interfaces.TrustRegistry over HTTP. Mutating calls are
// authorized by the client's signing key rather than by ctx.
type RegistryClient struct {
	c *Client
}

var _ interfaces.TrustRegistry = (*RegistryClient)(nil)

func (c *Client) Registry() *RegistryClient {
	return &RegistryClient{c: c}
}

func (r *RegistryClient) Initialize(ctx context.Context, admin interfaces.Principal) error {
	return r.c.do(ctx, http.MethodPost, "/api/registry/initialize", api.InitializeRegistryRequest{Admin: admin}, true, nil)
}

func (r *RegistryClient) Admin(ctx context.Context) (*interfaces.Principal, error) {
	var resp api.AdminResponse
	if err := r.c.do(ctx, http.MethodGet, "/api/registry/admin", nil, false, &resp); err != nil {
		return nil, err
	}
	return resp.Admin, nil
}

func (r *RegistryClient) AddProvider(ctx context.Context, key interfaces.PublicKey) error {
	return r.c.do(ctx, http.MethodPost, "/api/registry/providers/"+key.String(), nil, true, nil)
}

func (r *RegistryClient) RemoveProvider(ctx context.Context, key interfaces.PublicKey) error {
	return r.c.do(ctx, http.MethodDelete, "/api/registry/providers/"+key.String(), nil, true, nil)
}

func (r *RegistryClient) HasProvider(ctx context.Context, key interfaces.PublicKey) (bool, error) {
	var resp api.TrustedResponse
	err := r.c.do(ctx, http.MethodGet, "/api/registry/providers/"+key.String(), nil, false, &resp)
	return resp.Trusted, err
}

func (r *RegistryClient) AddTeeHash(ctx context.Context, hash interfaces.TeeHash) error {
	return r.c.do(ctx, http.MethodPost, "/api/registry/tee-hashes/"+hash.String(), nil, true, nil)
}

func (r *RegistryClient) RemoveTeeHash(ctx context.Context, hash interfaces.TeeHash) error {
	return r.c.do(ctx, http.MethodDelete, "/api/registry/tee-hashes/"+hash.String(), nil, true, nil)
}

func (r *RegistryClient) HasTeeHash(ctx context.Context, hash interfaces.TeeHash) (bool, error) {
	var resp api.TrustedResponse
	err := r.c.do(ctx, http.MethodGet, "/api/registry/tee-hashes/"+hash.String(), nil, false, &resp)
	return resp.Trusted, err
}

func (r *RegistryClient) IsVerified(ctx context.Context, hash interfaces.TeeHash, provider interfaces.PublicKey) (bool, error) {
	var resp api.TrustedResponse
	path := fmt.Sprintf("/api/registry/tee-hashes/%s?provider=%s", hash, provider)
	err := r.c.do(ctx, http.MethodGet, path, nil, false, &resp)
	return resp.Trusted, err
}

func (r *RegistryClient) SubmitRequest(ctx context.Context, contentHash common.Hash) (uint64, error) {
	var resp api.SubmitRequestResponse
	err := r.c.do(ctx, http.MethodPost, "/api/requests", api.SubmitRequestRequest{ContentHash: contentHash}, false, &resp)
	return resp.ID, err
}

// GetRequest returns nil when the request is unknown or expired.
func (r *RegistryClient) GetRequest(ctx context.Context, id uint64) (*interfaces.VerificationRequest, error) {
	var req interfaces.VerificationRequest
	err := r.c.do(ctx, http.MethodGet, fmt.Sprintf("/api/requests/%d", id), nil, false, &req)
	if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RegistryClient) ProcessVerification(ctx context.Context, id uint64, attestation interfaces.Attestation, signature interfaces.Signature) (interfaces.RequestState, error) {
	var resp api.ProcessResponse
	body := api.AttestationSubmission{Attestation: attestation, Signature: signature}
	err := r.c.do(ctx, http.MethodPost, fmt.Sprintf("/api/requests/%d/attestation", id), body, false, &resp)
	return resp.State, err
}
