package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ruteri/tee-provenance-registry/api"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// OracleClient is interfaces.VerificationOracle over HTTP.
type OracleClient struct {
	c *Client
}

var _ interfaces.VerificationOracle = (*OracleClient)(nil)

func (c *Client) Oracle() *OracleClient {
	return &OracleClient{c: c}
}

func (o *OracleClient) Initialize(ctx context.Context, registry, provenance, admin interfaces.Principal) error {
	body := api.InitializeOracleRequest{Registry: registry, Provenance: provenance, Admin: admin}
	return o.c.do(ctx, http.MethodPost, "/api/oracle/initialize", body, true, nil)
}

func (o *OracleClient) VerifyTeeHash(ctx context.Context, hash interfaces.TeeHash) error {
	return o.c.do(ctx, http.MethodPost, "/api/oracle/verify-tee-hash", api.VerifyTeeHashRequest{TeeHash: hash}, false, nil)
}

func (o *OracleClient) VerifyAttestation(ctx context.Context, provider interfaces.PublicKey, hash interfaces.TeeHash, payload []byte, signature interfaces.Signature) error {
	body := api.VerifyAttestationRequest{Provider: provider, TeeHash: hash, Payload: payload, Signature: signature}
	return o.c.do(ctx, http.MethodPost, "/api/oracle/verify-attestation", body, false, nil)
}

func (o *OracleClient) AddProvider(ctx context.Context, relayer interfaces.Principal) error {
	return o.c.do(ctx, http.MethodPost, "/api/oracle/providers/"+relayer.Hex(), nil, true, nil)
}

func (o *OracleClient) RemoveProvider(ctx context.Context, relayer interfaces.Principal) error {
	return o.c.do(ctx, http.MethodDelete, "/api/oracle/providers/"+relayer.Hex(), nil, true, nil)
}

func (o *OracleClient) IsProvider(ctx context.Context, relayer interfaces.Principal) (bool, error) {
	var resp api.TrustedResponse
	err := o.c.do(ctx, http.MethodGet, "/api/oracle/providers/"+relayer.Hex(), nil, false, &resp)
	return resp.Trusted, err
}

// VerifyAndMint signs as relayer, which must be the client's own address.
func (o *OracleClient) VerifyAndMint(ctx context.Context, relayer, owner interfaces.Principal, requestID uint64, details interfaces.CertificateDetails) (*interfaces.MintResult, error) {
	if relayer != o.c.Address() {
		return nil, fmt.Errorf("client signs as %s, not relayer %s", o.c.Address().Hex(), relayer.Hex())
	}
	var result interfaces.MintResult
	body := api.VerifyAndMintRequest{Owner: owner, RequestID: requestID, Details: details}
	if err := o.c.do(ctx, http.MethodPost, "/api/oracle/verify-and-mint", body, true, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) InitializeProvenance(ctx context.Context, authority interfaces.Principal) error {
	return c.do(ctx, http.MethodPost, "/api/provenance/initialize", api.InitializeProvenanceRequest{Authority: authority}, true, nil)
}

func (c *Client) Certificate(ctx context.Context, id uint64) (*interfaces.Certificate, error) {
	var cert interfaces.Certificate
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/certificates/%d", id), nil, false, &cert); err != nil {
		return nil, err
	}
	return &cert, nil
}

func (c *Client) CertificateByManifest(ctx context.Context, manifestHash string) (*interfaces.Certificate, error) {
	var cert interfaces.Certificate
	if err := c.do(ctx, http.MethodGet, "/api/certificates/by-manifest/"+url.PathEscape(manifestHash), nil, false, &cert); err != nil {
		return nil, err
	}
	return &cert, nil
}

// StoreContent archives data and returns where it was stored and its
// manifest hash.
func (c *Client) StoreContent(ctx context.Context, data []byte, contentType interfaces.ContentType) (*api.ContentResponse, error) {
	var resp api.ContentResponse
	path := "/api/content?type=" + contentType.String()
	if err := c.do(ctx, http.MethodPost, path, data, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) FetchContent(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	var data []byte
	path := fmt.Sprintf("/api/content/%s?type=%s", id, contentType)
	if err := c.do(ctx, http.MethodGet, path, nil, false, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) Events(ctx context.Context, topic string, fromID uint64) ([]interfaces.Event, error) {
	q := url.Values{}
	if topic != "" {
		q.Set("topic", topic)
	}
	q.Set("from", fmt.Sprint(fromID))
	var resp api.EventsResponse
	if err := c.do(ctx, http.MethodGet, "/api/events?"+q.Encode(), nil, false, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}
