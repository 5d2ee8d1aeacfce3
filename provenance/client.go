package provenance

import (
	"context"

	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// Client implements interfaces.CertificateLedger over a deployed Contract.
type Client struct {
	ledger  host.Caller
	address interfaces.Principal
}

var _ interfaces.CertificateLedger = (*Client)(nil)

func NewClient(ledger host.Caller, address interfaces.Principal) *Client {
	return &Client{ledger: ledger, address: address}
}

func (c *Client) Address() interfaces.Principal {
	return c.address
}

func (c *Client) Initialize(ctx context.Context, authority interfaces.Principal) error {
	_, err := c.ledger.Call(ctx, c.address, FnInitialize, authority)
	return err
}

func (c *Client) Mint(ctx context.Context, owner interfaces.Principal, details interfaces.CertificateDetails) (uint64, error) {
	res, err := c.ledger.Call(ctx, c.address, FnMint, owner, details)
	if err != nil {
		return 0, err
	}
	return host.Result[uint64](res)
}

func (c *Client) GetCertificate(ctx context.Context, id uint64) (*interfaces.Certificate, error) {
	res, err := c.ledger.Call(ctx, c.address, FnGetCertificate, id)
	if err != nil {
		return nil, err
	}
	return host.Result[*interfaces.Certificate](res)
}

func (c *Client) CertificateByManifest(ctx context.Context, manifestHash string) (*interfaces.Certificate, error) {
	res, err := c.ledger.Call(ctx, c.address, FnGetByManifest, manifestHash)
	if err != nil {
		return nil, err
	}
	return host.Result[*interfaces.Certificate](res)
}

func (c *Client) CertificateCount(ctx context.Context) (uint64, error) {
	res, err := c.ledger.Call(ctx, c.address, FnCount)
	if err != nil {
		return 0, err
	}
	return host.Result[uint64](res)
}
