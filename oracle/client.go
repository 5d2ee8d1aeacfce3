package oracle

import (
	"context"

	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// Client implements interfaces.VerificationOracle over a deployed Contract.
type Client struct {
	ledger  host.Caller
	address interfaces.Principal
}

var _ interfaces.VerificationOracle = (*Client)(nil)

func NewClient(ledger host.Caller, address interfaces.Principal) *Client {
	return &Client{ledger: ledger, address: address}
}

func (c *Client) Address() interfaces.Principal {
	return c.address
}

func (c *Client) Initialize(ctx context.Context, registry, provenance, admin interfaces.Principal) error {
	_, err := c.ledger.Call(ctx, c.address, FnInitialize, Config{Registry: registry, Provenance: provenance, Admin: admin})
	return err
}

// Config returns nil when the oracle has not been initialized.
func (c *Client) Config(ctx context.Context) (*Config, error) {
	res, err := c.ledger.Call(ctx, c.address, FnConfig)
	if err != nil {
		return nil, err
	}
	return host.Result[*Config](res)
}

func (c *Client) VerifyTeeHash(ctx context.Context, hash interfaces.TeeHash) error {
	_, err := c.ledger.Call(ctx, c.address, FnVerifyTeeHash, hash)
	return err
}

func (c *Client) VerifyAttestation(ctx context.Context, provider interfaces.PublicKey, hash interfaces.TeeHash, payload []byte, signature interfaces.Signature) error {
	_, err := c.ledger.Call(ctx, c.address, FnVerifyAttestation, provider, hash, payload, signature)
	return err
}

func (c *Client) AddProvider(ctx context.Context, relayer interfaces.Principal) error {
	_, err := c.ledger.Call(ctx, c.address, FnAddProvider, relayer)
	return err
}

func (c *Client) RemoveProvider(ctx context.Context, relayer interfaces.Principal) error {
	_, err := c.ledger.Call(ctx, c.address, FnRemoveProvider, relayer)
	return err
}

func (c *Client) IsProvider(ctx context.Context, relayer interfaces.Principal) (bool, error) {
	res, err := c.ledger.Call(ctx, c.address, FnIsProvider, relayer)
	if err != nil {
		return false, err
	}
	return host.Result[bool](res)
}

func (c *Client) VerifyAndMint(ctx context.Context, relayer, owner interfaces.Principal, requestID uint64, details interfaces.CertificateDetails) (*interfaces.MintResult, error) {
	res, err := c.ledger.Call(ctx, c.address, FnVerifyAndMint, relayer, owner, requestID, details)
	if err != nil {
		return nil, err
	}
	return host.Result[*interfaces.MintResult](res)
}
