package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// Client implements interfaces.TrustRegistry by submitting calls to the
// registry contract deployed at address. Authorization comes from the
// signers attached to the context passed to each method.
type Client struct {
	ledger  host.Caller
	address interfaces.Principal
}

var _ interfaces.TrustRegistry = (*Client)(nil)

func NewClient(ledger host.Caller, address interfaces.Principal) *Client {
	return &Client{ledger: ledger, address: address}
}

// Address returns the contract address the client talks to.
func (c *Client) Address() interfaces.Principal {
	return c.address
}

func (c *Client) call(ctx context.Context, function string, args ...any) (any, error) {
	return c.ledger.Call(ctx, c.address, function, args...)
}

func (c *Client) Initialize(ctx context.Context, admin interfaces.Principal) error {
	_, err := c.call(ctx, FnInitialize, admin)
	return err
}

func (c *Client) Admin(ctx context.Context) (*interfaces.Principal, error) {
	res, err := c.call(ctx, FnGetAdmin)
	if err != nil {
		return nil, err
	}
	return host.Result[*interfaces.Principal](res)
}

func (c *Client) AddProvider(ctx context.Context, key interfaces.PublicKey) error {
	_, err := c.call(ctx, FnAddProvider, key)
	return err
}

func (c *Client) RemoveProvider(ctx context.Context, key interfaces.PublicKey) error {
	_, err := c.call(ctx, FnRemoveProvider, key)
	return err
}

func (c *Client) HasProvider(ctx context.Context, key interfaces.PublicKey) (bool, error) {
	res, err := c.call(ctx, FnHasProvider, key)
	if err != nil {
		return false, err
	}
	return host.Result[bool](res)
}

func (c *Client) AddTeeHash(ctx context.Context, hash interfaces.TeeHash) error {
	_, err := c.call(ctx, FnAddTeeHash, hash)
	return err
}

func (c *Client) RemoveTeeHash(ctx context.Context, hash interfaces.TeeHash) error {
	_, err := c.call(ctx, FnRemoveTeeHash, hash)
	return err
}

func (c *Client) HasTeeHash(ctx context.Context, hash interfaces.TeeHash) (bool, error) {
	res, err := c.call(ctx, FnHasTeeHash, hash)
	if err != nil {
		return false, err
	}
	return host.Result[bool](res)
}

func (c *Client) IsVerified(ctx context.Context, hash interfaces.TeeHash, provider interfaces.PublicKey) (bool, error) {
	res, err := c.call(ctx, FnIsVerified, hash, provider)
	if err != nil {
		return false, err
	}
	return host.Result[bool](res)
}

func (c *Client) SubmitRequest(ctx context.Context, contentHash common.Hash) (uint64, error) {
	res, err := c.call(ctx, FnSubmitRequest, contentHash)
	if err != nil {
		return 0, err
	}
	return host.Result[uint64](res)
}

func (c *Client) GetRequest(ctx context.Context, id uint64) (*interfaces.VerificationRequest, error) {
	res, err := c.call(ctx, FnGetRequest, id)
	if err != nil {
		return nil, err
	}
	return host.Result[*interfaces.VerificationRequest](res)
}

func (c *Client) ProcessVerification(ctx context.Context, id uint64, attestation interfaces.Attestation, signature interfaces.Signature) (interfaces.RequestState, error) {
	res, err := c.call(ctx, FnProcessVerification, id, attestation, signature)
	if err != nil {
		return interfaces.RequestState{}, err
	}
	return host.Result[interfaces.RequestState](res)
}
