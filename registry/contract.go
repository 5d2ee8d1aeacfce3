package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// Contract function names.
const (
	FnInitialize          = "initialize"
	FnGetAdmin            = "get_admin"
	FnAddProvider         = "add_provider"
	FnRemoveProvider      = "remove_provider"
	FnHasProvider         = "has_provider"
	FnAddTeeHash          = "add_tee_hash"
	FnRemoveTeeHash       = "remove_tee_hash"
	FnHasTeeHash          = "has_tee_hash"
	FnIsVerified          = "is_verified"
	FnSubmitRequest       = "submit_request"
	FnGetRequest          = "get_request"
	FnProcessVerification = "process_verification"
)

// ContractName is the deployment name of the registry on the ledger.
const ContractName = "registry"

// Contract exposes the trust registry, the request store and the validator
// as one ledger contract sharing a storage namespace.
type Contract struct {
	trust     TrustRegistry
	requests  RequestStore
	validator Validator
}

var _ host.Contract = (*Contract)(nil)

// NewContract returns a registry whose requests expire after requestTTL ticks.
func NewContract(requestTTL uint64) *Contract {
	if requestTTL == 0 {
		requestTTL = DefaultRequestTTL
	}
	requests := RequestStore{TTL: requestTTL}
	return &Contract{
		requests:  requests,
		validator: Validator{Requests: requests},
	}
}

func (c *Contract) Invoke(env *host.Env, function string, args []any) (any, error) {
	switch function {
	case FnInitialize:
		admin, err := host.Arg[interfaces.Principal](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, c.trust.Initialize(env, admin)

	case FnGetAdmin:
		return c.trust.Admin(env)

	case FnAddProvider, FnRemoveProvider, FnHasProvider:
		key, err := host.Arg[interfaces.PublicKey](args, 0)
		if err != nil {
			return nil, err
		}
		switch function {
		case FnAddProvider:
			return nil, c.trust.AddProvider(env, key)
		case FnRemoveProvider:
			return nil, c.trust.RemoveProvider(env, key)
		default:
			return c.trust.HasProvider(env, key)
		}

	case FnAddTeeHash, FnRemoveTeeHash, FnHasTeeHash:
		hash, err := host.Arg[interfaces.TeeHash](args, 0)
		if err != nil {
			return nil, err
		}
		switch function {
		case FnAddTeeHash:
			return nil, c.trust.AddTeeHash(env, hash)
		case FnRemoveTeeHash:
			return nil, c.trust.RemoveTeeHash(env, hash)
		default:
			return c.trust.HasTeeHash(env, hash)
		}

	case FnIsVerified:
		hash, err := host.Arg[interfaces.TeeHash](args, 0)
		if err != nil {
			return nil, err
		}
		provider, err := host.Arg[interfaces.PublicKey](args, 1)
		if err != nil {
			return nil, err
		}
		return c.trust.IsVerified(env, hash, provider)

	case FnSubmitRequest:
		contentHash, err := host.Arg[common.Hash](args, 0)
		if err != nil {
			return nil, err
		}
		return c.requests.Submit(env, contentHash)

	case FnGetRequest:
		id, err := host.Arg[uint64](args, 0)
		if err != nil {
			return nil, err
		}
		return c.requests.Get(env, id)

	case FnProcessVerification:
		id, err := host.Arg[uint64](args, 0)
		if err != nil {
			return nil, err
		}
		attestation, err := host.Arg[interfaces.Attestation](args, 1)
		if err != nil {
			return nil, err
		}
		signature, err := host.Arg[interfaces.Signature](args, 2)
		if err != nil {
			return nil, err
		}
		return c.validator.Process(env, id, attestation, signature)
	}

	return nil, fmt.Errorf("%w: %s.%s", host.ErrFunctionNotFound, ContractName, function)
}
