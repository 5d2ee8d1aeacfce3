package oracle

import (
	"fmt"

	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

const (
	FnInitialize        = "initialize"
	FnConfig            = "config"
	FnVerifyTeeHash     = "verify_tee_hash"
	FnVerifyAttestation = "verify_attestation"
	FnAddProvider       = "add_provider"
	FnRemoveProvider    = "remove_provider"
	FnIsProvider        = "is_provider"
	FnVerifyAndMint     = "verify_and_mint"
)

const ContractName = "oracle"

type Contract struct {
	facade Facade
}

var _ host.Contract = (*Contract)(nil)

func NewContract() *Contract {
	return &Contract{}
}

func (c *Contract) Invoke(env *host.Env, function string, args []any) (any, error) {
	switch function {
	case FnInitialize:
		cfg, err := host.Arg[Config](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, c.facade.Initialize(env, cfg)

	case FnConfig:
		return c.facade.Config(env)

	case FnVerifyTeeHash:
		hash, err := host.Arg[interfaces.TeeHash](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, c.facade.VerifyTeeHash(env, hash)

	case FnVerifyAttestation:
		provider, err := host.Arg[interfaces.PublicKey](args, 0)
		if err != nil {
			return nil, err
		}
		hash, err := host.Arg[interfaces.TeeHash](args, 1)
		if err != nil {
			return nil, err
		}
		payload, err := host.Arg[[]byte](args, 2)
		if err != nil {
			return nil, err
		}
		signature, err := host.Arg[interfaces.Signature](args, 3)
		if err != nil {
			return nil, err
		}
		return nil, c.facade.VerifyAttestation(env, provider, hash, payload, signature)

	case FnAddProvider, FnRemoveProvider, FnIsProvider:
		relayer, err := host.Arg[interfaces.Principal](args, 0)
		if err != nil {
			return nil, err
		}
		switch function {
		case FnAddProvider:
			return nil, c.facade.AddProvider(env, relayer)
		case FnRemoveProvider:
			return nil, c.facade.RemoveProvider(env, relayer)
		default:
			return c.facade.IsProvider(env, relayer)
		}

	case FnVerifyAndMint:
		relayer, err := host.Arg[interfaces.Principal](args, 0)
		if err != nil {
			return nil, err
		}
		owner, err := host.Arg[interfaces.Principal](args, 1)
		if err != nil {
			return nil, err
		}
		requestID, err := host.Arg[uint64](args, 2)
		if err != nil {
			return nil, err
		}
		details, err := host.Arg[interfaces.CertificateDetails](args, 3)
		if err != nil {
			return nil, err
		}
		return c.facade.VerifyAndMint(env, relayer, owner, requestID, details)
	}

	return nil, fmt.Errorf("%w: %s.%s", host.ErrFunctionNotFound, ContractName, function)
}
