package provenance

import (
	"fmt"

	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

const (
	FnInitialize     = "initialize"
	FnMint           = "mint"
	FnGetCertificate = "get_certificate"
	FnGetByManifest  = "get_by_manifest"
	FnCount          = "count"
)

const ContractName = "provenance"

type Contract struct {
	ledger Ledger
}

var _ host.Contract = (*Contract)(nil)

func NewContract() *Contract {
	return &Contract{}
}

func (c *Contract) Invoke(env *host.Env, function string, args []any) (any, error) {
	switch function {
	case FnInitialize:
		authority, err := host.Arg[interfaces.Principal](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, c.ledger.Initialize(env, authority)

	case FnMint:
		owner, err := host.Arg[interfaces.Principal](args, 0)
		if err != nil {
			return nil, err
		}
		details, err := host.Arg[interfaces.CertificateDetails](args, 1)
		if err != nil {
			return nil, err
		}
		return c.ledger.Mint(env, owner, details)

	case FnGetCertificate:
		id, err := host.Arg[uint64](args, 0)
		if err != nil {
			return nil, err
		}
		return c.ledger.Get(env, id)

	case FnGetByManifest:
		manifestHash, err := host.Arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		return c.ledger.GetByManifest(env, manifestHash)

	case FnCount:
		return c.ledger.Count(env)
	}

	return nil, fmt.Errorf("%w: %s.%s", host.ErrFunctionNotFound, ContractName, function)
}
