// Package node assembles a registry node: it deploys the registry, the
// certificate ledger and the verification oracle on a ledger and wires them
// to the HTTP handler.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/httpserver"
	"github.com/ruteri/tee-provenance-registry/interfaces"
	"github.com/ruteri/tee-provenance-registry/oracle"
	"github.com/ruteri/tee-provenance-registry/provenance"
	"github.com/ruteri/tee-provenance-registry/registry"
)

type Node struct {
	Ledger     *host.Ledger
	Registry   *registry.Client
	Provenance *provenance.Client
	Oracle     *oracle.Client

	log *slog.Logger
}

// Deploy installs the three contracts. Contract state lives in the ledger
// backend, so deploying onto a persisted ledger resumes where it left off.
func Deploy(ledger *host.Ledger, requestTTL uint64, log *slog.Logger) (*Node, error) {
	regAddr, err := ledger.Deploy(registry.ContractName, registry.NewContract(requestTTL))
	if err != nil {
		return nil, fmt.Errorf("deploying registry: %w", err)
	}
	provAddr, err := ledger.Deploy(provenance.ContractName, provenance.NewContract())
	if err != nil {
		return nil, fmt.Errorf("deploying provenance: %w", err)
	}
	oracleAddr, err := ledger.Deploy(oracle.ContractName, oracle.NewContract())
	if err != nil {
		return nil, fmt.Errorf("deploying oracle: %w", err)
	}

	log.Info("Contracts deployed",
		"registry", regAddr.Hex(),
		"provenance", provAddr.Hex(),
		"oracle", oracleAddr.Hex())

	return &Node{
		Ledger:     ledger,
		Registry:   registry.NewClient(ledger, regAddr),
		Provenance: provenance.NewClient(ledger, provAddr),
		Oracle:     oracle.NewClient(ledger, oracleAddr),
		log:        log,
	}, nil
}

// Bootstrap initializes all three contracts with admin as registry and
// oracle admin and the oracle as minting authority. Contracts that are
// already initialized are left alone.
func (n *Node) Bootstrap(ctx context.Context, admin interfaces.Principal) error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"registry", func() error { return n.Registry.Initialize(ctx, admin) }},
		{"provenance", func() error { return n.Provenance.Initialize(ctx, n.Oracle.Address()) }},
		{"oracle", func() error {
			return n.Oracle.Initialize(ctx, n.Registry.Address(), n.Provenance.Address(), admin)
		}},
	}
	for _, step := range steps {
		err := step.fn()
		if errors.Is(err, interfaces.ErrAlreadyInitialized) {
			n.log.Info("Contract already initialized", "contract", step.name)
			continue
		}
		if err != nil {
			return fmt.Errorf("initializing %s: %w", step.name, err)
		}
		n.log.Info("Contract initialized", "contract", step.name, "admin", admin.Hex())
	}
	return nil
}

// Dependencies returns the handler dependencies backed by this node.
// content and observer may be nil.
func (n *Node) Dependencies(content interfaces.StorageBackend, observer httpserver.Observer) httpserver.Dependencies {
	return httpserver.Dependencies{
		Registry:   n.Registry,
		Provenance: n.Provenance,
		Oracle:     n.Oracle,
		Events:     n.Ledger,
		Content:    content,
		Observer:   observer,
	}
}
