package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// CallObserver is notified after every top-level call. Outcome is one of
// "ok", "error" (typed contract error), "aborted" or "failed".
type CallObserver interface {
	ObserveCall(contract, function, outcome string, duration time.Duration)
}

// Caller submits top-level calls. Implemented by *Ledger; contract clients
// depend on this rather than on the ledger itself.
type Caller interface {
	Call(ctx context.Context, addr interfaces.Principal, function string, args ...any) (any, error)
}

type Config struct {
	Backend  Backend
	Clock    Clock
	Log      *slog.Logger
	Observer CallObserver
}

// Ledger hosts contracts and executes calls one at a time. Each top-level
// call commits all of its writes and events or none of them.
type Ledger struct {
	mu        sync.Mutex
	backend   Backend
	clock     Clock
	log       *slog.Logger
	observer  CallObserver
	contracts map[interfaces.Principal]deployment
}

type deployment struct {
	name     string
	contract Contract
}

func NewLedger(cfg *Config) *Ledger {
	backend := cfg.Backend
	if backend == nil {
		backend = NewMemoryBackend()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = WallClock{}
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{
		backend:   backend,
		clock:     clock,
		log:       log,
		observer:  cfg.Observer,
		contracts: make(map[interfaces.Principal]deployment),
	}
}

// ContractAddress derives the deterministic address of a named deployment.
func ContractAddress(name string) interfaces.Principal {
	return common.BytesToAddress(crypto.Keccak256([]byte("contract:" + name))[12:])
}

// Deploy registers c under the address derived from name.
func (l *Ledger) Deploy(name string, c Contract) (interfaces.Principal, error) {
	addr := ContractAddress(name)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.contracts[addr]; ok {
		return addr, fmt.Errorf("%w: %s", ErrAlreadyDeployed, name)
	}
	l.contracts[addr] = deployment{name: name, contract: c}
	l.log.Debug("Contract deployed", "name", name, "address", addr.Hex())
	return addr, nil
}

func (l *Ledger) lookup(addr interfaces.Principal) (deployment, error) {
	d, ok := l.contracts[addr]
	if !ok {
		return deployment{}, fmt.Errorf("%w: %s", ErrContractNotFound, addr.Hex())
	}
	return d, nil
}

// Call executes function on the contract at addr as a top-level
// transaction. Signers attached to ctx with WithSigners authorize it.
func (l *Ledger) Call(ctx context.Context, addr interfaces.Principal, function string, args ...any) (any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	d, err := l.lookup(addr)
	if err != nil {
		return nil, err
	}

	env := &Env{
		ctx:      ctx,
		ledger:   l,
		tx:       newOverlay(l.backend),
		now:      l.clock.Now(),
		contract: addr,
		signers:  SignersFromContext(ctx),
		log:      l.log.With("contract", d.name),
	}

	value, err := d.contract.Invoke(env, function, args)
	if err == nil {
		err = l.backend.Commit(ctx, env.tx.staged(), env.tx.events)
		if err != nil {
			err = fmt.Errorf("could not commit %s.%s: %w", d.name, function, err)
		}
	}

	outcome := callOutcome(err)
	if l.observer != nil {
		l.observer.ObserveCall(d.name, function, outcome, time.Since(start))
	}
	if err != nil {
		l.log.Debug("Call rolled back", "contract", d.name, "function", function, "outcome", outcome, "err", err)
		return nil, err
	}

	l.log.Debug("Call committed", "contract", d.name, "function", function, "writes", len(env.tx.writes), "events", len(env.tx.events))
	return value, nil
}

func callOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAborted):
		return "aborted"
	default:
		if _, ok := interfaces.AsContractError(err); ok {
			return "error"
		}
		return "failed"
	}
}

// Now reads the ledger clock.
func (l *Ledger) Now() uint64 {
	return l.clock.Now()
}

func (l *Ledger) Events(ctx context.Context, filter interfaces.EventFilter) ([]interfaces.Event, error) {
	return l.backend.Events(ctx, filter)
}

// Prune removes expired temporary entries from the backend.
func (l *Ledger) Prune(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backend.Prune(ctx, l.clock.Now())
}

func (l *Ledger) Close() error {
	return l.backend.Close()
}
