package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ruteri/tee-provenance-registry/interfaces"
)

const maxCallDepth = 8

// Contract is code deployed on the ledger. Invoke dispatches function with
// the given arguments; a returned error discards every write of the frame.
type Contract interface {
	Invoke(env *Env, function string, args []any) (any, error)
}

// Env is the execution environment of one contract call frame.
type Env struct {
	ctx      context.Context
	ledger   *Ledger
	tx       *overlay
	now      uint64
	contract interfaces.Principal
	invoker  interfaces.Principal
	signers  []interfaces.Principal
	depth    int
	log      *slog.Logger
}

func (e *Env) Context() context.Context { return e.ctx }

// CurrentContract is the address of the executing contract.
func (e *Env) CurrentContract() interfaces.Principal { return e.contract }

// Invoker is the contract that called the current one, zero at top level.
func (e *Env) Invoker() interfaces.Principal { return e.invoker }

// Now is the ledger clock, fixed for the duration of the top-level call.
func (e *Env) Now() uint64 { return e.now }

func (e *Env) Log() *slog.Logger { return e.log }

func (e *Env) Persistent() Storage {
	return Storage{env: e, durability: Persistent}
}

// Temporary returns ephemeral storage whose new entries live for ttl ticks.
func (e *Env) Temporary(ttl uint64) Storage {
	return Storage{env: e, durability: Temporary, ttl: ttl}
}

// Publish stages an event. It reaches the log only if the top-level call
// commits.
func (e *Env) Publish(topics []string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("could not encode event data: %w", err)
	}
	e.tx.publish(interfaces.Event{
		Contract: e.contract,
		Topics:   topics,
		Data:     raw,
		Tick:     e.now,
	})
	return nil
}

// Invoke calls another contract and aborts on any failure of the callee.
func (e *Env) Invoke(addr interfaces.Principal, function string, args ...any) (any, error) {
	value, appErr, err := e.TryInvoke(addr, function, args...)
	if err != nil {
		return nil, &AbortError{Reason: fmt.Sprintf("invoke %s.%s", addr.Hex(), function), Err: err}
	}
	if appErr != nil {
		return nil, &AbortError{Reason: fmt.Sprintf("invoke %s.%s", addr.Hex(), function), Err: appErr}
	}
	return value, nil
}

// TryInvoke calls another contract in a nested frame. A typed contract error
// comes back as appErr; failure to dispatch, decode or complete the call
// (including a callee abort) comes back as err. Either way the callee's
// writes are discarded.
func (e *Env) TryInvoke(addr interfaces.Principal, function string, args ...any) (value any, appErr error, err error) {
	if e.depth+1 >= maxCallDepth {
		return nil, nil, ErrCallDepth
	}

	d, err := e.ledger.lookup(addr)
	if err != nil {
		return nil, nil, err
	}

	frame := &Env{
		ctx:      e.ctx,
		ledger:   e.ledger,
		tx:       e.tx.child(),
		now:      e.now,
		contract: addr,
		invoker:  e.contract,
		signers:  e.signers,
		depth:    e.depth + 1,
		log:      e.ledger.log.With("contract", d.name),
	}

	value, callErr := d.contract.Invoke(frame, function, args)
	if callErr != nil {
		var ce *interfaces.ContractError
		if errors.As(callErr, &ce) && !errors.Is(callErr, ErrAborted) {
			return nil, callErr, nil
		}
		return nil, nil, callErr
	}

	frame.tx.merge()
	return value, nil, nil
}

// Arg extracts argument i with type T, failing with ErrDecode.
func Arg[T any](args []any, i int) (T, error) {
	var zero T
	if i >= len(args) {
		return zero, fmt.Errorf("%w: missing argument %d", ErrDecode, i)
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, fmt.Errorf("%w: argument %d is %T, want %T", ErrDecode, i, args[i], zero)
	}
	return v, nil
}

// Result converts a call result to T, failing with ErrDecode.
func Result[T any](value any) (T, error) {
	v, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: result is %T, want %T", ErrDecode, value, zero)
	}
	return v, nil
}
