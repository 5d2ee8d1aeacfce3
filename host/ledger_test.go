package host

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/tee-provenance-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = &interfaces.ContractError{Code: 999, Name: "Boom"}

// counterContract bumps a persistent counter and then optionally fails.
type counterContract struct{}

func (counterContract) Invoke(env *Env, function string, args []any) (any, error) {
	var n uint64
	if _, err := env.Persistent().Get("n", &n); err != nil {
		return nil, err
	}

	switch function {
	case "get":
		return n, nil
	case "bump":
		n++
		if err := env.Persistent().Set("n", n); err != nil {
			return nil, err
		}
		if err := env.Publish([]string{"counter", "bumped"}, n); err != nil {
			return nil, err
		}
		return n, nil
	case "bump_then_abort":
		if err := env.Persistent().Set("n", n+1); err != nil {
			return nil, err
		}
		return nil, Abort("refusing")
	case "bump_then_fail":
		if err := env.Persistent().Set("n", n+1); err != nil {
			return nil, err
		}
		return nil, errBoom
	case "guarded":
		owner, err := Arg[interfaces.Principal](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, env.RequireAuth(owner)
	case "remember":
		ttl, err := Arg[uint64](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, env.Temporary(ttl).Set("memo", "hello")
	case "recall":
		var memo string
		ok, err := env.Temporary(0).Get("memo", &memo)
		if err != nil || !ok {
			return "", err
		}
		return memo, nil
	case "overwrite":
		return nil, env.Temporary(1000).Set("memo", "updated")
	default:
		return nil, ErrFunctionNotFound
	}
}

// proxyContract forwards to another contract through TryInvoke.
type proxyContract struct {
	target interfaces.Principal
}

type tryResult struct {
	Value     any
	AppErr    error
	Transport error
}

func (p proxyContract) Invoke(env *Env, function string, args []any) (any, error) {
	switch function {
	case "try":
		fn, err := Arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		v, appErr, transport := env.TryInvoke(p.target, fn)
		return tryResult{Value: v, AppErr: appErr, Transport: transport}, nil
	case "invoke":
		fn, err := Arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		return env.Invoke(p.target, fn)
	case "guarded_as_self":
		return env.Invoke(p.target, "guarded", env.CurrentContract())
	}
	return nil, ErrFunctionNotFound
}

func newTestLedger(t *testing.T) (*Ledger, *ManualClock) {
	clock := NewManualClock(100)
	l := NewLedger(&Config{
		Backend: NewMemoryBackend(),
		Clock:   clock,
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return l, clock
}

func deploy(t *testing.T, l *Ledger, name string, c Contract) interfaces.Principal {
	addr, err := l.Deploy(name, c)
	require.NoError(t, err)
	return addr
}

func TestCallCommitsWritesAndEvents(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	counter := deploy(t, l, "counter", counterContract{})

	v, err := l.Call(ctx, counter, "bump")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	v, err = l.Call(ctx, counter, "get")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	events, err := l.Events(ctx, interfaces.EventFilter{Topic: "bumped"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, counter, events[0].Contract)
	assert.Equal(t, uint64(100), events[0].Tick)
	assert.JSONEq(t, `1`, string(events[0].Data))
}

func TestFailedCallsRollBack(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	counter := deploy(t, l, "counter", counterContract{})

	_, err := l.Call(ctx, counter, "bump_then_abort")
	require.ErrorIs(t, err, ErrAborted)

	_, err = l.Call(ctx, counter, "bump_then_fail")
	require.ErrorIs(t, err, errBoom)

	v, err := l.Call(ctx, counter, "get")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)
}

func TestDeployTwice(t *testing.T) {
	l, _ := newTestLedger(t)
	deploy(t, l, "counter", counterContract{})
	_, err := l.Deploy("counter", counterContract{})
	require.ErrorIs(t, err, ErrAlreadyDeployed)
}

func TestUnknownContract(t *testing.T) {
	l, _ := newTestLedger(t)
	_, err := l.Call(context.Background(), ContractAddress("nope"), "get")
	require.ErrorIs(t, err, ErrContractNotFound)
	assert.True(t, IsTransportError(err))
}

func TestRequireAuth(t *testing.T) {
	l, _ := newTestLedger(t)
	counter := deploy(t, l, "counter", counterContract{})
	proxy := deploy(t, l, "proxy", proxyContract{target: counter})

	owner := ContractAddress("owner")

	_, err := l.Call(context.Background(), counter, "guarded", owner)
	require.ErrorIs(t, err, ErrAborted)

	_, err = l.Call(WithSigners(context.Background(), ContractAddress("someone-else")), counter, "guarded", owner)
	require.ErrorIs(t, err, ErrAborted)

	_, err = l.Call(WithSigners(context.Background(), owner), counter, "guarded", owner)
	require.NoError(t, err)

	// The directly invoking contract authorizes itself.
	_, err = l.Call(context.Background(), proxy, "guarded_as_self")
	require.NoError(t, err)
}

func TestTemporaryEntriesExpire(t *testing.T) {
	l, clock := newTestLedger(t)
	ctx := context.Background()
	counter := deploy(t, l, "counter", counterContract{})

	_, err := l.Call(ctx, counter, "remember", uint64(10))
	require.NoError(t, err)

	clock.Advance(5)
	// Updating a live entry keeps its original expiry.
	_, err = l.Call(ctx, counter, "overwrite")
	require.NoError(t, err)

	v, err := l.Call(ctx, counter, "recall")
	require.NoError(t, err)
	assert.Equal(t, "updated", v)

	clock.Advance(5)
	v, err = l.Call(ctx, counter, "recall")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	pruned, err := l.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)
}

func TestTryInvokeSeparatesFailureLayers(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	counter := deploy(t, l, "counter", counterContract{})
	proxy := deploy(t, l, "proxy", proxyContract{target: counter})
	dangling := deploy(t, l, "dangling", proxyContract{target: ContractAddress("missing")})

	v, err := l.Call(ctx, proxy, "try", "bump")
	require.NoError(t, err)
	res := v.(tryResult)
	assert.Equal(t, uint64(1), res.Value)
	assert.NoError(t, res.AppErr)
	assert.NoError(t, res.Transport)

	v, err = l.Call(ctx, proxy, "try", "bump_then_fail")
	require.NoError(t, err)
	res = v.(tryResult)
	assert.ErrorIs(t, res.AppErr, errBoom)
	assert.NoError(t, res.Transport)

	v, err = l.Call(ctx, proxy, "try", "bump_then_abort")
	require.NoError(t, err)
	res = v.(tryResult)
	assert.NoError(t, res.AppErr)
	assert.ErrorIs(t, res.Transport, ErrAborted)

	v, err = l.Call(ctx, proxy, "try", "no_such_function")
	require.NoError(t, err)
	res = v.(tryResult)
	assert.ErrorIs(t, res.Transport, ErrFunctionNotFound)

	v, err = l.Call(ctx, dangling, "try", "get")
	require.NoError(t, err)
	res = v.(tryResult)
	assert.ErrorIs(t, res.Transport, ErrContractNotFound)

	// Only the first successful bump survived; failed sub-calls left nothing.
	v, err = l.Call(ctx, counter, "get")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
}

func TestInvokeAbortsCaller(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	counter := deploy(t, l, "counter", counterContract{})
	proxy := deploy(t, l, "proxy", proxyContract{target: counter})

	_, err := l.Call(ctx, proxy, "invoke", "bump_then_fail")
	require.ErrorIs(t, err, ErrAborted)
	require.ErrorIs(t, err, errBoom)

	var abortErr *AbortError
	require.True(t, errors.As(err, &abortErr))
}

func TestVerifyEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var key interfaces.PublicKey
	copy(key[:], pub)
	var sig interfaces.Signature
	copy(sig[:], ed25519.Sign(priv, []byte("payload")))

	env := &Env{}
	require.NoError(t, env.VerifyEd25519(key, []byte("payload"), sig))
	require.ErrorIs(t, env.VerifyEd25519(key, []byte("other"), sig), ErrAborted)
}

func TestArgDecoding(t *testing.T) {
	_, err := Arg[uint64]([]any{"not a number"}, 0)
	require.ErrorIs(t, err, ErrDecode)

	_, err = Arg[uint64](nil, 0)
	require.ErrorIs(t, err, ErrDecode)

	v, err := Arg[uint64]([]any{uint64(7)}, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)
}
