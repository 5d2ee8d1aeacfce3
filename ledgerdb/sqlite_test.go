package ledgerdb

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, entry)

	err = s.Commit(ctx, []host.Write{
		{Key: "a", Entry: host.Entry{Value: []byte{1}, Durability: host.Persistent}},
		{Key: "b", Entry: host.Entry{Value: []byte{2}, Durability: host.Temporary, ExpiresAt: 50}},
	}, nil)
	require.NoError(t, err)

	entry, err = s.Get(ctx, "b")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, []byte{2}, entry.Value)
	assert.Equal(t, host.Temporary, entry.Durability)
	assert.Equal(t, uint64(50), entry.ExpiresAt)

	err = s.Commit(ctx, []host.Write{
		{Key: "a", Entry: host.Entry{Value: []byte{3}, Durability: host.Persistent}},
		{Key: "b", Deleted: true},
	}, nil)
	require.NoError(t, err)

	entry, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, entry.Value)

	entry, err = s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, []host.Write{
		{Key: "p", Entry: host.Entry{Value: []byte{1}, Durability: host.Persistent}},
		{Key: "t1", Entry: host.Entry{Value: []byte{1}, Durability: host.Temporary, ExpiresAt: 10}},
		{Key: "t2", Entry: host.Entry{Value: []byte{1}, Durability: host.Temporary, ExpiresAt: 20}},
	}, nil))

	n, err := s.Prune(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entry, err := s.Get(ctx, "t2")
	require.NoError(t, err)
	assert.NotNil(t, entry)

	entry, err = s.Get(ctx, "p")
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func TestEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	registry := host.ContractAddress("registry")
	provenance := host.ContractAddress("provenance")

	events := []interfaces.Event{
		{Contract: registry, Topics: []string{"registry", "ProviderAdded", "aa"}, Data: json.RawMessage(`{"provider":"aa"}`), Tick: 1},
		{Contract: provenance, Topics: []string{"provenance", "CertificateMinted", "1"}, Data: json.RawMessage(`{}`), Tick: 2},
	}
	require.NoError(t, s.Commit(ctx, nil, events))
	assert.Equal(t, uint64(1), events[0].ID)
	assert.Equal(t, uint64(2), events[1].ID)

	all, err := s.Events(ctx, interfaces.EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, events[0].Topics, all[0].Topics)
	assert.JSONEq(t, `{"provider":"aa"}`, string(all[0].Data))

	byContract, err := s.Events(ctx, interfaces.EventFilter{Contract: &provenance})
	require.NoError(t, err)
	require.Len(t, byContract, 1)
	assert.Equal(t, provenance, byContract[0].Contract)

	byTopic, err := s.Events(ctx, interfaces.EventFilter{Topic: "ProviderAdded"})
	require.NoError(t, err)
	require.Len(t, byTopic, 1)
	assert.Equal(t, uint64(1), byTopic[0].ID)

	fromSecond, err := s.Events(ctx, interfaces.EventFilter{FromID: 2, Limit: 5})
	require.NoError(t, err)
	require.Len(t, fromSecond, 1)
	assert.Equal(t, uint64(2), fromSecond[0].ID)
}

// memoContract stores its single argument persistently.
type memoContract struct{}

func (memoContract) Invoke(env *host.Env, function string, args []any) (any, error) {
	switch function {
	case "set":
		v, err := host.Arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, env.Persistent().Set("memo", v)
	case "get":
		var v string
		_, err := env.Persistent().Get("memo", &v)
		return v, err
	}
	return nil, host.ErrFunctionNotFound
}

func TestLedgerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s, err := NewStore(path)
	require.NoError(t, err)
	l := host.NewLedger(&host.Config{Backend: s, Clock: host.NewManualClock(1)})
	addr, err := l.Deploy("memo", memoContract{})
	require.NoError(t, err)
	_, err = l.Call(ctx, addr, "set", "persisted")
	require.NoError(t, err)
	require.NoError(t, l.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	l = host.NewLedger(&host.Config{Backend: s, Clock: host.NewManualClock(2)})
	t.Cleanup(func() { l.Close() })
	_, err = l.Deploy("memo", memoContract{})
	require.NoError(t, err)

	v, err := l.Call(ctx, addr, "get")
	require.NoError(t, err)
	assert.Equal(t, "persisted", v)
}
