package host

import (
	"context"

	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// Durability classes of ledger entries.
type Durability uint8

const (
	Persistent Durability = iota
	Temporary
)

func (d Durability) String() string {
	if d == Temporary {
		return "temporary"
	}
	return "persistent"
}

// Entry is a stored ledger value. Temporary entries stop existing once the
// clock reaches ExpiresAt.
type Entry struct {
	Value      []byte
	Durability Durability
	ExpiresAt  uint64
}

// Live reports whether the entry is visible at tick now.
func (e *Entry) Live(now uint64) bool {
	return e.Durability == Persistent || now < e.ExpiresAt
}

// Write is one staged change. Deleted writes remove the key.
type Write struct {
	Key     string
	Entry   Entry
	Deleted bool
}

// Backend durably stores ledger entries and the event log. Commit must apply
// all writes and append all events atomically, assigning event ids.
type Backend interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Commit(ctx context.Context, writes []Write, events []interfaces.Event) error
	Events(ctx context.Context, filter interfaces.EventFilter) ([]interfaces.Event, error)
	// Prune drops temporary entries expired at tick now.
	Prune(ctx context.Context, now uint64) (int, error)
	Close() error
}
