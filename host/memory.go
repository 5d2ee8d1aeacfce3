package host

import (
	"context"
	"slices"
	"sync"

	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// MemoryBackend keeps the ledger in process memory. Used by tests and by
// servers started without a database path.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]Entry
	events  []interfaces.Event
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]Entry)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) (*Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, ok := b.entries[key]
	if !ok {
		return nil, nil
	}
	entry.Value = slices.Clone(entry.Value)
	return &entry, nil
}

func (b *MemoryBackend) Commit(_ context.Context, writes []Write, events []interfaces.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		if w.Deleted {
			delete(b.entries, w.Key)
			continue
		}
		b.entries[w.Key] = w.Entry
	}

	for i := range events {
		events[i].ID = uint64(len(b.events)) + 1
		b.events = append(b.events, events[i])
	}
	return nil
}

func (b *MemoryBackend) Events(_ context.Context, filter interfaces.EventFilter) ([]interfaces.Event, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var res []interfaces.Event
	for _, ev := range b.events {
		if !MatchEvent(&ev, &filter) {
			continue
		}
		res = append(res, ev)
		if filter.Limit > 0 && len(res) >= filter.Limit {
			break
		}
	}
	return res, nil
}

func (b *MemoryBackend) Prune(_ context.Context, now uint64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pruned := 0
	for key, entry := range b.entries {
		if !entry.Live(now) {
			delete(b.entries, key)
			pruned++
		}
	}
	return pruned, nil
}

func (b *MemoryBackend) Close() error { return nil }

// MatchEvent applies filter to ev. Shared by backends that filter in memory.
func MatchEvent(ev *interfaces.Event, filter *interfaces.EventFilter) bool {
	if ev.ID < filter.FromID {
		return false
	}
	if filter.Contract != nil && ev.Contract != *filter.Contract {
		return false
	}
	if filter.Topic != "" && !slices.Contains(ev.Topics, filter.Topic) {
		return false
	}
	return true
}
