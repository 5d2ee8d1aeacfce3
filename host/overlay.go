package host

import (
	"context"
	"maps"
	"slices"

	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// overlay stages the writes and events of one call frame. Nested frames
// merge into their parent on success and are dropped on failure.
type overlay struct {
	parent  *overlay
	backend Backend
	writes  map[string]Write
	events  []interfaces.Event
}

func newOverlay(backend Backend) *overlay {
	return &overlay{backend: backend, writes: make(map[string]Write)}
}

func (o *overlay) child() *overlay {
	return &overlay{parent: o, backend: o.backend, writes: make(map[string]Write)}
}

func (o *overlay) get(ctx context.Context, key string) (*Entry, error) {
	for cur := o; cur != nil; cur = cur.parent {
		if w, ok := cur.writes[key]; ok {
			if w.Deleted {
				return nil, nil
			}
			entry := w.Entry
			entry.Value = slices.Clone(entry.Value)
			return &entry, nil
		}
	}
	return o.backend.Get(ctx, key)
}

func (o *overlay) set(key string, entry Entry) {
	o.writes[key] = Write{Key: key, Entry: entry}
}

func (o *overlay) remove(key string) {
	o.writes[key] = Write{Key: key, Deleted: true}
}

func (o *overlay) publish(ev interfaces.Event) {
	o.events = append(o.events, ev)
}

func (o *overlay) merge() {
	maps.Copy(o.parent.writes, o.writes)
	o.parent.events = append(o.parent.events, o.events...)
}

func (o *overlay) staged() []Write {
	keys := slices.Sorted(maps.Keys(o.writes))
	res := make([]Write, 0, len(keys))
	for _, k := range keys {
		res = append(res, o.writes[k])
	}
	return res
}
