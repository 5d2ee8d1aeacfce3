package interfaces

import (
	"context"
	"encoding/json"
)

// Event is a committed ledger event. Topics are rendered as strings so that
// off-chain observers can filter without knowing the payload schema.
type Event struct {
	ID       uint64          `json:"id"`
	Contract Principal       `json:"contract"`
	Topics   []string        `json:"topics"`
	Data     json.RawMessage `json:"data"`
	Tick     uint64          `json:"tick"`
}

// EventFilter selects events. Zero values match everything.
type EventFilter struct {
	Contract *Principal
	// Topic matches any event that carries it at any position.
	Topic  string
	FromID uint64
	Limit  int
}

type EventLog interface {
	Events(ctx context.Context, filter EventFilter) ([]Event, error)
}
