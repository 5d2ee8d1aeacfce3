package host

import (
	"sync"
	"time"
)

// Clock is the ledger's logical clock. Temporary entry expiry and
// certificate timestamps are expressed in its ticks.
type Clock interface {
	Now() uint64
}

// WallClock ticks once per second of unix time.
type WallClock struct{}

func (WallClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// ManualClock only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

func NewManualClock(start uint64) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by ticks and returns the new time.
func (c *ManualClock) Advance(ticks uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += ticks
	return c.now
}
