package alerts

import (
	"sync"
	"time"
)

// Clock supplies the time used for cooldown bookkeeping. Implementations
// must be monotonic: the system clock returns time.Now values, whose
// monotonic reading makes Sub immune to wall-clock adjustments.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns time.Now, including its monotonic reading.
func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a Clock that only moves when advanced. Safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	cur time.Time
}

// NewManualClock returns a ManualClock reading start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{cur: start}
}

// Now returns the current reading.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.cur = c.cur.Add(d)
	c.mu.Unlock()
}
