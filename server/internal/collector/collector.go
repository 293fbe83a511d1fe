package collector

import (
	"math"
	"sync"
	"time"

	"github.com/obsidianstack/sentinel/pkg/types"
)

// DefaultCapacity is the ring buffer size used when New is given a
// non-positive capacity.
const DefaultCapacity = 1000

// Recorder is the ingestion contract for metric producers.
type Recorder interface {
	Record(name string, value float64, unit types.Unit, tags map[string]string)
}

// Collector is a bounded, concurrency-safe metric sample buffer.
//
// All exported methods are safe for concurrent use.
type Collector struct {
	mu   sync.Mutex
	buf  []types.MetricSample
	next int  // slot the next Record writes to
	full bool // buf has wrapped at least once

	now func() time.Time // injectable for deterministic tests
}

// New creates a Collector that retains the most recent capacity samples.
func New(capacity int) *Collector {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Collector{
		buf: make([]types.MetricSample, capacity),
		now: time.Now,
	}
}

// Record appends a sample, evicting the oldest one when the buffer is full.
// It never fails: unknown units are stored as-is, and non-finite values are
// dropped since they cannot contribute to any aggregate.
func (c *Collector) Record(name string, value float64, unit types.Unit, tags map[string]string) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return
	}
	s := types.MetricSample{
		Name:      name,
		Value:     value,
		Unit:      unit,
		Timestamp: c.now(),
		Tags:      copyTags(tags),
	}

	c.mu.Lock()
	c.buf[c.next] = s
	c.next++
	if c.next == len(c.buf) {
		c.next = 0
		c.full = true
	}
	c.mu.Unlock()
}

// Samples returns a copy of the retained samples, oldest first.
func (c *Collector) Samples() []types.MetricSample {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.full {
		out := make([]types.MetricSample, c.next)
		copy(out, c.buf[:c.next])
		return out
	}
	out := make([]types.MetricSample, 0, len(c.buf))
	out = append(out, c.buf[c.next:]...)
	out = append(out, c.buf[:c.next]...)
	return out
}

// Len returns the number of samples currently retained.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return len(c.buf)
	}
	return c.next
}

// Capacity returns the maximum number of samples retained.
func (c *Collector) Capacity() int { return len(c.buf) }

// Snapshot computes aggregate statistics over the current window.
func (c *Collector) Snapshot() types.Snapshot {
	samples := c.Samples()
	return Compute(samples, c.now())
}

func copyTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
