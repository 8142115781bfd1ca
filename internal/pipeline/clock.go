package pipeline

import "sync/atomic"

// Clock is a monotonic logical clock for stage events within a run.
//
// Each event gets a strictly increasing seq. Safe for concurrent use,
// though the driver calls Next from a single goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
