package engine

import "sync/atomic"

// Clock is the monotonic insertion-sequence counter that stamps every event.
//
// Sequence numbers break ties between events due at the same time, so the
// order of scheduling calls fully determines the order of application.
// Simulated time is tracked separately by the Scheduler; Clock never sees it.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// The first call returns 1.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Reset returns the clock to 0. Only ResetSimulationTime calls it.
func (c *Clock) Reset() {
	c.seq.Store(0)
}
