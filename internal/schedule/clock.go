package schedule

import "sync/atomic"

// Clock is a monotonic logical clock used to stamp suspension episodes
// and trace events.
//
// Generations are strictly increasing; wall-clock time is never used for
// ordering. A context created at generation N is permanently older than
// one created at generation N+1, which is what lets stale commands be
// recognized after the target resumes.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next generation number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current generation without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
