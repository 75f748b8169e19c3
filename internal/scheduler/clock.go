package scheduler

import "sync/atomic"

// Clock is a monotonic logical clock. Every decision a testing scheduler
// makes is stamped with the next value, so a choice log is totally ordered
// without reference to wall time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
