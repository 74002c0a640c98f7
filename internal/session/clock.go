package session

import "sync/atomic"

// Clock stamps processed items with a monotonic logical seq.
type Clock interface {
	Next() int64
	Current() int64
}

// LogicalClock is the production Clock.
//
// Thread-safety: safe for concurrent use (atomic operations), although only
// the Run goroutine calls Next.
type LogicalClock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *LogicalClock {
	return &LogicalClock{}
}

// Next returns the next sequence number and increments the clock.
func (c *LogicalClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *LogicalClock) Current() int64 {
	return c.seq.Load()
}
