package calllog

import "sync/atomic"

// Clock is the monotonic version counter for matched-invocation records.
//
// Every recorded match is stamped with a strictly increasing version from
// this clock; a version, once issued, is never reused, even across Clear.
// The version order is the happens-before relation verification relies on
// ("was this setup matched no later than verification time").
//
// Thread-safety: safe for concurrent use (atomic operations).
type Clock struct {
	version atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next version and advances the clock. Calls are
// linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.version.Add(1)
}

// Current returns the latest issued version without advancing.
func (c *Clock) Current() int64 {
	return c.version.Load()
}
