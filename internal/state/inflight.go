// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package state holds small concurrency primitives shared by the worker pool
// and the batch evaluator.
package state

import (
	"sync/atomic"
)

// InFlightCounter counts operations that have started but not finished. It
// is safe for concurrent use; the zero value is ready.
type InFlightCounter struct {
	v atomic.Int64
}

// Increment adds one and reports whether the counter was zero before.
func (c *InFlightCounter) Increment() bool {
	return c.v.Add(1) == 1
}

// IncrementIfUnder adds one only if the result does not exceed limit. A
// negative limit means no limit.
func (c *InFlightCounter) IncrementIfUnder(limit int) bool {
	if limit < 0 {
		c.Increment()
		return true
	}
	// Tentatively increment and check. If over the limit, back the increment
	// out and retry only if another goroutine made room in between.
	for c.v.Add(1) > int64(limit) {
		if c.v.Add(-1) >= int64(limit) {
			return false
		}
	}
	return true
}

// Decrement subtracts one and reports whether the counter reached zero. It
// panics if nothing was in flight.
func (c *InFlightCounter) Decrement() bool {
	n := c.v.Add(-1)
	if n < 0 {
		panic("nothing was in flight")
	}
	return n == 0
}

// IsZero reports whether nothing is in flight.
func (c *InFlightCounter) IsZero() bool {
	return c.v.Load() == 0
}
