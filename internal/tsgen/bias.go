// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package tsgen

import (
	"fmt"

	"pgregory.net/rapid"
)

// BiasedIntConfig draws integers in [Min, Max] that shrink towards Med.
type BiasedIntConfig struct {
	Min int
	Med int
	Max int
}

// Draw returns Min without consuming input when the range is a single value.
func (c BiasedIntConfig) Draw(t *rapid.T, name string) int {
	switch {
	case c.Med < c.Min || c.Max < c.Med:
		panic(fmt.Sprint("invalid BiasedIntConfig:", c))
	case c.Min == c.Max:
		return c.Min
	}
	offset := rapid.IntRange(c.Min-c.Med, c.Max-c.Med).Draw(t, name+".offset")
	return c.Med + offset
}

// Coin draws a boolean that is true with probability p. Probabilities at or
// below zero never come up true and those at or above one always do; neither
// consumes input.
func Coin(t *rapid.T, name string, p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	}
	return rapid.Float64Range(0, 1).Draw(t, name) < p
}
