// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package simrt

// DefaultMaxEvents is the event budget of a simulation unless overridden with
// [WithMaxEvents].
const DefaultMaxEvents = 1 << 24

// SimOption configures [Simulate].
type SimOption func(*simConfig)

type simConfig struct {
	horizon             Rat
	hasHorizon          bool
	maxEvents           int
	hyperperiodMultiple int
	traceLimit          int
	fullHorizon         bool
}

func defaultSimConfig() simConfig {
	return simConfig{
		maxEvents:           DefaultMaxEvents,
		hyperperiodMultiple: 1,
	}
}

func (c *simConfig) validate() error {
	switch {
	case c.hasHorizon && c.horizon.Sign() < 0:
		return ErrInvalidOption.Detail("horizon %v is negative", c.horizon)
	case c.maxEvents < 0:
		return ErrInvalidOption.Detail("event budget %d is negative", c.maxEvents)
	case c.hyperperiodMultiple < 1:
		return ErrInvalidOption.Detail("hyperperiod multiple %d must be at least 1", c.hyperperiodMultiple)
	case c.traceLimit < 0:
		return ErrInvalidOption.Detail("trace limit %d is negative", c.traceLimit)
	}
	return nil
}

// WithHorizon sets an explicit end time, replacing [DefaultHorizon]. Jobs
// released at or after the horizon are not simulated; deadlines up to and
// including the horizon are checked.
func WithHorizon(h Rat) SimOption {
	return func(c *simConfig) {
		c.horizon = h
		c.hasHorizon = true
	}
}

// WithMaxEvents bounds the number of events a simulation may process. A run
// that would need more ends with [VerdictUnknown] and [ErrHorizonExhausted].
// Zero removes the bound.
func WithMaxEvents(n int) SimOption {
	return func(c *simConfig) {
		c.maxEvents = n
	}
}

// WithHyperperiodMultiple sets how many hyperperiods the default horizon
// spans for task sets that contain sporadic tasks.
func WithHyperperiodMultiple(k int) SimOption {
	return func(c *simConfig) {
		c.hyperperiodMultiple = k
	}
}

// WithTrace records the schedule, keeping the last limit segments in
// [SimulationResult.Trace].
func WithTrace(limit int) SimOption {
	return func(c *simConfig) {
		c.traceLimit = limit
	}
}

// WithFullHorizon makes the simulation run to the horizon even when an
// earlier idle instant already decides the outcome. See [Simulate].
func WithFullHorizon() SimOption {
	return func(c *simConfig) {
		c.fullHorizon = true
	}
}
