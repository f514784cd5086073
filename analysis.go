// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package simrt

import (
	"fmt"
	"math/big"
	"slices"
	"strings"
)

// Guarantee is the answer of a sufficient schedulability test. Unknown is
// not evidence of a deadline miss: only a simulation can show one.
type Guarantee uint8

const (
	Unknown Guarantee = iota
	GuaranteedSchedulable
)

func (g Guarantee) String() string {
	switch g {
	case Unknown:
		return "unknown"
	case GuaranteedSchedulable:
		return "guaranteed"
	default:
		return fmt.Sprintf("Guarantee(%d)", uint8(g))
	}
}

// TestFunc is a sufficient schedulability test.
type TestFunc func(tasks []*Task, platform *Platform) Guarantee

// LookupTest returns a test by name: "density" for [Analyze] and "load" for
// [LoadTest] with default options. Other names fail with [ErrInvalidOption].
func LookupTest(name string) (TestFunc, error) {
	switch strings.ToLower(name) {
	case "density", "":
		return Analyze, nil
	case "load":
		return func(tasks []*Task, platform *Platform) Guarantee {
			return LoadTest(tasks, platform)
		}, nil
	default:
		return nil, ErrInvalidOption.Detail("unknown schedulability test %q", name)
	}
}

// Analyze is the default sufficient test for Global-EDF. It guarantees
// schedulability when
//
//	δ_max <= s_1  and  Σ δ_i <= S - λ·δ_max
//
// where δ_i = C_i/min(D_i,T_i) is a task's density, s_1 the fastest speed,
// S the total speed, and λ the platform's [Platform.Lambda]. On m identical
// unit-speed processors this reads Σδ <= m - (m-1)·δ_max.
//
// The bound depends on the tasks only through Σδ and δ_max, so adding a task
// never turns Unknown into GuaranteedSchedulable, and on identical platforms
// adding a processor never turns GuaranteedSchedulable into Unknown.
// Invalid input yields Unknown.
func Analyze(tasks []*Task, platform *Platform) Guarantee {
	set := TaskSet(tasks)
	if platform == nil || set.Validate() != nil {
		return Unknown
	}
	dmax := set.MaxDensity()
	if platform.FastestSpeed().Less(dmax) {
		return Unknown
	}
	bound := platform.TotalSpeed().Sub(platform.Lambda().Mul(dmax))
	if set.TotalDensity().Cmp(bound) <= 0 {
		return GuaranteedSchedulable
	}
	return Unknown
}

// DefaultMaxLoadPoints bounds the number of demand step points [Load]
// examines unless overridden with [WithMaxLoadPoints].
const DefaultMaxLoadPoints = 1 << 16

// LoadOption configures [Load] and [LoadTest].
type LoadOption func(*loadConfig)

type loadConfig struct {
	maxPoints int
}

// WithMaxLoadPoints sets how many step points of the demand bound function
// may be evaluated before giving up.
func WithMaxLoadPoints(n int) LoadOption {
	return func(c *loadConfig) {
		c.maxPoints = n
	}
}

// DBF returns the demand bound function of task over an interval of length
// t: the most work that jobs with both release and deadline inside such an
// interval can require.
func DBF(task *Task, t Rat) Rat {
	if t.Less(task.d) {
		return Rat{}
	}
	jobs := t.Sub(task.d).Quo(task.t).Floor().Add(Int(1))
	return jobs.Mul(task.c)
}

// Load returns LOAD = max over t > 0 of Σ DBF(τ_i, t)/t. It reports false if
// computing it would examine more step points than allowed.
//
// The maximum is attained at a step point of the DBF no later than the
// hyperperiod plus the largest deadline, or else approached by the total
// utilization as t grows, so only those candidates are examined.
func Load(tasks []*Task, opts ...LoadOption) (Rat, bool) {
	cfg := loadConfig{maxPoints: DefaultMaxLoadPoints}
	for _, opt := range opts {
		opt(&cfg)
	}
	set := TaskSet(tasks)
	if len(set) == 0 {
		return Rat{}, true
	}
	limit := set.Hyperperiod().Add(set.MaxDeadline())

	count := new(big.Int)
	for _, t := range set {
		if !limit.Less(t.d) {
			n := limit.Sub(t.d).Quo(t.t).Floor().Add(Int(1))
			count.Add(count, n.Num())
		}
	}
	if !count.IsInt64() || (cfg.maxPoints > 0 && count.Int64() > int64(cfg.maxPoints)) {
		return Rat{}, false
	}

	points := make([]Rat, 0, count.Int64())
	for _, t := range set {
		for p := t.d; !limit.Less(p); p = p.Add(t.t) {
			points = append(points, p)
		}
	}
	slices.SortFunc(points, Rat.Cmp)
	points = slices.CompactFunc(points, Rat.Equal)

	load := set.TotalUtilization()
	for _, p := range points {
		var demand Rat
		for _, t := range set {
			demand = demand.Add(DBF(t, p))
		}
		load = MaxRat(load, demand.Quo(p))
	}
	return load, true
}

// LoadTest is a load-based sufficient test for Global-EDF on uniform
// multiprocessors, for task sets with constrained deadlines. With speeds
// s_1 >= ... >= s_m, δ_max the largest density, μ = S - λ·δ_max, and
//
//	ν = max { k : s_k + ... + s_m < μ }
//
// it guarantees schedulability when LOAD <= μ - ν·δ_max. On a single
// processor it reduces to the exact demand test LOAD <= s.
//
// LoadTest is often tighter than [Analyze] for constrained deadlines, but it
// is not monotone in the number of processors. It answers Unknown when some
// deadline exceeds its period, when no ν exists, or when the load cannot be
// computed within the step point budget.
func LoadTest(tasks []*Task, platform *Platform, opts ...LoadOption) Guarantee {
	set := TaskSet(tasks)
	if platform == nil || set.Validate() != nil {
		return Unknown
	}
	if len(set) == 0 {
		return GuaranteedSchedulable
	}
	for _, t := range set {
		if !t.ConstrainedDeadline() {
			return Unknown
		}
	}
	dmax := set.MaxDensity()
	if platform.FastestSpeed().Less(dmax) {
		return Unknown
	}
	load, ok := Load(set, opts...)
	if !ok {
		return Unknown
	}

	if platform.Len() == 1 {
		if load.Cmp(platform.FastestSpeed()) <= 0 {
			return GuaranteedSchedulable
		}
		return Unknown
	}

	mu := platform.TotalSpeed().Sub(platform.Lambda().Mul(dmax))
	speeds := platform.Speeds()
	nu := -1
	var tail Rat
	for i := len(speeds) - 1; i >= 0; i-- {
		tail = tail.Add(speeds[i])
		if tail.Less(mu) {
			nu = max(nu, i+1)
		}
	}
	if nu < 0 {
		return Unknown
	}
	if load.Cmp(mu.Sub(Int(int64(nu)).Mul(dmax))) <= 0 {
		return GuaranteedSchedulable
	}
	return Unknown
}
