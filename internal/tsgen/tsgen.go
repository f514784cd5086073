// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package tsgen draws task systems for property-based tests.
package tsgen

import (
	"fmt"

	"github.com/unccx/SimRT"
	"pgregory.net/rapid"
)

// HarmonicPeriods keeps hyperperiods small: their least common multiple is 24.
var HarmonicPeriods = []int64{2, 3, 4, 6, 8, 12, 24}

var DefaultTaskSetConfig = TaskSetConfig{
	Count:       BiasedIntConfig{Min: 1, Med: 3, Max: 8},
	Periods:     HarmonicPeriods,
	Constrained: 0.5,
	Offset:      0.2,
}

// TaskSetConfig controls the shape of drawn task sets. All parameters are
// integers and C shrinks towards 1. Deadlines are implicit unless the
// Constrained coin says otherwise, in which case they fall in [C, T]. The
// Offset coin makes a task skip its release at time zero.
type TaskSetConfig struct {
	Count       BiasedIntConfig
	Periods     []int64
	Constrained float64
	Offset      float64
}

func (c TaskSetConfig) Draw(t *rapid.T, name string) []*simrt.Task {
	n := c.Count.Draw(t, name+".count")
	tasks := make([]*simrt.Task, n)
	for i := range tasks {
		tasks[i] = c.drawTask(t, fmt.Sprintf("%s[%d]", name, i), uint64(i+1))
	}
	return tasks
}

func (c TaskSetConfig) drawTask(t *rapid.T, name string, id uint64) *simrt.Task {
	period := rapid.SampledFrom(c.Periods).Draw(t, name+".T")
	wcet := int64(BiasedIntConfig{Min: 1, Med: 1, Max: int(period)}.Draw(t, name+".C"))
	deadline := period
	if Coin(t, name+".constrained", c.Constrained) {
		deadline = rapid.Int64Range(wcet, period).Draw(t, name+".D")
	}
	var opts []simrt.TaskOption
	if Coin(t, name+".offset", c.Offset) {
		opts = append(opts, simrt.WithoutInitialRelease())
	}
	task, err := simrt.NewTask(id, simrt.Periodic, simrt.Int(wcet), simrt.Int(deadline), simrt.Int(period), opts...)
	if err != nil {
		panic(err)
	}
	return task
}

// PlatformConfig controls the shape of drawn platforms.
type PlatformConfig struct {
	Count BiasedIntConfig
	// Speeds lists candidate speeds. A platform is identical, using one of
	// them for every processor, unless Heterogeneous is set.
	Speeds        []simrt.Rat
	Heterogeneous bool
}

var DefaultPlatformConfig = PlatformConfig{
	Count:  BiasedIntConfig{Min: 1, Med: 2, Max: 4},
	Speeds: []simrt.Rat{simrt.Int(1)},
}

func (c PlatformConfig) Draw(t *rapid.T, name string) *simrt.Platform {
	m := c.Count.Draw(t, name+".m")
	speeds := make([]simrt.Rat, m)
	common := rapid.SampledFrom(c.Speeds).Draw(t, name+".speed")
	for i := range speeds {
		if c.Heterogeneous {
			speeds[i] = rapid.SampledFrom(c.Speeds).Draw(t, fmt.Sprintf("%s.speed[%d]", name, i))
		} else {
			speeds[i] = common
		}
	}
	p, err := simrt.NewHeterogeneousPlatform(speeds...)
	if err != nil {
		panic(err)
	}
	return p
}
