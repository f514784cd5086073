// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package simrt_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unccx/SimRT"
	"github.com/unccx/SimRT/internal/tsgen"
	"pgregory.net/rapid"
)

func TestAnalyzeDensityBound(t *testing.T) {
	chk := require.New(t)
	two := simrt.MustPlatform(2, 1)

	// Σδ = 1.2, δmax = 0.6: 1.2 <= 2 - 0.6.
	light := []*simrt.Task{simrt.MustTask(1, 3, 5, 5), simrt.MustTask(2, 3, 5, 5)}
	chk.Equal(simrt.GuaranteedSchedulable, simrt.Analyze(light, two))

	// Σδ = 1.6 > 2 - 0.6, although it is in fact schedulable.
	heavy := append(light, simrt.MustTask(3, 2, 5, 5))
	chk.Equal(simrt.Unknown, simrt.Analyze(heavy, two))

	// A task denser than the fastest processor is never guaranteed.
	half, err := simrt.NewPlatform(4, simrt.Frac(1, 2))
	chk.NoError(err)
	chk.Equal(simrt.Unknown, simrt.Analyze([]*simrt.Task{simrt.MustTask(1, 3, 4, 4)}, half))

	chk.Equal(simrt.GuaranteedSchedulable, simrt.Analyze(nil, two))
	chk.Equal(simrt.Unknown, simrt.Analyze(light, nil))
	chk.Equal(simrt.Unknown, simrt.Analyze([]*simrt.Task{light[0], light[0]}, two))
}

func TestAnalyzeUsesDensityForConstrainedDeadlines(t *testing.T) {
	chk := require.New(t)
	one := simrt.MustPlatform(1, 1)
	// U = 0.5 but δ = 1.
	chk.Equal(simrt.GuaranteedSchedulable, simrt.Analyze([]*simrt.Task{simrt.MustTask(1, 2, 2, 4)}, one))
	chk.Equal(simrt.Unknown, simrt.Analyze([]*simrt.Task{simrt.MustTask(1, 2, 2, 4), simrt.MustTask(2, 1, 8, 8)}, one))
}

func TestAnalyzeHeterogeneous(t *testing.T) {
	chk := require.New(t)
	platform, err := simrt.NewHeterogeneousPlatform(simrt.Int(2), simrt.Int(1))
	chk.NoError(err)
	// S = 3, λ = 1/2, δmax = 1: bound 5/2 >= 3/2. Adding a task of density
	// 3/2 lowers the bound to 9/4 and raises Σδ to 3.
	tasks := []*simrt.Task{simrt.MustTask(1, 4, 4, 4), simrt.MustTask(2, 3, 6, 6), simrt.MustTask(3, 3, 4, 2)}
	chk.Equal(simrt.GuaranteedSchedulable, simrt.Analyze(tasks[:2], platform))
	chk.Equal(simrt.Unknown, simrt.Analyze(tasks, platform))
}

func TestDBF(t *testing.T) {
	chk := require.New(t)
	task := simrt.MustTask(1, 2, 3, 5)
	for at, want := range map[int64]string{0: "0", 2: "0", 3: "2", 7: "2", 8: "4", 13: "6"} {
		chk.Equal(want, simrt.DBF(task, simrt.Int(at)).String(), "t=%d", at)
	}
}

func TestLoad(t *testing.T) {
	chk := require.New(t)

	implicit := []*simrt.Task{simrt.MustTask(1, 1, 4, 4), simrt.MustTask(2, 2, 6, 6)}
	load, ok := simrt.Load(implicit)
	chk.True(ok)
	chk.Equal("7/12", load.String())

	// dbf(2)/2 = 1/2 dominates the utilization of 1/4.
	constrained := []*simrt.Task{simrt.MustTask(1, 1, 2, 4)}
	load, ok = simrt.Load(constrained)
	chk.True(ok)
	chk.Equal("1/2", load.String())

	_, ok = simrt.Load(implicit, simrt.WithMaxLoadPoints(2))
	chk.False(ok)

	load, ok = simrt.Load(nil)
	chk.True(ok)
	chk.True(load.IsZero())
}

func TestLoadTest(t *testing.T) {
	chk := require.New(t)
	one := simrt.MustPlatform(1, 1)

	// Exact on one processor: LOAD = 1.
	tight := []*simrt.Task{simrt.MustTask(1, 1, 2, 4), simrt.MustTask(2, 1, 2, 4)}
	chk.Equal(simrt.GuaranteedSchedulable, simrt.LoadTest(tight, one))
	// dbf(2)/2 = 3/2.
	chk.Equal(simrt.Unknown, simrt.LoadTest(append(tight, simrt.MustTask(3, 1, 1, 4)), one))

	// μ = 4 - 3·(1/4) = 13/4, ν = 4, bound 9/4 >= LOAD = 1.
	four := simrt.MustPlatform(4, 1)
	quarter := []*simrt.Task{
		simrt.MustTask(1, 1, 4, 4), simrt.MustTask(2, 1, 4, 4),
		simrt.MustTask(3, 1, 4, 4), simrt.MustTask(4, 1, 4, 4),
	}
	chk.Equal(simrt.GuaranteedSchedulable, simrt.LoadTest(quarter, four))

	arbitrary, err := simrt.NewPeriodicTask(9, simrt.Int(1), simrt.Int(5), simrt.Int(4))
	chk.NoError(err)
	chk.Equal(simrt.Unknown, simrt.LoadTest([]*simrt.Task{arbitrary}, four))

	chk.Equal(simrt.Unknown, simrt.LoadTest(quarter, four, simrt.WithMaxLoadPoints(1)))
	chk.Equal(simrt.GuaranteedSchedulable, simrt.LoadTest(nil, four))
}

func TestLookupTest(t *testing.T) {
	chk := require.New(t)
	tasks := []*simrt.Task{simrt.MustTask(1, 1, 2, 4)}
	platform := simrt.MustPlatform(1, 1)

	for _, name := range []string{"density", "load", "LOAD", ""} {
		test, err := simrt.LookupTest(name)
		chk.NoError(err, name)
		chk.Equal(simrt.GuaranteedSchedulable, test(tasks, platform), name)
	}
	_, err := simrt.LookupTest("exact")
	chk.ErrorIs(err, simrt.ErrInvalidOption)
	chk.ErrorContains(err, `"exact"`)
}

func TestAnalyzeMonotoneInProcessorCount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		tasks := tsgen.DefaultTaskSetConfig.Draw(t, "tasks")
		m := rapid.IntRange(1, 8).Draw(t, "m")
		speed := rapid.SampledFrom([]simrt.Rat{simrt.Int(1), simrt.Frac(1, 2), simrt.Int(3)}).Draw(t, "speed")

		small, err := simrt.NewPlatform(m, speed)
		chk.NoError(err)
		large, err := simrt.NewPlatform(m+1, speed)
		chk.NoError(err)
		if simrt.Analyze(tasks, small) == simrt.GuaranteedSchedulable {
			chk.Equal(simrt.GuaranteedSchedulable, simrt.Analyze(tasks, large))
		}
	})
}

func TestAnalyzeMonotoneInTasks(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		tasks := tsgen.DefaultTaskSetConfig.Draw(t, "tasks")
		platform := tsgen.DefaultPlatformConfig.Draw(t, "platform")
		drop := rapid.IntRange(0, len(tasks)-1).Draw(t, "drop")

		if simrt.Analyze(tasks, platform) == simrt.GuaranteedSchedulable {
			subset := append(append([]*simrt.Task{}, tasks[:drop]...), tasks[drop+1:]...)
			chk.Equal(simrt.GuaranteedSchedulable, simrt.Analyze(subset, platform))
		}
	})
}

func TestSufficientTestsAgreeWithSimulation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		tasks := tsgen.DefaultTaskSetConfig.Draw(t, "tasks")
		platform := tsgen.DefaultPlatformConfig.Draw(t, "platform")

		res, err := simrt.Simulate(context.Background(), tasks, platform)
		chk.NoError(err)
		if simrt.Analyze(tasks, platform) == simrt.GuaranteedSchedulable {
			chk.True(res.Schedulable, "density test guaranteed a set that misses: %v", res.FirstMiss)
		}
		if simrt.LoadTest(tasks, platform) == simrt.GuaranteedSchedulable {
			chk.True(res.Schedulable, "load test guaranteed a set that misses: %v", res.FirstMiss)
		}
	})
}

func TestDensityTestAgreesWithSimulationOnUniformPlatforms(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		tasks := tsgen.TaskSetConfig{
			Count:   tsgen.BiasedIntConfig{Min: 1, Med: 3, Max: 6},
			Periods: tsgen.HarmonicPeriods,
		}.Draw(t, "tasks")
		platform := tsgen.PlatformConfig{
			Count:         tsgen.BiasedIntConfig{Min: 1, Med: 2, Max: 4},
			Speeds:        []simrt.Rat{simrt.Int(1), simrt.Frac(1, 2), simrt.Int(2)},
			Heterogeneous: true,
		}.Draw(t, "platform")

		if simrt.Analyze(tasks, platform) != simrt.GuaranteedSchedulable {
			return
		}
		res, err := simrt.Simulate(context.Background(), tasks, platform)
		chk.NoError(err)
		chk.True(res.Schedulable, "guaranteed set misses: %v", res.FirstMiss)
	})
}
