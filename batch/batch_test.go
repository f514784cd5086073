// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package batch_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/unccx/SimRT"
	"github.com/unccx/SimRT/batch"
	"github.com/unccx/SimRT/gen"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func schedulableSet() []*simrt.Task {
	return []*simrt.Task{simrt.MustTask(1, 1, 4, 4), simrt.MustTask(2, 2, 6, 6)}
}

func missingSet() []*simrt.Task {
	return []*simrt.Task{simrt.MustTask(1, 1, 1, 1), simrt.MustTask(2, 1, 1, 1), simrt.MustTask(3, 1, 1, 1)}
}

func TestEvaluateCountsSchedulableSets(t *testing.T) {
	chk := require.New(t)
	const n = 25
	sets := make([][]*simrt.Task, n)
	for i := range sets {
		sets[i] = schedulableSet()
	}

	report, err := batch.Evaluate(context.Background(), sets, batch.Config{
		Platform:    simrt.MustPlatform(2, 1),
		Concurrency: 4,
	})
	chk.NoError(err)
	chk.Len(report.Items, n)
	chk.Equal(n, report.Summary.Total)
	chk.Equal(n, report.Summary.Schedulable)
	chk.Equal(1.0, report.Summary.AcceptanceRatio())
	for i, item := range report.Items {
		chk.Equal(i, item.Index)
		chk.Equal(batch.Schedulable, item.Outcome)
		chk.NotNil(item.Simulation)
		chk.False(item.Analyzed)
		chk.Equal("7/12", item.Utilization.String())
	}
}

func TestEvaluatePreservesOrder(t *testing.T) {
	chk := require.New(t)
	const n = 40
	sets := make([][]*simrt.Task, n)
	for i := range sets {
		sets[i] = []*simrt.Task{simrt.MustTask(uint64(i+1), 1, int64(i+2), int64(i+2))}
	}
	source := func(ctx context.Context, i int) ([]*simrt.Task, error) {
		time.Sleep(time.Duration(rand.IntN(500)) * time.Microsecond)
		return sets[i], nil
	}

	report, err := batch.EvaluateGenerated(context.Background(), n, source, batch.Config{
		Platform:    simrt.MustPlatform(1, 1),
		Concurrency: 8,
	})
	chk.NoError(err)
	for i, item := range report.Items {
		chk.Equal(i, item.Index)
		chk.Equal(sets[i], item.Tasks)
		chk.Equal(batch.Schedulable, item.Outcome)
	}
}

func TestEvaluateIsolatesFailures(t *testing.T) {
	chk := require.New(t)
	core, logs := observer.New(zapcore.DebugLevel)
	sets := [][]*simrt.Task{
		schedulableSet(),
		{simrt.MustTask(1, 1, 2, 2), simrt.MustTask(1, 1, 2, 2)},
		missingSet(),
		{simrt.MustTask(1, 1, 2, 2), nil},
		schedulableSet(),
	}
	source := func(ctx context.Context, i int) ([]*simrt.Task, error) {
		if i == 4 {
			panic("source exploded")
		}
		return sets[i], nil
	}

	report, err := batch.EvaluateGenerated(context.Background(), len(sets), source, batch.Config{
		Platform: simrt.MustPlatform(2, 1),
		Logger:   zap.New(core),
	})
	chk.NoError(err)
	outcomes := make([]batch.Outcome, len(report.Items))
	for i, item := range report.Items {
		outcomes[i] = item.Outcome
	}
	chk.Equal([]batch.Outcome{batch.Schedulable, batch.Failed, batch.Missed, batch.Failed, batch.Failed}, outcomes)
	chk.ErrorIs(report.Items[1].Err, simrt.ErrInvalidTaskParameters)
	chk.ErrorIs(report.Items[3].Err, simrt.ErrInvalidTaskParameters)
	chk.ErrorIs(report.Items[4].Err, batch.ErrEvaluationPanic)
	chk.Contains(report.Items[4].Err.Error(), "source exploded")
	chk.Equal(uint64(3), report.Items[2].Simulation.FirstMiss.TaskID)

	chk.Equal(3, report.Summary.Failed)
	chk.Equal(1, report.Summary.Missed)
	chk.Equal(0.5, report.Summary.AcceptanceRatio())

	failures := logs.FilterMessage("Task set evaluation failed")
	chk.Equal(3, failures.Len())
	for _, entry := range failures.All() {
		chk.Equal(zapcore.WarnLevel, entry.Level)
		chk.Equal("batch", entry.ContextMap()["component"])
	}
	chk.Equal(1, logs.FilterMessage("Finished batch").Len())
}

func TestEvaluateModes(t *testing.T) {
	chk := require.New(t)
	sets := [][]*simrt.Task{schedulableSet(), missingSet()}
	platform := simrt.MustPlatform(2, 1)

	report, err := batch.Evaluate(context.Background(), sets, batch.Config{Platform: platform, Mode: batch.ModeAnalyze})
	chk.NoError(err)
	chk.Equal(batch.Schedulable, report.Items[0].Outcome)
	chk.Equal(simrt.GuaranteedSchedulable, report.Items[0].Guarantee)
	chk.Equal(batch.Unknown, report.Items[1].Outcome)
	for _, item := range report.Items {
		chk.True(item.Analyzed)
		chk.Nil(item.Simulation)
	}
	chk.Equal(1, report.Summary.Guaranteed)

	report, err = batch.Evaluate(context.Background(), sets, batch.Config{Platform: platform, Mode: batch.ModeBoth})
	chk.NoError(err)
	chk.NotNil(report.Items[0].Simulation)
	chk.Equal(batch.Missed, report.Items[1].Outcome)

	report, err = batch.Evaluate(context.Background(), sets, batch.Config{Platform: platform, Mode: batch.ModeBoth, SkipGuaranteed: true})
	chk.NoError(err)
	chk.Nil(report.Items[0].Simulation)
	chk.Equal(batch.Schedulable, report.Items[0].Outcome)
	chk.NotNil(report.Items[1].Simulation)

	load, err := simrt.LookupTest("load")
	chk.NoError(err)
	report, err = batch.Evaluate(context.Background(), sets, batch.Config{Platform: platform, Mode: batch.ModeAnalyze, Analyzer: load})
	chk.NoError(err)
	chk.Equal(batch.Schedulable, report.Items[0].Outcome)
}

func TestEvaluateLogsContradiction(t *testing.T) {
	chk := require.New(t)
	core, logs := observer.New(zapcore.InfoLevel)
	always := func([]*simrt.Task, *simrt.Platform) simrt.Guarantee { return simrt.GuaranteedSchedulable }

	report, err := batch.Evaluate(context.Background(), [][]*simrt.Task{missingSet()}, batch.Config{
		Platform: simrt.MustPlatform(2, 1),
		Mode:     batch.ModeBoth,
		Analyzer: always,
		Logger:   zap.New(core),
	})
	chk.NoError(err)
	chk.Equal(batch.Missed, report.Items[0].Outcome)
	entries := logs.FilterMessage("Sufficient test contradicted by simulation").All()
	chk.Len(entries, 1)
	chk.Equal(zapcore.ErrorLevel, entries[0].Level)
}

func TestEvaluateHorizonExhaustedIsUnknown(t *testing.T) {
	chk := require.New(t)
	report, err := batch.Evaluate(context.Background(), [][]*simrt.Task{schedulableSet()}, batch.Config{
		Platform:   simrt.MustPlatform(2, 1),
		SimOptions: []simrt.SimOption{simrt.WithMaxEvents(1)},
	})
	chk.NoError(err)
	chk.Equal(batch.Unknown, report.Items[0].Outcome)
	chk.ErrorIs(report.Items[0].Err, simrt.ErrHorizonExhausted)
	chk.Equal(simrt.VerdictUnknown, report.Items[0].Simulation.Verdict)
}

func TestEvaluateCancellation(t *testing.T) {
	chk := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	const n = 10
	source := func(ctx context.Context, i int) ([]*simrt.Task, error) {
		if i == 3 {
			cancel()
			return nil, errors.New("stopping")
		}
		return schedulableSet(), nil
	}

	report, err := batch.EvaluateGenerated(ctx, n, source, batch.Config{
		Platform:    simrt.MustPlatform(2, 1),
		Concurrency: 1,
	})
	chk.ErrorIs(err, context.Canceled)
	chk.Len(report.Items, n)
	for i := range 3 {
		chk.Equal(batch.Schedulable, report.Items[i].Outcome, i)
	}
	chk.Equal(batch.Failed, report.Items[3].Outcome)
	chk.Contains([]batch.Outcome{batch.Skipped, batch.Unknown}, report.Items[4].Outcome)
	for _, item := range report.Items[5:] {
		chk.Equal(batch.Skipped, item.Outcome)
		chk.ErrorIs(item.Err, context.Canceled)
	}
	chk.GreaterOrEqual(report.Summary.Skipped, n-5)
}

func TestEvaluateCanceledBeforeStart(t *testing.T) {
	chk := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := batch.Evaluate(ctx, [][]*simrt.Task{schedulableSet(), schedulableSet()}, batch.Config{Platform: simrt.MustPlatform(1, 1)})
	chk.ErrorIs(err, context.Canceled)
	chk.Equal(2, report.Summary.Skipped)
}

func TestEvaluateRejectsInvalidConfig(t *testing.T) {
	chk := require.New(t)
	_, err := batch.Evaluate(context.Background(), nil, batch.Config{})
	chk.ErrorIs(err, batch.ErrInvalidConfig)
	_, err = batch.Evaluate(context.Background(), nil, batch.Config{Platform: simrt.MustPlatform(1, 1), Mode: 7})
	chk.ErrorIs(err, batch.ErrInvalidConfig)
	_, err = batch.EvaluateGenerated(context.Background(), 1, nil, batch.Config{Platform: simrt.MustPlatform(1, 1)})
	chk.ErrorIs(err, batch.ErrInvalidConfig)
}

func TestGeneratorSourceIsScheduleIndependent(t *testing.T) {
	chk := require.New(t)
	platform := simrt.MustPlatform(2, 1)
	source := batch.GeneratorSource(gen.Config{
		Count:             4,
		SystemUtilization: 0.5,
		Platform:          platform,
		PeriodChoices:     []int64{4, 8, 16},
	}, 99)

	render := func(concurrency int) []string {
		report, err := batch.EvaluateGenerated(context.Background(), 12, source, batch.Config{
			Platform:    platform,
			Mode:        batch.ModeAnalyze,
			Concurrency: concurrency,
		})
		chk.NoError(err)
		out := make([]string, len(report.Items))
		for i, item := range report.Items {
			chk.NoError(item.Err)
			out[i] = fmt.Sprint(item.Tasks)
		}
		return out
	}
	chk.Equal(render(1), render(6))
}

func TestEvaluateRecordsMetrics(t *testing.T) {
	chk := require.New(t)
	reg := prometheus.NewRegistry()
	metrics, err := batch.NewMetrics(reg)
	chk.NoError(err)
	again, err := batch.NewMetrics(reg)
	chk.NoError(err)
	chk.Same(metrics.Outcomes, again.Outcomes)

	sets := [][]*simrt.Task{schedulableSet(), schedulableSet(), missingSet()}
	_, err = batch.Evaluate(context.Background(), sets, batch.Config{
		Platform: simrt.MustPlatform(2, 1),
		Metrics:  metrics,
	})
	chk.NoError(err)
	chk.Equal(2.0, testutil.ToFloat64(metrics.Outcomes.WithLabelValues("schedulable")))
	chk.Equal(1.0, testutil.ToFloat64(metrics.Outcomes.WithLabelValues("missed")))
	chk.Equal(0.0, testutil.ToFloat64(metrics.InFlight))
	chk.Equal(uint64(3), histogramSampleCount(t, reg, "simrt_batch_item_duration_seconds"))
}

func histogramSampleCount(t *testing.T, reg *prometheus.Registry, name string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		var count uint64
		for _, m := range family.GetMetric() {
			count += m.GetHistogram().GetSampleCount()
		}
		return count
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestEvaluateRecordsSpans(t *testing.T) {
	chk := require.New(t)
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	sets := [][]*simrt.Task{schedulableSet(), missingSet(), {nil}}
	_, err := batch.Evaluate(context.Background(), sets, batch.Config{
		Platform:       simrt.MustPlatform(2, 1),
		TracerProvider: provider,
	})
	chk.NoError(err)

	spans := recorder.Ended()
	chk.Len(spans, 4)
	var root sdktrace.ReadOnlySpan
	items := 0
	for _, span := range spans {
		switch span.Name() {
		case "batch.evaluate":
			root = span
		case "batch.item":
			items++
		}
	}
	chk.NotNil(root)
	chk.Equal(3, items)
	for _, span := range spans {
		if span.Name() == "batch.item" {
			chk.Equal(root.SpanContext().SpanID(), span.Parent().SpanID())
		}
	}
}
