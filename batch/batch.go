// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package batch evaluates many task sets in parallel on one platform, by
// simulation, by a sufficient schedulability test, or both.
//
// Each task set is evaluated in its own goroutine from a bounded pool.
// Results are collected on the calling goroutine and stored by input index,
// so a [Report] lists items in input order however they were scheduled. A
// failure or panic while evaluating one set is recorded on its [Item] and
// does not affect the others.
package batch

import (
	"context"
	"errors"
	"time"

	"github.com/unccx/SimRT"
	"github.com/unccx/SimRT/gen"
	"github.com/unccx/SimRT/internal/workpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/unccx/SimRT/batch"

// Config controls a batch evaluation.
type Config struct {
	Platform *simrt.Platform
	Mode     Mode
	// Concurrency bounds the number of task sets evaluated at once. Zero
	// means runtime.GOMAXPROCS(0).
	Concurrency int
	SimOptions  []simrt.SimOption
	// Analyzer is the sufficient test; nil means [simrt.Analyze].
	Analyzer simrt.TestFunc
	// SkipGuaranteed makes ModeBoth skip simulating sets the analyzer
	// guarantees.
	SkipGuaranteed bool

	// Logger defaults to zap.L().
	Logger  *zap.Logger
	Metrics *Metrics
	// TracerProvider defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider
}

func (c *Config) normalize() error {
	switch {
	case c.Platform == nil:
		return ErrInvalidConfig.Detail("no platform")
	case c.Mode > ModeBoth:
		return ErrInvalidConfig.Detail("unknown mode %v", c.Mode)
	case c.Concurrency < 0:
		return ErrInvalidConfig.Detail("concurrency %d", c.Concurrency)
	}
	if c.Analyzer == nil {
		c.Analyzer = simrt.Analyze
	}
	if c.Logger == nil {
		c.Logger = zap.L()
	}
	if c.TracerProvider == nil {
		c.TracerProvider = otel.GetTracerProvider()
	}
	return nil
}

// SetSource supplies task set i of a generated batch. It is called from
// worker goroutines and must be safe for concurrent use.
type SetSource func(ctx context.Context, i int) ([]*simrt.Task, error)

// GeneratorSource returns a source that builds set i with a fresh generator
// seeded from seed and i, so each set is the same whatever the concurrency.
func GeneratorSource(cfg gen.Config, seed uint64) SetSource {
	return func(_ context.Context, i int) ([]*simrt.Task, error) {
		g, err := gen.New(cfg, gen.WithSeed(gen.DeriveSeed(seed, i)))
		if err != nil {
			return nil, err
		}
		return g.Generate()
	}
}

// Evaluate evaluates every task set in sets.
//
// If ctx is canceled, no further sets are started, running simulations stop
// with an unknown verdict, and Evaluate returns the partial report together
// with the context's error. Items never started are [Skipped].
func Evaluate(ctx context.Context, sets [][]*simrt.Task, cfg Config) (*Report, error) {
	return EvaluateGenerated(ctx, len(sets), func(_ context.Context, i int) ([]*simrt.Task, error) {
		return sets[i], nil
	}, cfg)
}

// EvaluateGenerated is like [Evaluate] for count sets supplied by source.
// Sets are built inside the workers, so only the sets being evaluated are
// held in memory besides those kept in the report.
func EvaluateGenerated(ctx context.Context, count int, source SetSource, cfg Config) (*Report, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, ErrInvalidConfig.Detail("no task set source")
	}
	e := &evaluator{
		cfg:    cfg,
		source: source,
		logger: cfg.Logger.With(zap.String("component", "batch")),
		tracer: cfg.TracerProvider.Tracer(instrumentationName),
	}
	return e.run(ctx, count)
}

type evaluator struct {
	cfg    Config
	source SetSource
	logger *zap.Logger
	tracer trace.Tracer
}

func (e *evaluator) run(ctx context.Context, count int) (*Report, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "batch.evaluate", trace.WithAttributes(
		attribute.Int("batch.size", count),
		attribute.String("batch.mode", e.cfg.Mode.String()),
		attribute.String("batch.platform", e.cfg.Platform.String()),
	))
	defer span.End()

	pool := workpool.New(ctx, e.cfg.Concurrency)
	defer pool.Close()
	span.SetAttributes(attribute.Int("batch.concurrency", pool.Limit()))

	e.logger.Info("Starting batch",
		zap.Int("size", count),
		zap.Stringer("mode", e.cfg.Mode),
		zap.Stringer("platform", e.cfg.Platform),
		zap.Int("concurrency", pool.Limit()))

	items := make([]Item, count)
	for i := range items {
		items[i] = Item{Index: i, Outcome: Skipped}
	}

	var runErr error
	for i := range count {
		err := workpool.Scatter(ctx, pool,
			func(ctx context.Context) (Item, error) {
				return e.evaluateItem(ctx, i), nil
			},
			func(ctx context.Context, item Item, err error) error {
				if err != nil {
					item = Item{Index: i, Outcome: Failed, Err: err}
				}
				items[i] = item
				e.record(&item)
				return nil
			},
		)
		if err != nil {
			runErr = err
			break
		}
	}

	// In-flight items finish quickly once ctx is done; keep their results.
	if err := pool.GatherAll(context.WithoutCancel(ctx)); err != nil && runErr == nil {
		runErr = err
	}
	if runErr == nil {
		runErr = ctx.Err()
	}
	if runErr != nil {
		for i := range items {
			if items[i].Outcome == Skipped {
				items[i].Err = runErr
			}
		}
	}

	report := &Report{
		Items:   items,
		Summary: summarize(items, e.cfg.Platform),
		Elapsed: time.Since(start),
	}
	span.SetAttributes(
		attribute.Int("batch.schedulable", report.Summary.Schedulable),
		attribute.Int("batch.missed", report.Summary.Missed),
		attribute.Int("batch.unknown", report.Summary.Unknown),
		attribute.Int("batch.failed", report.Summary.Failed),
		attribute.Int("batch.skipped", report.Summary.Skipped),
	)
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		e.logger.Warn("Batch interrupted",
			zap.Int("skipped", report.Summary.Skipped),
			zap.Duration("duration", report.Elapsed),
			zap.Error(runErr))
	} else {
		e.logger.Info("Finished batch",
			zap.Int("schedulable", report.Summary.Schedulable),
			zap.Int("missed", report.Summary.Missed),
			zap.Int("unknown", report.Summary.Unknown),
			zap.Int("failed", report.Summary.Failed),
			zap.Duration("duration", report.Elapsed))
	}
	return report, runErr
}

func (e *evaluator) record(item *Item) {
	e.cfg.Metrics.observe(item)
	if item.Outcome == Failed {
		e.logger.Warn("Task set evaluation failed",
			zap.Int("index", item.Index),
			zap.Error(item.Err))
		return
	}
	e.logger.Debug("Evaluated task set",
		zap.Int("index", item.Index),
		zap.Stringer("outcome", item.Outcome),
		zap.Duration("duration", item.Elapsed))
}

func (e *evaluator) evaluateItem(ctx context.Context, i int) (item Item) {
	e.cfg.Metrics.start()
	defer e.cfg.Metrics.finish()

	ctx, span := e.tracer.Start(ctx, "batch.item", trace.WithAttributes(attribute.Int("item.index", i)))
	defer span.End()

	start := time.Now()
	item = Item{Index: i}
	defer func() {
		item.Elapsed = time.Since(start)
		span.SetAttributes(attribute.String("item.outcome", item.Outcome.String()))
		if item.Err != nil && item.Outcome == Failed {
			span.RecordError(item.Err)
			span.SetStatus(codes.Error, item.Err.Error())
		}
	}()

	tasks, err := e.source(ctx, i)
	if err == nil {
		err = simrt.TaskSet(tasks).Validate()
	}
	if err != nil {
		item.Outcome, item.Err = Failed, err
		return item
	}
	item.Tasks = tasks
	item.Utilization = simrt.TaskSet(tasks).TotalUtilization()
	span.SetAttributes(
		attribute.Int("item.tasks", len(tasks)),
		attribute.Float64("item.utilization", item.Utilization.Float64()),
	)

	if e.cfg.Mode.analyzes() {
		item.Guarantee = e.cfg.Analyzer(tasks, e.cfg.Platform)
		item.Analyzed = true
		span.SetAttributes(attribute.String("item.guarantee", item.Guarantee.String()))
	}
	guaranteed := item.Analyzed && item.Guarantee == simrt.GuaranteedSchedulable
	if !e.cfg.Mode.simulates() || (guaranteed && e.cfg.SkipGuaranteed) {
		item.Outcome = Unknown
		if guaranteed {
			item.Outcome = Schedulable
		}
		return item
	}

	res, err := simrt.Simulate(ctx, tasks, e.cfg.Platform, e.cfg.SimOptions...)
	item.Simulation = res
	switch {
	case errors.Is(err, simrt.ErrHorizonExhausted):
		item.Outcome, item.Err = Unknown, err
	case err != nil:
		item.Outcome, item.Err = Failed, err
	case res.Verdict == simrt.VerdictDeadlineMiss:
		item.Outcome = Missed
		if guaranteed {
			e.logger.Error("Sufficient test contradicted by simulation",
				zap.Int("index", i),
				zap.Stringer("miss", res.FirstMiss),
				zap.Stringer("platform", e.cfg.Platform))
		}
	case res.Verdict == simrt.VerdictSchedulable:
		item.Outcome = Schedulable
	default:
		item.Outcome = Unknown
	}
	return item
}
