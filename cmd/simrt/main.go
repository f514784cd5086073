// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Command simrt runs a schedulability experiment described by a YAML file:
// it generates random task sets, evaluates them on the configured platform,
// and prints a summary.
//
//	simrt -config experiment.yaml [-trace]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/unccx/SimRT/batch"
	"github.com/unccx/SimRT/gen"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "experiment file (YAML)")
	traceSpans := flag.Bool("trace", false, "write OpenTelemetry spans to stderr")
	flag.Parse()
	if *configPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := runFile(ctx, *configPath, *traceSpans, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "simrt:", err)
		os.Exit(1)
	}
}

func runFile(ctx context.Context, path string, traceSpans bool, out io.Writer) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	logger, err := cfg.logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	var tp trace.TracerProvider
	if traceSpans {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return err
		}
		sdk := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		defer func() { _ = sdk.Shutdown(context.Background()) }()
		tp = sdk
	}
	return run(ctx, cfg, logger, tp, out)
}

// run evaluates the experiment and writes its summary to out. A nil tp uses
// the global tracer provider.
func run(ctx context.Context, cfg *Config, logger *zap.Logger, tp trace.TracerProvider, out io.Writer) error {
	platform, err := cfg.platform()
	if err != nil {
		return err
	}
	genCfg, err := cfg.generator(platform)
	if err != nil {
		return err
	}
	batchCfg, err := cfg.batch(platform, logger)
	if err != nil {
		return err
	}
	batchCfg.TracerProvider = tp

	var seed uint64
	if cfg.Seed != nil {
		seed = *cfg.Seed
	} else {
		seed = gen.NewRand(nil).Uint64()
		logger.Info("Drew experiment seed", zap.Uint64("seed", seed))
	}

	report, err := batch.EvaluateGenerated(ctx, cfg.Sets, batch.GeneratorSource(genCfg, seed), batchCfg)
	if report != nil {
		fmt.Fprintf(out, "platform %v, mode %v, seed %d\n", platform, batchCfg.Mode, seed)
		fmt.Fprint(out, report.Summary.String())
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("interrupted: %w", err)
	}
	return err
}
