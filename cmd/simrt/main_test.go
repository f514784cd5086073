// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unccx/SimRT"
	"github.com/unccx/SimRT/batch"
	"github.com/unccx/SimRT/gen"
	"go.uber.org/zap"
)

func TestLoadConfig(t *testing.T) {
	chk := require.New(t)
	cfg, err := LoadConfig("testdata/experiment.yaml")
	chk.NoError(err)
	chk.Equal(20, cfg.Sets)
	chk.NotNil(cfg.Seed)
	chk.Equal(uint64(7), *cfg.Seed)

	platform, err := cfg.platform()
	chk.NoError(err)
	chk.Equal("[1 1 1/2]", platform.String())

	genCfg, err := cfg.generator(platform)
	chk.NoError(err)
	chk.Equal(4, genCfg.Count)
	chk.Equal(gen.Constrained, genCfg.Deadlines)
	chk.Equal(gen.UUniFast, genCfg.Algorithm)
	chk.Equal(simrt.Periodic, genCfg.Kind)

	batchCfg, err := cfg.batch(platform, zap.NewNop())
	chk.NoError(err)
	chk.Equal(batch.ModeBoth, batchCfg.Mode)
	chk.Len(batchCfg.SimOptions, 1)
}

func TestReadConfigRejectsUnknownFields(t *testing.T) {
	chk := require.New(t)
	_, err := ReadConfig(strings.NewReader("sets: 3\nplatfrom:\n  speeds: [\"1\"]\n"))
	chk.Error(err)
}

func TestConfigErrors(t *testing.T) {
	chk := require.New(t)
	for name, text := range map[string]string{
		"speed":     "platform: {speeds: [\"fast\"]}\n",
		"no speeds": "platform: {speeds: []}\n",
	} {
		cfg, err := ReadConfig(strings.NewReader(text))
		chk.NoError(err, name)
		_, err = cfg.platform()
		chk.ErrorIs(err, simrt.ErrInvalidPlatform, name)
	}

	cfg, err := ReadConfig(strings.NewReader("platform: {speeds: [\"1\"]}\ngenerator: {tasks: 2, utilization: 0.5, period_min: 1, period_max: 5, algorithm: magic}\n"))
	chk.NoError(err)
	platform, err := cfg.platform()
	chk.NoError(err)
	_, err = cfg.generator(platform)
	chk.ErrorIs(err, gen.ErrInvalidConfig)

	cfg.Generator.Algorithm = ""
	cfg.Mode = "sometimes"
	_, err = cfg.batch(platform, zap.NewNop())
	chk.ErrorIs(err, batch.ErrInvalidConfig)

	cfg.Mode = ""
	cfg.Test = "exact"
	_, err = cfg.batch(platform, zap.NewNop())
	chk.ErrorIs(err, simrt.ErrInvalidOption)

	cfg.Test = ""
	cfg.Generator.Kind = "aperiodic"
	_, err = cfg.generator(platform)
	chk.ErrorIs(err, simrt.ErrInvalidTaskParameters)

	cfg.Generator.Kind = ""
	cfg.Simulation.Horizon = "soon"
	_, err = cfg.batch(platform, zap.NewNop())
	chk.ErrorIs(err, simrt.ErrInvalidOption)
}

func TestRun(t *testing.T) {
	chk := require.New(t)
	cfg, err := LoadConfig("testdata/experiment.yaml")
	chk.NoError(err)

	var out bytes.Buffer
	chk.NoError(run(context.Background(), cfg, zap.NewNop(), nil, &out))
	chk.Contains(out.String(), "platform [1 1 1/2], mode both, seed 7")
	chk.Contains(out.String(), "20 task sets:")

	// The same seed gives the same summary.
	var again bytes.Buffer
	chk.NoError(run(context.Background(), cfg, zap.NewNop(), nil, &again))
	first := strings.SplitN(out.String(), "\n", 3)
	second := strings.SplitN(again.String(), "\n", 3)
	chk.Equal(first[1], second[1])
}
