// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/unccx/SimRT"
	"github.com/unccx/SimRT/batch"
	"github.com/unccx/SimRT/gen"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is an experiment file.
type Config struct {
	Platform  PlatformConfig  `yaml:"platform"`
	Generator GeneratorConfig `yaml:"generator"`
	// Sets is the number of task sets to generate and evaluate.
	Sets int `yaml:"sets"`
	// Seed makes the experiment reproducible. When absent one is drawn and
	// logged.
	Seed           *uint64          `yaml:"seed"`
	Mode           string           `yaml:"mode"`
	Test           string           `yaml:"test"`
	SkipGuaranteed bool             `yaml:"skip_guaranteed"`
	Concurrency    int              `yaml:"concurrency"`
	Simulation     SimulationConfig `yaml:"simulation"`
	Log            LogConfig        `yaml:"log"`
}

type PlatformConfig struct {
	// Speeds are rationals such as "1", "0.5", or "2/3", one per processor.
	Speeds []string `yaml:"speeds"`
}

type GeneratorConfig struct {
	Tasks              int     `yaml:"tasks"`
	Utilization        float64 `yaml:"utilization"`
	SystemUtilization  float64 `yaml:"system_utilization"`
	PeriodMin          int64   `yaml:"period_min"`
	PeriodMax          int64   `yaml:"period_max"`
	PeriodChoices      []int64 `yaml:"period_choices"`
	PeriodDistribution string  `yaml:"period_distribution"`
	Deadlines          string  `yaml:"deadlines"`
	Kind               string  `yaml:"kind"`
	Algorithm          string  `yaml:"algorithm"`
	MaxTaskUtilization float64 `yaml:"max_task_utilization"`
	Granularity        int64   `yaml:"granularity"`
}

type SimulationConfig struct {
	Horizon             string `yaml:"horizon"`
	MaxEvents           int    `yaml:"max_events"`
	HyperperiodMultiple int    `yaml:"hyperperiod_multiple"`
	FullHorizon         bool   `yaml:"full_horizon"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// ReadConfig decodes an experiment, rejecting unknown fields.
func ReadConfig(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding experiment: %w", err)
	}
	return &cfg, nil
}

func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadConfig(f)
}

func (c *Config) platform() (*simrt.Platform, error) {
	speeds := make([]simrt.Rat, len(c.Platform.Speeds))
	for i, s := range c.Platform.Speeds {
		speed, err := simrt.ParseRat(s)
		if err != nil {
			return nil, fmt.Errorf("%w: processor %d: %w", simrt.ErrInvalidPlatform, i, err)
		}
		speeds[i] = speed
	}
	return simrt.NewHeterogeneousPlatform(speeds...)
}

func (c *Config) generator(platform *simrt.Platform) (gen.Config, error) {
	g := c.Generator
	cfg := gen.Config{
		Count:              g.Tasks,
		Utilization:        g.Utilization,
		SystemUtilization:  g.SystemUtilization,
		Platform:           platform,
		PeriodMin:          g.PeriodMin,
		PeriodMax:          g.PeriodMax,
		PeriodChoices:      g.PeriodChoices,
		MaxTaskUtilization: g.MaxTaskUtilization,
		Granularity:        g.Granularity,
	}
	if err := cfg.PeriodDistribution.UnmarshalText([]byte(g.PeriodDistribution)); err != nil {
		return cfg, err
	}
	if err := cfg.Deadlines.UnmarshalText([]byte(g.Deadlines)); err != nil {
		return cfg, err
	}
	if g.Kind != "" {
		kind, err := simrt.ParseKind(g.Kind)
		if err != nil {
			return cfg, err
		}
		cfg.Kind = kind
	}
	if g.Algorithm != "" {
		alg, err := gen.ParseAlgorithm(g.Algorithm)
		if err != nil {
			return cfg, err
		}
		cfg.Algorithm = alg
	}
	// Surface configuration errors before any worker starts.
	if _, err := gen.New(cfg, gen.WithSeed(0)); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) simOptions() ([]simrt.SimOption, error) {
	s := c.Simulation
	var opts []simrt.SimOption
	if s.Horizon != "" {
		h, err := simrt.ParseRat(s.Horizon)
		if err != nil {
			return nil, fmt.Errorf("%w: horizon: %w", simrt.ErrInvalidOption, err)
		}
		opts = append(opts, simrt.WithHorizon(h))
	}
	if s.MaxEvents != 0 {
		opts = append(opts, simrt.WithMaxEvents(s.MaxEvents))
	}
	if s.HyperperiodMultiple != 0 {
		opts = append(opts, simrt.WithHyperperiodMultiple(s.HyperperiodMultiple))
	}
	if s.FullHorizon {
		opts = append(opts, simrt.WithFullHorizon())
	}
	return opts, nil
}

func (c *Config) batch(platform *simrt.Platform, logger *zap.Logger) (batch.Config, error) {
	cfg := batch.Config{
		Platform:       platform,
		Concurrency:    c.Concurrency,
		SkipGuaranteed: c.SkipGuaranteed,
		Logger:         logger,
	}
	if c.Mode != "" {
		mode, err := batch.ParseMode(c.Mode)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = mode
	}
	test, err := simrt.LookupTest(c.Test)
	if err != nil {
		return cfg, err
	}
	cfg.Analyzer = test
	cfg.SimOptions, err = c.simOptions()
	return cfg, err
}

func (c *Config) logger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if c.Log.Level != "" {
		level, err := zap.ParseAtomicLevel(c.Log.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}
	return zc.Build()
}
