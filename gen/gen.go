// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package gen generates random task sets for schedulability experiments.
//
// Every function that consumes randomness takes an explicit *rand.Rand, and
// a [Generator] owns one, so a fixed seed reproduces a whole experiment.
package gen

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/unccx/SimRT"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultGranularity is the number of grains per time unit used when a
// [Config] leaves Granularity zero.
const DefaultGranularity = 1000

// PeriodDistribution selects how periods are drawn from [PeriodMin,
// PeriodMax].
type PeriodDistribution uint8

const (
	Uniform PeriodDistribution = iota
	LogUniform
)

func (d PeriodDistribution) String() string {
	switch d {
	case Uniform:
		return "uniform"
	case LogUniform:
		return "log-uniform"
	default:
		return fmt.Sprintf("PeriodDistribution(%d)", uint8(d))
	}
}

func (d *PeriodDistribution) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "uniform", "":
		*d = Uniform
	case "log-uniform", "loguniform":
		*d = LogUniform
	default:
		return ErrInvalidConfig.Detail("unknown period distribution %q", text)
	}
	return nil
}

// DeadlineModel selects how deadlines relate to periods.
type DeadlineModel uint8

const (
	Implicit DeadlineModel = iota
	Constrained
)

func (m DeadlineModel) String() string {
	switch m {
	case Implicit:
		return "implicit"
	case Constrained:
		return "constrained"
	default:
		return fmt.Sprintf("DeadlineModel(%d)", uint8(m))
	}
}

func (m *DeadlineModel) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "implicit", "":
		*m = Implicit
	case "constrained":
		*m = Constrained
	default:
		return ErrInvalidConfig.Detail("unknown deadline model %q", text)
	}
	return nil
}

// Config describes the task sets a [Generator] produces.
type Config struct {
	// Count is the number of tasks per set.
	Count int
	// Utilization is the total utilization of each set. When zero,
	// SystemUtilization times the total speed of Platform is used instead.
	Utilization       float64
	SystemUtilization float64
	// Platform bounds task utilizations by its fastest speed and scales
	// SystemUtilization. It may be nil when neither is needed.
	Platform *simrt.Platform

	// Periods are integers in [PeriodMin, PeriodMax], unless PeriodChoices
	// is non-empty, in which case they are picked uniformly from it.
	PeriodMin, PeriodMax int64
	PeriodChoices        []int64
	PeriodDistribution   PeriodDistribution

	Deadlines DeadlineModel
	Kind      simrt.Kind
	Algorithm Algorithm

	// MaxTaskUtilization caps each task's utilization. Zero means the
	// smaller of 1 and the platform's fastest speed. It may not exceed 1,
	// since a task's C may not exceed its deadline.
	MaxTaskUtilization float64
	// Granularity is the number of grains per time unit. Execution times and
	// constrained deadlines are multiples of one grain.
	Granularity int64
	// FirstID is the ID of the first generated task. Zero means 1.
	FirstID uint64
}

func (c *Config) normalize() error {
	if c.Granularity == 0 {
		c.Granularity = DefaultGranularity
	}
	if c.FirstID == 0 {
		c.FirstID = 1
	}
	if c.MaxTaskUtilization == 0 {
		c.MaxTaskUtilization = 1
		if c.Platform != nil {
			c.MaxTaskUtilization = min(1, c.Platform.FastestSpeed().Float64())
		}
	}

	switch {
	case c.Count < 0:
		return ErrInvalidConfig.Detail("task count %d", c.Count)
	case c.Utilization < 0 || c.SystemUtilization < 0:
		return ErrInvalidConfig.Detail("negative utilization")
	case c.Utilization == 0 && c.SystemUtilization > 0 && c.Platform == nil:
		return ErrInvalidConfig.Detail("system utilization needs a platform")
	case c.Granularity < 0:
		return ErrInvalidConfig.Detail("granularity %d", c.Granularity)
	case !(c.MaxTaskUtilization > 0) || c.MaxTaskUtilization > 1:
		return ErrInvalidConfig.Detail("task utilization cap %g outside (0, 1]", c.MaxTaskUtilization)
	case c.Kind != simrt.Periodic && c.Kind != simrt.Sporadic:
		return ErrInvalidConfig.Detail("unknown task kind %v", c.Kind)
	case c.Deadlines != Implicit && c.Deadlines != Constrained:
		return ErrInvalidConfig.Detail("unknown deadline model %v", c.Deadlines)
	case c.PeriodDistribution != Uniform && c.PeriodDistribution != LogUniform:
		return ErrInvalidConfig.Detail("unknown period distribution %v", c.PeriodDistribution)
	}
	if len(c.PeriodChoices) > 0 {
		for _, p := range c.PeriodChoices {
			if p < 1 {
				return ErrInvalidConfig.Detail("period choice %d", p)
			}
		}
	} else if c.PeriodMin < 1 || c.PeriodMax < c.PeriodMin {
		return ErrInvalidConfig.Detail("period bounds [%d, %d]", c.PeriodMin, c.PeriodMax)
	}
	if c.Algorithm > UFitting {
		return ErrInvalidConfig.Detail("unknown utilization algorithm %v", c.Algorithm)
	}
	return nil
}

// TotalUtilization returns the utilization each generated set aims for.
func (c *Config) TotalUtilization() float64 {
	if c.Utilization > 0 || c.Platform == nil {
		return c.Utilization
	}
	return c.SystemUtilization * c.Platform.TotalSpeed().Float64()
}

// Option configures a [Generator].
type Option func(*Generator)

// WithSeed makes the generator reproducible.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.rng = NewRand(&seed)
	}
}

// WithRand makes the generator draw from rng.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) {
		g.rng = rng
	}
}

// Generator produces task sets according to a [Config]. It is not safe for
// concurrent use; give each goroutine its own.
type Generator struct {
	cfg    Config
	rng    *rand.Rand
	nextID uint64
}

// New validates cfg and returns a generator. Without [WithSeed] or
// [WithRand] it is seeded from runtime entropy.
func New(cfg Config, opts ...Option) (*Generator, error) {
	cfg.PeriodChoices = append([]int64(nil), cfg.PeriodChoices...)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	g := &Generator{cfg: cfg, nextID: cfg.FirstID}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = NewRand(nil)
	}
	return g, nil
}

// Config returns the normalized configuration.
func (g *Generator) Config() Config { return g.cfg }

// Rand returns the generator's source of randomness, for use with [Select],
// [SelectByUtilization], and [Arrivals].
func (g *Generator) Rand() *rand.Rand { return g.rng }

// Generate returns a task set of cfg.Count tasks whose utilizations, split
// by cfg.Algorithm, sum to the configured total up to rounding to the grain.
func (g *Generator) Generate() ([]*simrt.Task, error) {
	total := g.cfg.TotalUtilization()
	if g.cfg.Count == 0 {
		return nil, nil
	}
	u, err := g.cfg.Algorithm.Utilizations(g.rng, total, g.cfg.Count, g.cfg.MaxTaskUtilization)
	if err != nil {
		return nil, err
	}
	return g.tasks(u)
}

// Pool returns n tasks with utilizations drawn uniformly up to the task
// utilization cap, to be drawn from with [Select] or
// [SelectByUtilization].
func (g *Generator) Pool(n int) ([]*simrt.Task, error) {
	u, err := UniformUtilizations(g.rng, n, g.cfg.MaxTaskUtilization)
	if err != nil {
		return nil, err
	}
	return g.tasks(u)
}

func (g *Generator) tasks(utilizations []float64) ([]*simrt.Task, error) {
	tasks := make([]*simrt.Task, len(utilizations))
	for i, u := range utilizations {
		t, err := g.task(u)
		if err != nil {
			return nil, err
		}
		tasks[i] = t
	}
	return tasks, nil
}

func (g *Generator) task(u float64) (*simrt.Task, error) {
	grain := g.cfg.Granularity
	period := g.period()
	// Lengths in grains.
	t := period * grain
	c := min(max(int64(math.Round(float64(t)*u)), 1), t)
	d := t
	if g.cfg.Deadlines == Constrained {
		d = c + g.rng.Int64N(t-c+1)
	}

	id := g.nextID
	g.nextID++
	return simrt.NewTask(id, g.cfg.Kind, simrt.Frac(c, grain), simrt.Frac(d, grain), simrt.Int(period))
}

func (g *Generator) period() int64 {
	if choices := g.cfg.PeriodChoices; len(choices) > 0 {
		return choices[g.rng.IntN(len(choices))]
	}
	lo, hi := g.cfg.PeriodMin, g.cfg.PeriodMax
	if g.cfg.PeriodDistribution == LogUniform {
		dist := distuv.Uniform{
			Min: math.Log(float64(lo)),
			Max: math.Log(float64(hi + 1)),
			Src: distSource{g.rng},
		}
		return min(max(int64(math.Exp(dist.Rand())), lo), hi)
	}
	return lo + g.rng.Int64N(hi-lo+1)
}
