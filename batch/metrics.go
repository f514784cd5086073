// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package batch

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors a batch updates as items
// complete. A nil *Metrics records nothing.
type Metrics struct {
	Outcomes *prometheus.CounterVec
	Duration prometheus.Histogram
	InFlight prometheus.Gauge
}

// NewMetrics registers batch metrics against reg, defaulting to the global
// registry when nil. Registering twice against one registry returns the
// collectors already there.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	outcomes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simrt_batch_items_total",
		Help: "Evaluated task sets, labeled by outcome.",
	}, []string{"outcome"}), "simrt_batch_items_total")
	if err != nil {
		return nil, err
	}
	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simrt_batch_item_duration_seconds",
		Help:    "Wall-clock time spent evaluating one task set.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}), "simrt_batch_item_duration_seconds")
	if err != nil {
		return nil, err
	}
	inFlight, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simrt_batch_items_in_flight",
		Help: "Task sets currently being evaluated.",
	}), "simrt_batch_items_in_flight")
	if err != nil {
		return nil, err
	}

	return &Metrics{Outcomes: outcomes, Duration: duration, InFlight: inFlight}, nil
}

func (m *Metrics) start() {
	if m != nil {
		m.InFlight.Inc()
	}
}

func (m *Metrics) finish() {
	if m != nil {
		m.InFlight.Dec()
	}
}

func (m *Metrics) observe(item *Item) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(item.Outcome.String()).Inc()
	if item.Outcome != Skipped {
		m.Duration.Observe(item.Elapsed.Seconds())
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
