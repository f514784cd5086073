// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
	"github.com/unccx/SimRT"
)

// Outcome classifies an evaluated task set.
type Outcome uint8

const (
	// Skipped items were never evaluated because the batch was canceled.
	Skipped Outcome = iota
	// Schedulable items were shown to meet every deadline, by simulation
	// or, without one, by the sufficient test.
	Schedulable
	// Missed items had a deadline miss in simulation.
	Missed
	// Unknown items could not be decided: the simulation stopped early, or
	// the sufficient test alone did not guarantee them.
	Unknown
	// Failed items had an invalid task set or a panic during evaluation.
	Failed
)

var outcomeNames = [...]string{
	Skipped:     "skipped",
	Schedulable: "schedulable",
	Missed:      "missed",
	Unknown:     "unknown",
	Failed:      "failed",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

// Item is the result of evaluating one task set.
type Item struct {
	Index int
	Tasks []*simrt.Task
	// Utilization is the total utilization of Tasks.
	Utilization simrt.Rat
	// Simulation is nil unless the simulator ran.
	Simulation *simrt.SimulationResult
	Guarantee  simrt.Guarantee
	Analyzed   bool
	Outcome    Outcome
	Err        error
	Elapsed    time.Duration
}

// Report holds every item of a batch in input order.
type Report struct {
	Items   []Item
	Summary Summary
	Elapsed time.Duration
}

// NumBuckets is the number of utilization buckets in a [Summary].
const NumBuckets = 10

// Bucket aggregates the items whose normalized utilization falls in
// [Low, High). The last bucket also holds everything at or above its Low.
type Bucket struct {
	Low, High   float64
	Total       int
	Schedulable int
	Guaranteed  int
}

// Acceptance returns the fraction of the bucket's items found schedulable.
func (b Bucket) Acceptance() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Schedulable) / float64(b.Total)
}

// Summary aggregates a batch. Utilizations are normalized by the platform's
// total speed and exclude items without a task set.
type Summary struct {
	Total       int
	Schedulable int
	Missed      int
	Unknown     int
	Failed      int
	Skipped     int
	Guaranteed  int

	MeanUtilization   float64
	MedianUtilization float64
	P90Utilization    float64

	Buckets [NumBuckets]Bucket
}

// Acceptance returns the acceptance ratio of bucket i.
func (s *Summary) Acceptance(i int) float64 { return s.Buckets[i].Acceptance() }

// AcceptanceRatio returns the fraction of evaluated items found schedulable.
func (s *Summary) AcceptanceRatio() float64 {
	evaluated := s.Total - s.Skipped - s.Failed
	if evaluated == 0 {
		return 0
	}
	return float64(s.Schedulable) / float64(evaluated)
}

func summarize(items []Item, platform *simrt.Platform) Summary {
	var s Summary
	for i := range s.Buckets {
		s.Buckets[i].Low = float64(i) / NumBuckets
		s.Buckets[i].High = float64(i+1) / NumBuckets
	}

	capacity := platform.TotalSpeed()
	var utils stats.Float64Data
	for i := range items {
		item := &items[i]
		s.Total++
		switch item.Outcome {
		case Schedulable:
			s.Schedulable++
		case Missed:
			s.Missed++
		case Unknown:
			s.Unknown++
		case Failed:
			s.Failed++
		case Skipped:
			s.Skipped++
		}
		guaranteed := item.Analyzed && item.Guarantee == simrt.GuaranteedSchedulable
		if guaranteed {
			s.Guaranteed++
		}
		if item.Tasks == nil || item.Outcome == Skipped || item.Outcome == Failed {
			continue
		}

		u := item.Utilization.Quo(capacity).Float64()
		utils = append(utils, u)
		b := &s.Buckets[min(max(int(u*NumBuckets), 0), NumBuckets-1)]
		b.Total++
		if item.Outcome == Schedulable {
			b.Schedulable++
		}
		if guaranteed {
			b.Guaranteed++
		}
	}

	if len(utils) > 0 {
		s.MeanUtilization, _ = stats.Mean(utils)
		s.MedianUtilization, _ = stats.Median(utils)
		s.P90Utilization, _ = stats.Percentile(utils, 90)
	}
	return s
}

func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s task sets: %s schedulable, %s missed, %s unknown, %s failed, %s skipped (%s guaranteed)\n",
		humanize.Comma(int64(s.Total)),
		humanize.Comma(int64(s.Schedulable)),
		humanize.Comma(int64(s.Missed)),
		humanize.Comma(int64(s.Unknown)),
		humanize.Comma(int64(s.Failed)),
		humanize.Comma(int64(s.Skipped)),
		humanize.Comma(int64(s.Guaranteed)))
	fmt.Fprintf(&b, "acceptance %s%%, normalized utilization mean %s median %s p90 %s\n",
		humanize.FormatFloat("#,###.##", 100*s.AcceptanceRatio()),
		humanize.FormatFloat("#.###", s.MeanUtilization),
		humanize.FormatFloat("#.###", s.MedianUtilization),
		humanize.FormatFloat("#.###", s.P90Utilization))
	for _, bucket := range s.Buckets {
		if bucket.Total == 0 {
			continue
		}
		fmt.Fprintf(&b, "  [%.1f, %.1f) %s sets, %s schedulable, %s guaranteed\n",
			bucket.Low, bucket.High,
			humanize.Comma(int64(bucket.Total)),
			humanize.Comma(int64(bucket.Schedulable)),
			humanize.Comma(int64(bucket.Guaranteed)))
	}
	return b.String()
}
