// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package simrt simulates and analyzes Global-EDF scheduling of real-time task
// sets on identical or uniform (heterogeneous speed) multiprocessors.
//
// A [Task] describes a recurring workload by its worst-case execution
// requirement C, relative deadline D, and period or minimum inter-arrival
// time T. A [Platform] is a fixed set of processors with individual speeds.
// Given both, [Simulate] runs an exact, event-driven, preemptive and
// job-level migratory Global-EDF schedule up to a horizon and reports the
// first deadline miss, if any. [Analyze] and [LoadTest] are sufficient
// schedulability tests that never claim a task set is schedulable when it
// might not be, without simulating it.
//
// All times and amounts of work are exact rationals ([Rat]), so long
// horizons accumulate no rounding error.
//
// Random task set generation lives in package gen, and parallel evaluation of
// many task sets in package batch.
package simrt
