// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package simrt

import (
	"context"
	"fmt"
	"iter"

	"github.com/addrummond/heap"
	"github.com/unccx/SimRT/internal/readyq"
)

// Verdict is the outcome of a simulation.
type Verdict uint8

const (
	// VerdictUnknown means the run stopped early, see [ErrHorizonExhausted].
	VerdictUnknown Verdict = iota
	// VerdictSchedulable means the horizon was reached without a miss.
	VerdictSchedulable
	// VerdictDeadlineMiss means some job missed its deadline.
	VerdictDeadlineMiss
)

func (v Verdict) String() string {
	switch v {
	case VerdictUnknown:
		return "unknown"
	case VerdictSchedulable:
		return "schedulable"
	case VerdictDeadlineMiss:
		return "deadline-miss"
	default:
		return fmt.Sprintf("Verdict(%d)", uint8(v))
	}
}

// Miss identifies the first job that missed its deadline.
type Miss struct {
	TaskID     uint64
	Job        uint64 // per-task job number, starting at 0
	Release    Rat
	Deadline   Rat
	DetectedAt Rat
	Remaining  Rat // work still outstanding at the deadline
}

func (m *Miss) String() string {
	return fmt.Sprintf("task %d job %d released at %v missed its deadline %v with %v work remaining",
		m.TaskID, m.Job, m.Release, m.Deadline, m.Remaining)
}

// Stats counts what happened during a simulation.
type Stats struct {
	Events      int
	Released    int
	Completed   int
	Preemptions int
	Migrations  int
}

// SimulationResult is returned by [Simulate].
type SimulationResult struct {
	Verdict     Verdict
	Schedulable bool
	FirstMiss   *Miss
	Horizon     Rat
	// End is the simulated time the run reached.
	End   Rat
	Stats Stats
	// Trace holds the last schedule segments when [WithTrace] was given.
	Trace []Segment
}

// ctxPollInterval is how many events pass between context checks.
const ctxPollInterval = 1024

// DefaultHorizon returns the horizon [Simulate] uses when none is given:
//
//   - the hyperperiod H, when every task is periodic with D <= T;
//   - H plus the largest deadline, when some periodic task has D > T;
//   - multiple hyperperiods plus the largest deadline when sporadic tasks are
//     present, extended to cover the last explicit arrival's deadline.
//
// When some task omits its release at time zero the releases are no longer
// synchronous, and the periodic cases grow to the asynchronous feasibility
// interval O_max + 2H, O_max being the latest first release, rounded up to a
// multiple of H. Sporadic runs then cover at least that many hyperperiods.
func DefaultHorizon(tasks []*Task, multiple int) Rat {
	set := TaskSet(tasks)
	if len(set) == 0 {
		return Rat{}
	}
	var (
		sporadic    bool
		constrained = true
		dmax, last  Rat
		omax        Rat
	)
	for _, t := range set {
		if t.kind == Sporadic {
			sporadic = true
			if n := len(t.arrivals); n > 0 {
				last = MaxRat(last, t.arrivals[n-1].Add(t.d))
			}
		}
		if t.skipRelease && t.arrivals == nil {
			omax = MaxRat(omax, t.t)
		}
		constrained = constrained && t.ConstrainedDeadline()
		dmax = MaxRat(dmax, t.d)
	}
	h := set.Hyperperiod()
	periods := int64(1)
	if omax.Sign() > 0 {
		// Periods divide H, so this is 3 for offsets no later than H.
		periods = 2 + omax.Quo(h).Ceil().Num().Int64()
	}
	switch {
	case sporadic:
		k := max(int64(multiple), periods, 1)
		return MaxRat(h.Mul(Int(k)).Add(dmax), last)
	case !constrained:
		return h.Mul(Int(periods)).Add(dmax)
	default:
		return h.Mul(Int(periods))
	}
}

// Simulate runs a preemptive, job-level migratory Global-EDF schedule of tasks
// on platform and reports whether any job misses its deadline before the
// horizon.
//
// At every instant the (up to) m ready jobs with the earliest absolute
// deadlines run, the k-th most urgent on the k-th fastest processor. All
// arithmetic is exact, so the verdict does not depend on rounding.
//
// Simulate fails with [ErrInvalidTaskParameters] or [ErrInvalidPlatform] for
// bad input. If the event budget runs out or ctx is done first, it returns a
// result with [VerdictUnknown] together with an error wrapping
// [ErrHorizonExhausted]. Simulate is deterministic: the same input always
// yields the same result.
//
// On a single processor, a set of periodic tasks that all release at time
// zero, have D <= T, and do not overload the processor is schedulable exactly
// when no deadline is missed in the first busy period. Such runs therefore
// end with [VerdictSchedulable] at the first idle instant, reported as End,
// unless [WithFullHorizon] is given.
func Simulate(ctx context.Context, tasks []*Task, platform *Platform, opts ...SimOption) (*SimulationResult, error) {
	if platform == nil {
		return nil, ErrInvalidPlatform.Detail("nil platform")
	}
	set := TaskSet(tasks)
	if err := set.Validate(); err != nil {
		return nil, err
	}
	cfg := defaultSimConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	horizon := cfg.horizon
	if !cfg.hasHorizon {
		horizon = DefaultHorizon(set, cfg.hyperperiodMultiple)
	}

	e := newEngine(set, platform, horizon, &cfg)
	e.stopWhenIdle = !cfg.fullHorizon && decidedByBusyPeriod(set, platform)
	defer e.close()
	return e.run(ctx)
}

func decidedByBusyPeriod(tasks TaskSet, platform *Platform) bool {
	if platform.Len() != 1 || len(tasks) == 0 {
		return false
	}
	for _, t := range tasks {
		if t.kind != Periodic || t.skipRelease || !t.ConstrainedDeadline() {
			return false
		}
	}
	return tasks.TotalUtilization().Cmp(platform.FastestSpeed()) <= 0
}

type releaseCursor struct {
	next func() (Rat, bool)
	stop func()
}

type engine struct {
	tasks   []*Task
	procs   []Processor // by decreasing speed
	groups  []int       // groups[k] is one past the last slot with procs[k]'s speed
	horizon Rat
	cfg     *simConfig

	now     Rat
	events  heap.Heap[event, heap.Min]
	ready   readyq.Queue[*job]
	running []*job // by slot
	cursors []releaseCursor
	jobNums []uint64
	seq     uint64
	stats   Stats
	trace   *traceRecorder

	stopWhenIdle bool

	prev     []*job
	selected []*job
}

func newEngine(tasks []*Task, platform *Platform, horizon Rat, cfg *simConfig) *engine {
	m := platform.Len()
	e := &engine{
		tasks:    tasks,
		procs:    platform.byspeed,
		groups:   make([]int, m),
		horizon:  horizon,
		cfg:      cfg,
		running:  make([]*job, m),
		cursors:  make([]releaseCursor, len(tasks)),
		jobNums:  make([]uint64, len(tasks)),
		trace:    newTraceRecorder(cfg.traceLimit, m),
		prev:     make([]*job, m),
		selected: make([]*job, 0, m),
	}
	for k := m - 1; k >= 0; k-- {
		if k+1 < m && e.procs[k].Speed.Equal(e.procs[k+1].Speed) {
			e.groups[k] = e.groups[k+1]
		} else {
			e.groups[k] = k + 1
		}
	}
	for i, t := range tasks {
		next, stop := iter.Pull(t.Releases(horizon))
		e.cursors[i] = releaseCursor{next: next, stop: stop}
	}
	return e
}

func (e *engine) close() {
	for _, c := range e.cursors {
		if c.stop != nil {
			c.stop()
		}
	}
}

func (e *engine) push(ev event) {
	e.seq++
	ev.seq = e.seq
	heap.PushOrderable(&e.events, ev)
}

func (e *engine) run(ctx context.Context) (*SimulationResult, error) {
	for i := range e.tasks {
		e.pullRelease(i)
	}
	for {
		ev, ok := heap.Peek(&e.events)
		if !ok || e.horizon.Less(ev.time) {
			break
		}
		if err := e.checkBudget(ctx); err != nil {
			return e.result(VerdictUnknown, nil), err
		}
		ev, _ = heap.PopOrderable(&e.events)
		e.stats.Events++
		e.advance(ev.time)

		switch ev.kind {
		case completionEvent:
			e.complete(ev)
		case deadlineEvent:
			if miss := e.checkDeadline(ev); miss != nil {
				return e.result(VerdictDeadlineMiss, miss), nil
			}
		case releaseEvent:
			e.release(ev)
		}

		// Dispatch once per instant, after every event at this time has been
		// handled.
		if next, ok := heap.Peek(&e.events); ok && next.time.Equal(e.now) {
			continue
		}
		e.dispatch()
		if e.stopWhenIdle && e.idle() {
			return e.result(VerdictSchedulable, nil), nil
		}
	}
	e.advance(e.horizon)
	return e.result(VerdictSchedulable, nil), nil
}

func (e *engine) checkBudget(ctx context.Context) error {
	if limit := e.cfg.maxEvents; limit > 0 && e.stats.Events >= limit {
		return ErrHorizonExhausted.Detail("event budget of %d spent at time %v of %v", limit, e.now, e.horizon)
	}
	if e.stats.Events%ctxPollInterval == 0 && ctx.Err() != nil {
		return fmt.Errorf("%w at time %v of %v: %w", ErrHorizonExhausted, e.now, e.horizon, context.Cause(ctx))
	}
	return nil
}

func (e *engine) result(v Verdict, miss *Miss) *SimulationResult {
	return &SimulationResult{
		Verdict:     v,
		Schedulable: v == VerdictSchedulable,
		FirstMiss:   miss,
		Horizon:     e.horizon,
		End:         e.now,
		Stats:       e.stats,
		Trace:       e.trace.segments(),
	}
}

// advance moves time forward to t, charging every running job for the work
// its processor performed in the meantime.
func (e *engine) advance(t Rat) {
	dt := t.Sub(e.now)
	switch dt.Sign() {
	case -1:
		panic(fmt.Sprintf("simulated time moved backward from %v to %v", e.now, t))
	case 0:
		return
	}
	for k, j := range e.running {
		if j == nil {
			continue
		}
		j.remaining = j.remaining.Sub(e.procs[k].Speed.Mul(dt))
		if j.remaining.Sign() < 0 {
			panic(fmt.Sprintf("task %d job %d ran past its completion", j.task.id, j.n))
		}
		e.trace.record(k, e.procs[k].ID, j, e.now, t)
	}
	e.now = t
}

func (e *engine) pullRelease(task int) {
	r, ok := e.cursors[task].next()
	if !ok {
		return
	}
	e.push(event{time: r, kind: releaseEvent, task: task})
}

func (e *engine) release(ev event) {
	t := e.tasks[ev.task]
	j := newJob(t, e.jobNums[ev.task], uint64(e.stats.Released), e.now)
	e.jobNums[ev.task]++
	e.stats.Released++
	e.ready.Push(j)
	e.push(event{time: j.deadline, kind: deadlineEvent, job: j})
	e.pullRelease(ev.task)
}

func (e *engine) complete(ev event) {
	j := ev.job
	if j.completed || ev.epoch != j.epoch {
		return
	}
	if !j.remaining.IsZero() {
		panic(fmt.Sprintf("task %d job %d completed with %v work remaining", j.task.id, j.n, j.remaining))
	}
	j.completed = true
	e.running[j.slot] = nil
	j.slot = -1
	e.stats.Completed++
}

func (e *engine) checkDeadline(ev event) *Miss {
	j := ev.job
	if j.completed {
		return nil
	}
	return &Miss{
		TaskID:     j.task.id,
		Job:        j.n,
		Release:    j.release,
		Deadline:   j.deadline,
		DetectedAt: e.now,
		Remaining:  j.remaining,
	}
}

func (e *engine) idle() bool {
	if e.ready.Len() > 0 {
		return false
	}
	for _, j := range e.running {
		if j != nil {
			return false
		}
	}
	return true
}

// dispatch recomputes the processor assignment at the current instant.
func (e *engine) dispatch() {
	for k, j := range e.running {
		e.prev[k] = j
		e.running[k] = nil
		if j != nil {
			j.next = -1
			e.ready.Push(j)
		}
	}
	e.selected = e.ready.PopN(e.selected[:0], len(e.procs))
	e.assign(e.selected)

	for _, j := range e.prev {
		if j != nil && j.next < 0 {
			j.slot = -1
			j.epoch++
			e.stats.Preemptions++
		}
	}
	for _, j := range e.selected {
		if j.next == j.slot {
			continue
		}
		if j.lastSlot >= 0 && j.lastSlot != j.next {
			e.stats.Migrations++
		}
		j.slot = j.next
		j.lastSlot = j.next
		j.epoch++
		e.push(event{
			time:  e.now.Add(j.remaining.Quo(e.procs[j.slot].Speed)),
			kind:  completionEvent,
			job:   j,
			epoch: j.epoch,
		})
	}
	clear(e.prev)
}

// assign places the jobs of selected, which are in priority order, onto
// processors so that the k-th job gets a processor as fast as the k-th
// fastest. Within a group of equally fast processors a job stays where it is
// running, or returns to where it last ran, whenever that slot is free.
func (e *engine) assign(selected []*job) {
	for a := 0; a < len(selected); {
		b := e.groups[a]
		group := selected[a:min(b, len(selected))]
		for _, j := range group {
			if j.slot >= a && j.slot < b {
				e.place(j, j.slot)
			}
		}
		for _, j := range group {
			if j.next < 0 && j.lastSlot >= a && j.lastSlot < b && e.running[j.lastSlot] == nil {
				e.place(j, j.lastSlot)
			}
		}
		free := a
		for _, j := range group {
			if j.next >= 0 {
				continue
			}
			for e.running[free] != nil {
				free++
			}
			e.place(j, free)
		}
		a = b
	}
}

func (e *engine) place(j *job, slot int) {
	e.running[slot] = j
	j.next = slot
}
