// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package workpool runs tasks in a bounded set of goroutines and hands their
// results back to a single gathering goroutine.
//
// A [TaskFunc] runs in its own goroutine. Its result is passed to the
// [GatherFunc] supplied with it, but only on the goroutine that calls
// [Scatter] or [Pool.GatherAll], so gather functions may
// touch caller state without locking. When the pool is full, Scatter gathers
// completed results until a slot frees up.
package workpool

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/unccx/SimRT/internal/cerr"
	"github.com/unccx/SimRT/internal/state"
)

// ErrTaskPanic is passed to a [GatherFunc] in place of the result of a task
// that panicked. The panic value and stack follow in the error text.
const ErrTaskPanic = cerr.Error("task panicked")

// A TaskFunc computes a result. It must not call [Scatter] on its own pool.
type TaskFunc[T any] func(ctx context.Context) (T, error)

// A GatherFunc consumes the result of a [TaskFunc]. A non-nil return is
// passed back to the caller of the gathering method.
type GatherFunc[T any] func(ctx context.Context, value T, err error) error

type boundGatherFunc func(ctx context.Context) error

// Pool limits how many tasks run at once. It must be used from a single
// gathering goroutine.
type Pool struct {
	ctx        context.Context
	cancel     context.CancelCauseFunc
	limit      int
	inFlight   state.InFlightCounter
	pending    int
	gatherChan chan boundGatherFunc
	wg         sync.WaitGroup
}

// New returns a pool whose tasks receive a context derived from ctx. A limit
// below one means runtime.GOMAXPROCS(0).
func New(ctx context.Context, limit int) *Pool {
	if limit < 1 {
		limit = runtime.GOMAXPROCS(0)
	}
	ctx, cancel := context.WithCancelCause(ctx)
	return &Pool{
		ctx:        ctx,
		cancel:     cancel,
		limit:      limit,
		gatherChan: make(chan boundGatherFunc),
	}
}

func (p *Pool) Limit() int { return p.limit }

// Scatter launches task in a new goroutine once the pool has room, gathering
// completed results while it waits. It first gathers up to two results that
// are already waiting.
//
// Scatter returns an error without launching the task if ctx or the pool's
// context is done, or if a gather function returns an error.
func Scatter[T any](ctx context.Context, p *Pool, task TaskFunc[T], gather GatherFunc[T]) error {
	if task == nil || gather == nil {
		panic("task and gather functions must be non-nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.ctx.Err() != nil {
		return context.Cause(p.ctx)
	}

	for range 2 {
		ok, err := p.gatherOne(ctx, false)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	for !p.inFlight.IncrementIfUnder(p.limit) {
		if _, err := p.gatherOne(ctx, true); err != nil {
			return err
		}
	}

	p.pending++
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		value, err := run(p.ctx, task)

		// Free the slot before posting, so that a gatherer blocked in Scatter
		// can launch as soon as it has received this result.
		p.inFlight.Decrement()

		p.gatherChan <- func(ctx context.Context) error {
			return gather(ctx, value, err)
		}
	}()
	return nil
}

func run[T any](ctx context.Context, task TaskFunc[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value, err = zero, ErrTaskPanic.Detail("%v\n%s", r, debug.Stack())
		}
	}()
	return task(ctx)
}

// GatherAll gathers until no task is pending. Tasks keep running after a ctx
// error is returned; their results remain to be gathered.
func (p *Pool) GatherAll(ctx context.Context) error {
	for {
		ok, err := p.gatherOne(ctx, true)
		if err != nil || !ok {
			return err
		}
	}
}

func (p *Pool) gatherOne(ctx context.Context, block bool) (bool, error) {
	if p.pending == 0 {
		return false, nil
	}
	var gather boundGatherFunc
	if block {
		select {
		case gather = <-p.gatherChan:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	} else {
		select {
		case gather = <-p.gatherChan:
		case <-ctx.Done():
			return false, ctx.Err()
		default:
			return false, nil
		}
	}
	p.pending--
	return true, gather(ctx)
}

// Close cancels the pool's context, discards the results of tasks still
// pending, and waits for their goroutines to exit.
func (p *Pool) Close() {
	p.cancel(context.Canceled)
	for p.pending > 0 {
		<-p.gatherChan
		p.pending--
	}
	p.wg.Wait()
	if !p.inFlight.IsZero() {
		panic("tasks still in flight after Close")
	}
}
