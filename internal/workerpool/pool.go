// Package workerpool runs a bounded number of goroutines against a stream
// of work items. It generalizes the fixed-slice, progress-bar worker pool
// the rest of this codebase uses for one-shot bulk operations into a
// channel-driven pool suitable for a pipeline stage that keeps accepting
// work for the lifetime of a run.
package workerpool

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/lherron/foldermerge/internal/domain"
)

// Counts is the live tally of items this pool has processed. All fields are
// safe to read concurrently with Run via the atomic accessors below.
type Counts struct {
	completed int64
	succeeded int64
	failed    int64
}

func (c *Counts) Completed() int64 { return atomic.LoadInt64(&c.completed) }
func (c *Counts) Succeeded() int64 { return atomic.LoadInt64(&c.succeeded) }
func (c *Counts) Failed() int64    { return atomic.LoadInt64(&c.failed) }

// Fatal, if returned by a worker function, stops the pool immediately and
// is surfaced from Run. Used for errors like a Store going unavailable,
// where continuing to process further items would just fail the same way.
type Fatal struct{ Err error }

func (f *Fatal) Error() string { return f.Err.Error() }
func (f *Fatal) Unwrap() error { return f.Err }

// Pool runs Jobs goroutines (0 = runtime.NumCPU()) each pulling from a
// shared input channel until it closes or the context is cancelled.
type Pool[T any] struct {
	Jobs int
}

// Run drains items, calling fn for each on one of the pool's workers. It
// returns once items is closed and every in-flight call has returned, or as
// soon as any call returns a *Fatal error (in which case remaining queued
// items are drained unprocessed and that error is returned).
func (p *Pool[T]) Run(ctx context.Context, items <-chan T, fn func(context.Context, T) error) (*Counts, error) {
	jobs := p.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	counts := &Counts{}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var fatalOnce sync.Once
	var fatalErr error

	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range items {
				if ctx.Err() != nil {
					continue
				}
				err := fn(ctx, item)
				atomic.AddInt64(&counts.completed, 1)
				if err == nil {
					atomic.AddInt64(&counts.succeeded, 1)
					continue
				}
				atomic.AddInt64(&counts.failed, 1)

				var fatal *Fatal
				if asFatal(err, &fatal) {
					fatalOnce.Do(func() {
						fatalErr = fatal.Err
						cancel()
					})
				}
			}
		}()
	}
	wg.Wait()

	return counts, fatalErr
}

func asFatal(err error, target **Fatal) bool {
	f, ok := err.(*Fatal)
	if !ok {
		return false
	}
	*target = f
	return true
}

// FatalIfStoreUnavailable wraps a StoreUnavailableError as a Fatal so a
// worker function can propagate it directly: `return workerpool.FatalIfStoreUnavailable(err)`.
func FatalIfStoreUnavailable(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*domain.StoreUnavailableError); ok {
		return &Fatal{Err: err}
	}
	return err
}
