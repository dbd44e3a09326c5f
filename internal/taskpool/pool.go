// Package taskpool provides a bounded fan-out helper. Every task gets its
// own goroutine, but a semaphore caps how many run at once; results land at
// the same index as the task that produced them, so callers can zip inputs
// against outcomes.
package taskpool

import (
	"context"
	"sync"
)

// Result is the tagged outcome of a single task.
type Result[R any] struct {
	Value R
	Err   error
}

// Failed reports whether the task returned an error.
func (r Result[R]) Failed() bool {
	return r.Err != nil
}

// Gather runs fn over every input with at most limit tasks in flight.
// The returned slice preserves input order: result i belongs to inputs[i].
// Errors are captured per task, never propagated early; a cancelled context
// records ctx.Err() for tasks that were not started yet.
func Gather[T, R any](ctx context.Context, limit int, inputs []T, fn func(context.Context, T) (R, error)) []Result[R] {
	if limit <= 0 {
		limit = 1
	}

	results := make([]Result[R], len(inputs))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i := range inputs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = Result[R]{Err: ctx.Err()}
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			value, err := fn(ctx, inputs[idx])
			results[idx] = Result[R]{Value: value, Err: err}
		}(i)
	}

	wg.Wait()
	return results
}

// Errors extracts the non-nil errors from a result set, in order.
func Errors[R any](results []Result[R]) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
