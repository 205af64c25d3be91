// Package concurrency provides two fan-out primitives over arbitrary
// operations: Parallel, which runs every operation to completion
// (tolerating individual failures) under a concurrency bound built on
// golang.org/x/sync/errgroup and semaphore, and Race, which starts every
// operation at once on plain goroutines, returns the first success and
// cancels the rest. internal/consensus runs its generation fan-out
// through Parallel.
package concurrency

import (
	"context"
	"errors"
	"time"

	"github.com/sanix-darker/streamkernel/internal/kernelerr"
	"github.com/sanix-darker/streamkernel/internal/orchestrator"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Op is one schedulable unit of work. It receives the pool's (possibly
// cancelled) context and returns a value or an error.
type Op func(ctx context.Context) (interface{}, error)

// Options configures a Parallel run.
type Options struct {
	// Concurrency bounds how many ops run at once. <= 0 defaults to
	// len(ops), i.e. unbounded.
	Concurrency int

	// FailFast cancels every in-flight and not-yet-started op as soon as
	// one op fails, instead of waiting for all of them to finish.
	FailFast bool

	// SharedRetry, when non-nil, wraps every op in the same retry
	// schedule: a failing op is retried up to Attempts times (classified
	// via kernelerr.Retryable) before its OpResult is recorded as a
	// failure.
	SharedRetry *orchestrator.RetryPolicy
}

// OpResult is one op's outcome, keyed by its position in the ops slice so
// results stay ordered regardless of completion order.
type OpResult struct {
	Index    int
	Value    interface{}
	Err      error
	Duration time.Duration
	Attempts int
}

// Result is the outcome of a Parallel run.
type Result struct {
	Results      []OpResult
	SuccessCount int
	FailureCount int
	AllSucceeded bool
}

func defaultOptions(o Options, n int) Options {
	if o.Concurrency <= 0 {
		o.Concurrency = n
	}
	return o
}

// Parallel runs every op in ops under a pool bounded by
// Options.Concurrency, collecting one OpResult per op regardless of
// completion order. With FailFast, the first failure cancels the shared
// context so in-flight and queued ops abandon their work; those ops
// still produce an OpResult carrying the cancellation error.
func Parallel(ctx context.Context, ops []Op, opts Options) Result {
	n := len(ops)
	if n == 0 {
		return Result{AllSucceeded: true}
	}
	opts = defaultOptions(opts, n)

	results := make([]OpResult, n)
	sem := semaphore.NewWeighted(int64(opts.Concurrency))
	group, gctx := errgroup.WithContext(ctx)

	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	for i, op := range ops {
		i, op := i, op
		group.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				results[i] = OpResult{Index: i, Err: err}
				return nil
			}
			defer sem.Release(1)

			results[i] = runWithRetry(runCtx, i, op, opts.SharedRetry)
			if results[i].Err != nil && opts.FailFast {
				cancel()
			}
			return nil
		})
	}
	_ = group.Wait()

	out := Result{Results: results, AllSucceeded: true}
	for _, r := range results {
		if r.Err != nil {
			out.FailureCount++
			out.AllSucceeded = false
		} else {
			out.SuccessCount++
		}
	}
	return out
}

// runWithRetry executes op, retrying per policy when its error is
// classified retryable, until it succeeds or the policy's attempt budget
// is exhausted.
func runWithRetry(ctx context.Context, index int, op Op, policy *orchestrator.RetryPolicy) OpResult {
	start := time.Now()
	attempts := 0
	maxAttempts := 1
	if policy != nil && policy.Attempts > 0 {
		maxAttempts = policy.Attempts + 1
	}

	var lastErr error
	for attempts < maxAttempts {
		attempts++
		if ctx.Err() != nil {
			return OpResult{Index: index, Err: ctx.Err(), Duration: time.Since(start), Attempts: attempts}
		}

		value, err := op(ctx)
		if err == nil {
			return OpResult{Index: index, Value: value, Duration: time.Since(start), Attempts: attempts}
		}
		lastErr = err

		if policy == nil || attempts >= maxAttempts {
			break
		}
		kind := kindOf(err)
		if !kernelerr.Retryable(kind) {
			break
		}

		base := policy.BaseDelay
		if base == 0 {
			base = time.Second
		}
		delay := orchestrator.ComputeDelay(policy.Backoff, base, policy.MaxDelay, attempts).Delay
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return OpResult{Index: index, Err: ctx.Err(), Duration: time.Since(start), Attempts: attempts}
		}
	}
	return OpResult{Index: index, Err: lastErr, Duration: time.Since(start), Attempts: attempts}
}

func kindOf(err error) kernelerr.Kind {
	var kerr *kernelerr.Error
	if errors.As(err, &kerr) {
		return kerr.Kind
	}
	return kernelerr.Unknown
}
