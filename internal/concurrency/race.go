package concurrency

import (
	"context"
	"sync"

	"github.com/sanix-darker/streamkernel/internal/kernelerr"
)

// RaceResult is the winning op's outcome plus which index produced it.
type RaceResult struct {
	Index int
	Value interface{}
}

// Race starts every op in ops concurrently and returns as soon as one
// succeeds, cancelling the rest. If every op fails, it returns
// AllStreamsFailed wrapping the last error observed.
func Race(ctx context.Context, ops []Op) (RaceResult, error) {
	if len(ops) == 0 {
		return RaceResult{}, kernelerr.New(kernelerr.AllStreamsFailed, "race requires at least one op")
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		index int
		value interface{}
		err   error
	}

	results := make(chan outcome, len(ops))
	var wg sync.WaitGroup
	wg.Add(len(ops))
	for i, op := range ops {
		i, op := i, op
		go func() {
			defer wg.Done()
			value, err := op(raceCtx)
			results <- outcome{index: i, value: value, err: err}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var lastErr error
	failures := 0
	for res := range results {
		if res.err == nil {
			cancel()
			return RaceResult{Index: res.index, Value: res.value}, nil
		}
		lastErr = res.err
		failures++
		if failures == len(ops) {
			break
		}
	}

	return RaceResult{}, kernelerr.Wrap(kernelerr.AllStreamsFailed, "every race candidate failed", lastErr)
}
