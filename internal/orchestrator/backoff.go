package orchestrator

import (
	"math"
	"math/rand"
	"time"
)

// Backoff selects the delay-growth function for retry scheduling: four
// named strategies generalizing the single hardcoded
// exponential-with-full-jitter shape of a typical retry helper into a
// configurable choice.
type Backoff string

const (
	BackoffFixed       Backoff = "fixed"
	BackoffFixedJitter Backoff = "fixed-jitter"
	BackoffLinear      Backoff = "linear"
	BackoffExponential Backoff = "exponential"
)

// DelayResult reports the computed delay and whether maxDelay capped it,
// so callers can surface that fact in telemetry/observability events.
type DelayResult struct {
	Delay  time.Duration
	Capped bool
}

// ComputeDelay computes raw = base * f(backoff, attempt), caps it at
// maxDelay, and for the jitter strategy multiplies by a uniform factor in
// [0.5, 1.5]. attempt is 1-indexed (first retry = 1).
func ComputeDelay(backoff Backoff, base, maxDelay time.Duration, attempt int) DelayResult {
	if attempt < 1 {
		attempt = 1
	}

	var raw float64
	switch backoff {
	case BackoffFixed, BackoffFixedJitter:
		raw = float64(base)
	case BackoffLinear:
		raw = float64(base) * float64(attempt)
	case BackoffExponential:
		raw = float64(base) * math.Pow(2, float64(attempt-1))
	default:
		raw = float64(base)
	}

	capped := false
	if maxDelay > 0 && raw > float64(maxDelay) {
		raw = float64(maxDelay)
		capped = true
	}

	if backoff == BackoffFixedJitter {
		raw *= 0.5 + rand.Float64()
	}
	if raw < 0 {
		raw = 0
	}

	return DelayResult{Delay: time.Duration(raw), Capped: capped}
}
