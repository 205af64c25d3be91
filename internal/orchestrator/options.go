package orchestrator

import (
	"time"

	"github.com/sanix-darker/streamkernel/internal/adapter"
	"github.com/sanix-darker/streamkernel/internal/event"
	"github.com/sanix-darker/streamkernel/internal/guardrail"
	"github.com/sanix-darker/streamkernel/internal/kernelerr"
	"github.com/sanix-darker/streamkernel/internal/producer"
)

// RetryReason enumerates the retry-worthy kinds a retryOn set may include;
// it is a restriction of kernelerr.Kind to the subset that ever drives a
// retry decision.
type RetryReason = kernelerr.Kind

// RetryPolicy is the per-session retry configuration: how many attempts,
// which error kinds are retryable, and the backoff shape between them.
type RetryPolicy struct {
	Attempts        int
	RetryOn         map[RetryReason]bool
	Backoff         Backoff
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ErrorTypeDelays map[RetryReason]time.Duration
}

// DefaultRetryPolicy returns two attempts with exponential backoff (no
// jitter) from a one-second base, capped at 30s, restricted to the
// network/rate-limit/server/timeout error kinds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 2,
		RetryOn: map[RetryReason]bool{
			kernelerr.NetworkError: true,
			kernelerr.RateLimit:    true,
			kernelerr.ServerError:  true,
			kernelerr.Timeout:      true,
		},
		Backoff:   BackoffExponential,
		BaseDelay: time.Second,
		MaxDelay:  30 * time.Second,
	}
}

func (p RetryPolicy) delayFor(kind RetryReason, attempt int) DelayResult {
	base := p.BaseDelay
	if base == 0 {
		base = time.Second
	}
	if override, ok := p.ErrorTypeDelays[kind]; ok {
		base = override
	}
	backoff := p.Backoff
	if backoff == "" {
		backoff = BackoffExponential
	}
	return ComputeDelay(backoff, base, p.MaxDelay, attempt)
}

// TimeoutConfig configures the two orthogonal per-attempt timers: time to
// first token and time between subsequent tokens.
type TimeoutConfig struct {
	InitialToken time.Duration
	InterToken   time.Duration
}

// CheckpointConfig configures continuation checkpointing.
type CheckpointConfig struct {
	Interval int
}

// ContinuationBuilder derives the next producer input (typically a prompt
// string) from a checkpoint.
type ContinuationBuilder func(Checkpoint) interface{}

// ContinuationFactory builds a fresh producer.Factory for the resumed
// attempt from the continuation input BuildContinuationPrompt produced.
// producer.Factory is deliberately a zero-argument restart contract;
// ContinuationFactory is the explicit seam between that contract and a
// producer that needs to resume from checkpoint-derived input: it runs
// once per continuation and returns a producer.Factory closing over the
// continuation input.
type ContinuationFactory func(input interface{}) producer.Factory

// MonitoringConfig toggles and samples telemetry/observability emission.
type MonitoringConfig struct {
	Enabled    bool
	SampleRate float64
	Metadata   map[string]interface{}
}

// Callbacks holds the session's observation callbacks (onEvent, onRetry,
// onViolation, onToolCall, onComplete) collapsed into one observer record
// instead of five independent parameters.
type Callbacks struct {
	OnEvent     func(event.Stream)
	OnRetry     func(reason kernelerr.Kind, attempt int, willRetry bool)
	OnViolation func(guardrail.Violation)
	OnToolCall  func(event.Stream)
	OnComplete  func(content string)
}

// Options is the single per-session configuration record passed to Run.
type Options struct {
	Stream                         producer.Factory
	Adapter                        string
	FallbackStreams                []producer.Factory
	Retry                          RetryPolicy
	Timeout                        TimeoutConfig
	DetectZeroTokens               bool
	ContinueFromLastKnownGoodToken bool
	Checkpoints                    CheckpointConfig
	BuildContinuationPrompt        ContinuationBuilder
	ContinuationStream             ContinuationFactory
	Guardrails                     []guardrail.Rule
	Monitoring                     MonitoringConfig
	Interceptors                   []Sink
	Signal                         <-chan struct{}
	Callbacks                      Callbacks
	Context                        interface{}
	Registry                       *adapter.Registry
}

// Sink is the observability capability: before/after/onError, all
// pure-dispatch, invoked in registration order. Interceptor panics are
// recovered and passed to every sink's OnError, never allowed to fail the
// session.
type Sink interface {
	Before(obs event.Obs)
	After(obs event.Obs)
	OnError(err error)
}
