package orchestrator

import (
	"context"
	"time"

	"github.com/sanix-darker/streamkernel/internal/adapter"
	"github.com/sanix-darker/streamkernel/internal/event"
	"github.com/sanix-darker/streamkernel/internal/guardrail"
	"github.com/sanix-darker/streamkernel/internal/kernelerr"
	"github.com/sanix-darker/streamkernel/internal/kernelid"
	"github.com/sanix-darker/streamkernel/internal/producer"
)

// session owns the mutable state of one stream session: content
// accumulated so far, the active checkpoint, collected violations, and
// telemetry totals. It is driven exclusively by the goroutine Run starts;
// no field is ever touched concurrently.
type session struct {
	id       kernelid.StreamID
	opts     Options
	registry *adapter.Registry
	pipeline *guardrail.Pipeline
	events   chan event.Stream

	content       string
	tokenCount    int
	fallbackIndex int
	checkpoint    *Checkpoint
	violations    []guardrail.Violation
	telemetry     Telemetry

	startTs          time.Time
	firstTokenSeen   bool
	resolvedAdapter  adapter.Adapter
	state            State
}

// Run drives one stream session through its retry/fallback/continuation
// state machine to completion and returns a lazy stream of consumer-facing
// events plus a channel delivering exactly one terminal Result.
func Run(ctx context.Context, opts Options) (<-chan event.Stream, <-chan *Result) {
	events := make(chan event.Stream, 64)
	resultCh := make(chan *Result, 1)

	reg := opts.Registry
	if reg == nil {
		reg = adapter.Default()
	}

	s := &session{
		id:        kernelid.New(),
		opts:      opts,
		registry:  reg,
		pipeline:  guardrail.New(opts.Guardrails...),
		events:    events,
		startTs:   time.Now(),
		telemetry: newTelemetry(""),
		state:     StateIdle,
	}
	s.telemetry.SessionID = string(s.id)
	s.telemetry.ContinuationEnabled = opts.ContinueFromLastKnownGoodToken

	go s.run(ctx, resultCh)

	return events, resultCh
}

func (s *session) run(ctx context.Context, resultCh chan *Result) {
	defer close(s.events)
	defer close(resultCh)

	s.state = StateStarting
	s.emitObs(event.SessionStart, nil)

	producers := make([]producerEntry, 0, 1+len(s.opts.FallbackStreams))
	producers = append(producers, producerEntry{factory: s.opts.Stream})
	for _, f := range s.opts.FallbackStreams {
		producers = append(producers, producerEntry{factory: f})
	}

	result := s.driveFallbacks(ctx, producers)
	s.telemetry.Duration = time.Since(s.startTs)
	result.Telemetry = s.telemetry
	result.Checkpoint = s.checkpoint

	if result.Err != nil {
		s.state = StateFailed
		s.emitObs(event.Failed, map[string]interface{}{"error": result.Err.Error()})
	} else {
		s.state = StateComplete
		s.emitObs(event.Complete, nil)
	}

	resultCh <- result
}

type producerEntry struct {
	factory producer.Factory
}

func (s *session) driveFallbacks(ctx context.Context, producers []producerEntry) *Result {
	for s.fallbackIndex = 0; s.fallbackIndex < len(producers); s.fallbackIndex++ {
		if s.fallbackIndex > 0 {
			s.emitObs(event.Fallback, map[string]interface{}{"fallbackIndex": s.fallbackIndex})
			s.content = ""
			s.tokenCount = 0
		}

		outcome := s.driveRetries(ctx, producers[s.fallbackIndex].factory)
		switch outcome.kind {
		case outcomeOK:
			return s.successResult()
		case outcomeCancelled:
			return s.failureResult(kernelerr.Wrap(kernelerr.Cancelled, "session cancelled", outcome.err))
		case outcomeFatal:
			return s.failureResult(kernelerr.Wrap(outcome.reason, "fatal failure", outcome.err))
		case outcomeRetryable:
			// retry budget for this producer exhausted; fall through to
			// the next fallback, if any.
			continue
		}
	}
	s.fallbackIndex = len(producers) - 1
	return s.failureResult(kernelerr.New(kernelerr.AllFallbacksExhausted, "all producers exhausted their retry budget"))
}

func (s *session) driveRetries(ctx context.Context, factory producer.Factory) attemptOutcome {
	policy := s.opts.Retry
	if policy.Attempts == 0 && policy.RetryOn == nil {
		policy = DefaultRetryPolicy()
	}
	maxAttempts := policy.Attempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	isContinuation := false

	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return attemptOutcome{kind: outcomeCancelled, reason: kernelerr.Cancelled, err: ctx.Err()}
		default:
		}
		if s.signalled() {
			return attemptOutcome{kind: outcomeCancelled, reason: kernelerr.Cancelled}
		}

		var activeFactory producer.Factory
		if isContinuation && s.opts.ContinuationStream != nil {
			var input interface{}
			if s.opts.BuildContinuationPrompt != nil && s.checkpoint != nil {
				input = s.opts.BuildContinuationPrompt(*s.checkpoint)
			}
			activeFactory = s.opts.ContinuationStream(input)
		} else {
			activeFactory = factory
		}

		outcome := s.runAttempt(ctx, activeFactory, isContinuation)

		switch outcome.kind {
		case outcomeOK, outcomeFatal, outcomeCancelled:
			return outcome
		case outcomeRetryable:
			retryOn := policy.RetryOn
			if retryOn == nil {
				retryOn = DefaultRetryPolicy().RetryOn
			}
			if !retryOn[outcome.reason] {
				// Not in the configured retryable set: treat as
				// exhausted immediately for this producer.
				s.opts.Callbacks.onRetryCB(outcome.reason, attempt+1, false)
				return attemptOutcome{kind: outcomeRetryable, reason: outcome.reason, err: outcome.err}
			}

			s.recordRetryTelemetry(outcome.reason)

			if attempt+1 >= maxAttempts {
				s.opts.Callbacks.onRetryCB(outcome.reason, attempt+1, false)
				return attemptOutcome{kind: outcomeRetryable, reason: outcome.reason, err: outcome.err}
			}

			willContinue := s.opts.ContinueFromLastKnownGoodToken && s.checkpoint != nil && s.opts.BuildContinuationPrompt != nil
			s.opts.Callbacks.onRetryCB(outcome.reason, attempt+1, true)
			s.emitObs(event.RetryScheduled, map[string]interface{}{"reason": outcome.reason, "attempt": attempt + 1})

			delay := policy.delayFor(outcome.reason, attempt+1)
			if !s.sleep(ctx, delay.Delay) {
				return attemptOutcome{kind: outcomeCancelled, reason: kernelerr.Cancelled}
			}

			s.emitObs(event.RetryAttempt, map[string]interface{}{"attempt": attempt + 1, "reason": outcome.reason})

			if willContinue {
				isContinuation = true
				s.telemetry.ContinuationUsed = true
				s.telemetry.ContinuationCount++
				// Tokens already captured by this session (including any
				// emitted after the last checkpoint but before the
				// failure) are kept: the checkpoint is a resume marker
				// for restart purposes, not a rollback point — content
				// only ever grows within a continuation chain.
				s.emitObs(event.Continuation, map[string]interface{}{"tokenIndex": s.checkpoint.TokenIndex})
			} else {
				isContinuation = false
				s.content = ""
				s.tokenCount = 0
			}
		}
	}
}

func (s *session) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *session) signalled() bool {
	if s.opts.Signal == nil {
		return false
	}
	select {
	case <-s.opts.Signal:
		return true
	default:
		return false
	}
}

func (s *session) successResult() *Result {
	return &Result{
		StreamID:      s.id,
		Content:       s.content,
		TokenCount:    s.tokenCount,
		FallbackIndex: s.fallbackIndex,
		Completed:     true,
		Violations:    s.violations,
	}
}

func (s *session) failureResult(err error) *Result {
	return &Result{
		StreamID:      s.id,
		Content:       s.content,
		TokenCount:    s.tokenCount,
		FallbackIndex: s.fallbackIndex,
		Completed:     false,
		Violations:    s.violations,
		Err:           err,
	}
}

func (s *session) recordRetryTelemetry(reason kernelerr.Kind) {
	switch reason {
	case kernelerr.NetworkError, kernelerr.Timeout:
		s.telemetry.RetriesNetwork++
		s.telemetry.NetworkErrorsByType[string(reason)]++
	case kernelerr.RateLimit:
		s.telemetry.RetriesRateLimit++
	default:
		s.telemetry.RetriesModel++
	}
}

func (s *session) emitObs(typ event.ObsType, data map[string]interface{}) {
	obs := event.NewObs(typ, s.id, time.Now(), s.opts.Context, data)
	dispatchSinks(s.opts.Interceptors, obs)
}

func (s *session) emitStream(ctx context.Context, ev event.Stream) bool {
	if s.opts.Callbacks.OnEvent != nil {
		s.opts.Callbacks.OnEvent(ev)
	}
	select {
	case <-ctx.Done():
		return false
	case s.events <- ev:
		return true
	}
}

func (c Callbacks) onRetryCB(reason kernelerr.Kind, attempt int, willRetry bool) {
	if c.OnRetry != nil {
		c.OnRetry(reason, attempt, willRetry)
	}
}
