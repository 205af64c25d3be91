package orchestrator

import (
	"context"
	"time"

	"github.com/sanix-darker/streamkernel/internal/event"
	"github.com/sanix-darker/streamkernel/internal/guardrail"
	"github.com/sanix-darker/streamkernel/internal/kernelerr"
	"github.com/sanix-darker/streamkernel/internal/producer"
)

// runAttempt drives a single (re)start of a producer to success, a
// retryable failure, or a fatal failure. On continuation, s.content/
// s.tokenCount already hold the checkpoint's prefix; on a fresh attempt
// the caller has reset them to empty.
func (s *session) runAttempt(ctx context.Context, factory producer.Factory, isContinuation bool) attemptOutcome {
	attemptCtx, cancelAttempt := context.WithCancel(ctx)
	defer cancelAttempt()

	s.state = StateStreaming
	s.resolvedAdapter = nil
	s.emitObs(event.StreamStart, map[string]interface{}{"fallbackIndex": s.fallbackIndex, "continuation": isContinuation})

	prod := factory()
	stream := prod.Start(attemptCtx)

	ts := newTimeoutSupervisor(s.opts.Timeout)
	defer ts.stop()
	if ts.armInitial() {
		s.emitObs(event.TimeoutStart, map[string]interface{}{"kind": "initial_token"})
	}

	attemptStart := time.Now()
	localTokenCount := 0
	chunksCh := stream.Chunks
	errCh := stream.Err

	for {
		if chunksCh == nil && errCh == nil {
			break
		}

		select {
		case <-ctx.Done():
			return attemptOutcome{kind: outcomeCancelled, reason: kernelerr.Cancelled, err: ctx.Err()}
		case kind := <-ts.fired:
			s.emitObs(event.TimeoutFired, map[string]interface{}{"kind": string(kind)})
			return attemptOutcome{kind: outcomeRetryable, reason: kernelerr.Timeout,
				err: kernelerr.New(kernelerr.Timeout, "attempt timed out: "+string(kind))}

		case chunk, ok := <-chunksCh:
			if !ok {
				chunksCh = nil
				continue
			}

			if s.resolvedAdapter == nil {
				a, err := s.registry.Resolve(s.opts.Adapter, chunk)
				if err != nil {
					kerr, _ := err.(*kernelerr.Error)
					kind := kernelerr.Unknown
					if kerr != nil {
						kind = kerr.Kind
					}
					return attemptOutcome{kind: outcomeFatal, reason: kind, err: err}
				}
				s.resolvedAdapter = a
				s.emitObs(event.AdapterDetected, map[string]interface{}{"adapter": a.Name()})
			}

			events, err := s.resolvedAdapter.Wrap(chunk, time.Now())
			if err != nil {
				return attemptOutcome{kind: outcomeRetryable, reason: kernelerr.Incomplete, err: err}
			}

			for _, ev := range events {
				if outcome, terminal := s.handleStreamEvent(ctx, ev, &localTokenCount, attemptStart, ts, isContinuation); terminal {
					return outcome
				}
			}

		case errVal, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			return s.classifyProducerErr(errVal)
		}
	}

	// Chunks and Err both closed with no explicit Complete/error event:
	// the producer ended naturally. Run terminal guardrails now.
	return s.finishAttempt(localTokenCount, attemptStart)
}

// handleStreamEvent processes one canonical stream event, updating
// session state and emitting it to the consumer. The bool return
// indicates the attempt has reached a terminal outcome (and outcome is
// populated); otherwise the caller continues its read loop.
func (s *session) handleStreamEvent(ctx context.Context, ev event.Stream, localTokenCount *int, attemptStart time.Time, ts *timeoutSupervisor, isContinuation bool) (attemptOutcome, bool) {
	switch ev.Type {
	case event.StreamToken:
		*localTokenCount++
		s.tokenCount++
		s.content += ev.Value

		if !s.firstTokenSeen && ev.Value != "" {
			s.firstTokenSeen = true
			s.telemetry.TimeToFirstToken = time.Since(s.startTs)
			s.emitObs(event.FirstToken, nil)
		}

		if ts.onToken() {
			s.emitObs(event.TimeoutStart, map[string]interface{}{"kind": "inter_token"})
		}

		if outcome, terminal := s.runStreamingGuardrails(attemptStart); terminal {
			return outcome, true
		}

		s.maybeCheckpoint()

		if !s.emitStream(ctx, ev) {
			return attemptOutcome{kind: outcomeCancelled, reason: kernelerr.Cancelled}, true
		}
		return attemptOutcome{}, false

	case event.StreamToolCall:
		if s.opts.Callbacks.OnToolCall != nil {
			s.opts.Callbacks.OnToolCall(ev)
		}
		if !s.emitStream(ctx, ev) {
			return attemptOutcome{kind: outcomeCancelled, reason: kernelerr.Cancelled}, true
		}
		return attemptOutcome{}, false

	case event.StreamError:
		kind := kernelerr.Kind(ev.ErrKind)
		if kind == "" {
			kind = kernelerr.Unknown
		}
		return attemptOutcome{kind: outcomeRetryable, reason: kind, err: kernelerr.New(kind, ev.ErrMessage)}, true

	case event.StreamComplete:
		return s.finishAttempt(*localTokenCount, attemptStart), true

	default: // Data, Progress
		if !s.emitStream(ctx, ev) {
			return attemptOutcome{kind: outcomeCancelled, reason: kernelerr.Cancelled}, true
		}
		return attemptOutcome{}, false
	}
}

// runStreamingGuardrails runs the streaming-phase guardrail pipeline: a
// violation here stops the attempt immediately rather than waiting for
// completion.
func (s *session) runStreamingGuardrails(attemptStart time.Time) (attemptOutcome, bool) {
	s.emitObs(event.GuardrailPhaseStart, map[string]interface{}{"phase": "streaming"})
	result := s.pipeline.Run(guardrail.PhaseStreaming, guardrail.Context{
		Content: s.content, Completed: false, TokenCount: s.tokenCount,
		ElapsedMs: time.Since(attemptStart).Milliseconds(),
	})
	s.recordViolations(result.Violations)
	s.emitObs(event.GuardrailPhaseEnd, map[string]interface{}{"phase": "streaming"})

	if result.Fatal {
		return attemptOutcome{kind: outcomeFatal, reason: kernelerr.FatalGuardrail,
			err: kernelerr.New(kernelerr.FatalGuardrail, "fatal guardrail violation during streaming")}, true
	}
	if result.Retry {
		return attemptOutcome{kind: outcomeRetryable, reason: kernelerr.GuardrailViolation,
			err: kernelerr.New(kernelerr.GuardrailViolation, "recoverable guardrail violation during streaming")}, true
	}
	return attemptOutcome{}, false
}

// finishAttempt runs terminal-phase guardrails and the zero-token defense
// once a producer has yielded its final token.
func (s *session) finishAttempt(localTokenCount int, attemptStart time.Time) attemptOutcome {
	elapsed := time.Since(attemptStart)

	if s.opts.DetectZeroTokens {
		if cat := classifyZeroToken(localTokenCount, s.content, elapsed); cat != zeroTokenNone {
			s.emitObs(event.NetworkError, map[string]interface{}{"category": string(cat)})
			return attemptOutcome{kind: outcomeRetryable, reason: kernelerr.ZeroTokens,
				err: kernelerr.New(kernelerr.ZeroTokens, "zero-token attempt classified as "+string(cat))}
		}
	}

	s.emitObs(event.GuardrailPhaseStart, map[string]interface{}{"phase": "terminal"})
	result := s.pipeline.Run(guardrail.PhaseTerminal, guardrail.Context{
		Content: s.content, Completed: true, TokenCount: s.tokenCount,
		ElapsedMs: elapsed.Milliseconds(),
	})
	s.recordViolations(result.Violations)
	s.emitObs(event.GuardrailPhaseEnd, map[string]interface{}{"phase": "terminal"})

	if result.Fatal {
		return attemptOutcome{kind: outcomeFatal, reason: kernelerr.FatalGuardrail,
			err: kernelerr.New(kernelerr.FatalGuardrail, "fatal guardrail violation on completion")}
	}
	if result.Retry {
		return attemptOutcome{kind: outcomeRetryable, reason: kernelerr.GuardrailViolation,
			err: kernelerr.New(kernelerr.GuardrailViolation, "recoverable guardrail violation on completion")}
	}

	s.telemetry.TokensTotal = s.tokenCount
	if s.opts.Callbacks.OnComplete != nil {
		s.opts.Callbacks.OnComplete(s.content)
	}
	return attemptOutcome{kind: outcomeOK}
}

func (s *session) recordViolations(violations []guardrail.Violation) {
	for _, v := range violations {
		s.violations = append(s.violations, v)
		s.telemetry.ViolationsByRule[v.Rule]++
		s.telemetry.ViolationsBySeverity[string(v.Severity)]++
		s.emitObs(event.GuardrailViolation, map[string]interface{}{
			"rule": v.Rule, "severity": string(v.Severity), "message": v.Message,
		})
		if s.opts.Callbacks.OnViolation != nil {
			s.opts.Callbacks.OnViolation(v)
		}
	}
}

func (s *session) maybeCheckpoint() {
	interval := s.opts.Checkpoints.Interval
	if !s.opts.ContinueFromLastKnownGoodToken || interval <= 0 {
		return
	}
	if s.tokenCount%interval != 0 {
		return
	}
	s.checkpoint = &Checkpoint{Content: s.content, TokenIndex: s.tokenCount, TS: time.Now()}
	s.emitObs(event.CheckpointSaved, map[string]interface{}{"tokenIndex": s.tokenCount})
}

func (s *session) classifyProducerErr(err error) attemptOutcome {
	if kerr, ok := err.(*kernelerr.Error); ok {
		if kerr.Kind == kernelerr.Cancelled {
			return attemptOutcome{kind: outcomeCancelled, reason: kernelerr.Cancelled, err: err}
		}
		s.emitObs(event.NetworkError, map[string]interface{}{"kind": string(kerr.Kind)})
		return attemptOutcome{kind: outcomeRetryable, reason: kerr.Kind, err: err}
	}
	if err == context.Canceled || err == context.DeadlineExceeded {
		return attemptOutcome{kind: outcomeCancelled, reason: kernelerr.Cancelled, err: err}
	}
	s.emitObs(event.NetworkError, map[string]interface{}{"kind": string(kernelerr.NetworkError)})
	return attemptOutcome{kind: outcomeRetryable, reason: kernelerr.NetworkError, err: err}
}
