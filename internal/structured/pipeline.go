package structured

import (
	"context"

	"github.com/sanix-darker/streamkernel/internal/event"
	"github.com/sanix-darker/streamkernel/internal/guardrail"
	"github.com/sanix-darker/streamkernel/internal/kernelerr"
	"github.com/sanix-darker/streamkernel/internal/orchestrator"
)

// Options configures one structured-output run: the orchestrator session
// to drive, the schema to validate against, and whether the auto-correct
// repair pass runs ahead of parsing.
type Options struct {
	Session     orchestrator.Options
	SchemaName  string
	Schema      guardrail.SchemaCapability
	AutoCorrect bool
}

// withRetrySet returns opts.Session.Retry with GuardrailViolation and
// Incomplete added to its retryable set, defaulting the policy first if
// the caller left it zero. A failed validation is exactly a recoverable
// guardrail violation; without these two kinds in the retry set the
// orchestrator would treat the first malformed generation as terminal.
func withRetrySet(policy orchestrator.RetryPolicy) orchestrator.RetryPolicy {
	if policy.Attempts == 0 && policy.RetryOn == nil {
		policy = orchestrator.DefaultRetryPolicy()
	}
	retryOn := make(map[kernelerr.Kind]bool, len(policy.RetryOn)+2)
	for k, v := range policy.RetryOn {
		retryOn[k] = v
	}
	retryOn[kernelerr.GuardrailViolation] = true
	retryOn[kernelerr.Incomplete] = true
	policy.RetryOn = retryOn
	return policy
}

// Outcome is the terminal result of a structured-output run: the parsed,
// schema-valid value plus the repair telemetry, or the underlying
// orchestrator error if every attempt was exhausted before a valid value
// was produced.
type Outcome struct {
	Value     interface{}
	Telemetry Telemetry
	Result    *orchestrator.Result
	Err       error
}

// Run drives one orchestrator session with the structured-output
// guardrail installed, draining its event stream internally (structured
// mode has no streaming consumer of its own; RunStreaming below is for
// callers that need to tee the raw tokens too) and returning the parsed,
// validated value once the session completes.
func Run(ctx context.Context, opts Options) Outcome {
	rule := NewRule(opts.SchemaName, opts.Schema, opts.AutoCorrect)

	sessionOpts := opts.Session
	sessionOpts.Guardrails = append(append([]guardrail.Rule{}, sessionOpts.Guardrails...), rule)
	sessionOpts.Retry = withRetrySet(sessionOpts.Retry)

	events, resultCh := orchestrator.Run(ctx, sessionOpts)
	for range events {
	}
	result := <-resultCh

	if result.Err != nil {
		return Outcome{Result: result, Err: result.Err}
	}
	return Outcome{Value: rule.Value(), Telemetry: rule.Telemetry(), Result: result}
}

// StreamingOutcome is delivered once, after the teed event stream closes,
// carrying the same terminal information as Outcome.
type StreamingOutcome = Outcome

// RunStreaming drives the same pipeline as Run, but tees every consumer-
// facing event to the returned channel as it arrives instead of draining
// it internally; the validated value is a future delivered on the second
// channel once the underlying stream is fully consumed and the terminal
// guardrail evaluation has run.
func RunStreaming(ctx context.Context, opts Options) (<-chan event.Stream, <-chan StreamingOutcome) {
	rule := NewRule(opts.SchemaName, opts.Schema, opts.AutoCorrect)

	sessionOpts := opts.Session
	sessionOpts.Guardrails = append(append([]guardrail.Rule{}, sessionOpts.Guardrails...), rule)
	sessionOpts.Retry = withRetrySet(sessionOpts.Retry)

	teed := make(chan event.Stream, 64)
	outcomeCh := make(chan StreamingOutcome, 1)

	events, resultCh := orchestrator.Run(ctx, sessionOpts)

	go func() {
		defer close(teed)
		defer close(outcomeCh)

		for ev := range events {
			teed <- ev
		}
		result := <-resultCh

		if result.Err != nil {
			outcomeCh <- Outcome{Result: result, Err: result.Err}
			return
		}
		outcomeCh <- Outcome{Value: rule.Value(), Telemetry: rule.Telemetry(), Result: result}
	}()

	return teed, outcomeCh
}
