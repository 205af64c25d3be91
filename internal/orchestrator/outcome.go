package orchestrator

import "github.com/sanix-darker/streamkernel/internal/kernelerr"

// outcomeKind is an internal sum type used in place of exception-based
// retry control flow.
type outcomeKind int

const (
	outcomeOK outcomeKind = iota
	outcomeRetryable
	outcomeFatal
	outcomeCancelled
)

// attemptOutcome is the result of driving one attempt to completion,
// failure, or cancellation.
type attemptOutcome struct {
	kind   outcomeKind
	reason kernelerr.Kind
	err    error
}
