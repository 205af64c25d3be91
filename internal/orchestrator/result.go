package orchestrator

import (
	"github.com/sanix-darker/streamkernel/internal/guardrail"
	"github.com/sanix-darker/streamkernel/internal/kernelid"
)

// Result is the accumulated terminal state delivered once, after the lazy
// event stream Run returns has been fully consumed.
type Result struct {
	StreamID      kernelid.StreamID
	Content       string
	TokenCount    int
	FallbackIndex int
	Completed     bool
	Violations    []guardrail.Violation
	Telemetry     Telemetry
	Checkpoint    *Checkpoint
	Err           error
}
