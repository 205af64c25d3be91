// Package guardrail implements a content validation pipeline: rules
// exposing name/check(context), scheduled in a streaming phase and a
// terminal phase, producing violations that the orchestrator turns into
// retry/fail decisions. Rules follow the same pure-classification,
// no-mutation-of-input convention used for HTTP error classification,
// generalized here to content validation.
package guardrail

import (
	"strconv"
	"time"
)

// Severity classifies a Violation's urgency.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityFatal   Severity = "fatal"
)

// Violation is one finding by a rule.
type Violation struct {
	Rule        string
	Severity    Severity
	Message     string
	Position    *int
	Recoverable bool
}

// key returns the deduplication key for a violation within a phase: same
// rule, message, and position.
func (v Violation) key() string {
	pos := "-"
	if v.Position != nil {
		pos = strconv.Itoa(*v.Position)
	}
	return v.Rule + "\x00" + v.Message + "\x00" + pos
}

// Context is the read-only view a rule's Check receives. Rules MUST NOT
// mutate it.
type Context struct {
	Content         string
	Completed       bool
	TokenCount      int
	ElapsedMs       int64
	SessionMetadata map[string]interface{}
}

// Rule is the guardrail contract every validator implements.
type Rule interface {
	Name() string
	Check(ctx Context) []Violation
}

// Func adapts a plain function into a Rule.
type Func struct {
	RuleName string
	CheckFn  func(ctx Context) []Violation
}

func (f Func) Name() string { return f.RuleName }

func (f Func) Check(ctx Context) []Violation { return f.CheckFn(ctx) }

// Phase discriminates the two rule scheduling phases.
type Phase string

const (
	PhaseStreaming Phase = "streaming"
	PhaseTerminal  Phase = "terminal"
)

// PhaseResult is the outcome of running every rule once in a given phase:
// the deduplicated violations, and advice derived from their severities.
type PhaseResult struct {
	Phase      Phase
	Violations []Violation
	Fatal      bool
	Retry      bool
}

// Pipeline runs an ordered list of rules across the streaming and terminal
// phases, deduplicating violations per phase.
type Pipeline struct {
	rules []Rule
}

// New builds a Pipeline over rules, in the order given (evaluation order
// matches registration order, mirroring the adapter registry's preserved
// order).
func New(rules ...Rule) *Pipeline {
	return &Pipeline{rules: rules}
}

// Run evaluates every rule once against ctx in the given phase, dedupes
// violations by (rule, message, position), and computes advice.
func (p *Pipeline) Run(phase Phase, ctx Context) PhaseResult {
	seen := make(map[string]bool)
	var violations []Violation

	for _, r := range p.rules {
		for _, v := range r.Check(ctx) {
			if v.Rule == "" {
				v.Rule = r.Name()
			}
			k := v.key()
			if seen[k] {
				continue
			}
			seen[k] = true
			violations = append(violations, v)
		}
	}

	result := PhaseResult{Phase: phase, Violations: violations}
	for _, v := range violations {
		switch v.Severity {
		case SeverityFatal:
			result.Fatal = true
		case SeverityError:
			if v.Recoverable {
				result.Retry = true
			}
		}
	}
	return result
}

// BuildContext is a small helper for callers assembling a Context from
// elapsed wall-clock time rather than a precomputed millisecond count.
func BuildContext(content string, completed bool, tokenCount int, elapsed time.Duration, meta map[string]interface{}) Context {
	return Context{
		Content:         content,
		Completed:       completed,
		TokenCount:      tokenCount,
		ElapsedMs:       elapsed.Milliseconds(),
		SessionMetadata: meta,
	}
}
