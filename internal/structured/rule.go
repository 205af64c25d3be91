package structured

import (
	"encoding/json"
	"sync"

	"github.com/sanix-darker/streamkernel/internal/guardrail"
)

// Telemetry is the terminal-success record: which schema validated, how
// many terminal evaluations it took, and what repairs were applied along
// the way.
type Telemetry struct {
	SchemaName      string
	Attempts        int
	Corrections     int
	CorrectionTypes map[CorrectionType]int
}

// Rule is the terminal guardrail the structured-output pipeline installs:
// on each terminal evaluation it auto-corrects (if enabled), parses, and
// validates against Schema, turning any step's failure into a single
// recoverable "json-schema-validation" violation the orchestrator's retry
// policy picks up. Run is driven from a single session goroutine (see
// guardrail.Pipeline.Run's call sites in internal/orchestrator), so the
// mutex here guards only against a Rule instance being reused, by mistake
// or by design, across more than one concurrent session.
type Rule struct {
	RuleName    string
	Schema      guardrail.SchemaCapability
	AutoCorrect bool

	mu              sync.Mutex
	attempts        int
	correctionCount int
	correctionTypes map[CorrectionType]int
	value           interface{}
}

// NewRule builds a terminal structured-output guardrail named name,
// validating against schema. autoCorrect enables the repair pass ahead of
// parsing; disabling it makes the rule behave like a plain schema check.
func NewRule(name string, schema guardrail.SchemaCapability, autoCorrect bool) *Rule {
	return &Rule{
		RuleName:        name,
		Schema:          schema,
		AutoCorrect:     autoCorrect,
		correctionTypes: make(map[CorrectionType]int),
	}
}

func (r *Rule) Name() string { return r.RuleName }

func (r *Rule) Check(ctx guardrail.Context) []guardrail.Violation {
	if !ctx.Completed {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++

	content := ctx.Content
	var corrections []CorrectionType
	if r.AutoCorrect {
		content, corrections = AutoCorrect(content)
	}

	var value interface{}
	if err := json.Unmarshal([]byte(content), &value); err != nil {
		return []guardrail.Violation{{
			Rule: r.RuleName, Severity: guardrail.SeverityError, Recoverable: true,
			Message: "json-schema-validation: content is not valid JSON after auto-correction: " + err.Error(),
		}}
	}

	if ok, msg := r.Schema.SafeParse(value); !ok {
		return []guardrail.Violation{{
			Rule: r.RuleName, Severity: guardrail.SeverityError, Recoverable: true,
			Message: "json-schema-validation: " + msg,
		}}
	}

	for _, c := range corrections {
		r.correctionCount++
		r.correctionTypes[c]++
	}
	r.value = value
	return nil
}

// Value returns the last successfully validated value, or nil if no
// terminal evaluation has yet succeeded.
func (r *Rule) Value() interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// Telemetry returns the accumulated repair/attempt record for this rule's
// session.
func (r *Rule) Telemetry() Telemetry {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make(map[CorrectionType]int, len(r.correctionTypes))
	for k, v := range r.correctionTypes {
		types[k] = v
	}
	return Telemetry{
		SchemaName:      r.Schema.Describe(),
		Attempts:        r.attempts,
		Corrections:     r.correctionCount,
		CorrectionTypes: types,
	}
}
