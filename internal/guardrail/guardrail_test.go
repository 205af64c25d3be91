package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipeline_DedupesViolationsWithinPhase(t *testing.T) {
	rule := Func{RuleName: "dup", CheckFn: func(ctx Context) []Violation {
		return []Violation{
			{Rule: "dup", Severity: SeverityWarning, Message: "m"},
			{Rule: "dup", Severity: SeverityWarning, Message: "m"},
		}
	}}
	p := New(rule)
	result := p.Run(PhaseTerminal, Context{Completed: true})
	assert.Len(t, result.Violations, 1)
}

func TestPipeline_FatalSetsFatalAdvice(t *testing.T) {
	rule := Func{RuleName: "f", CheckFn: func(ctx Context) []Violation {
		return []Violation{{Rule: "f", Severity: SeverityFatal, Message: "boom"}}
	}}
	result := New(rule).Run(PhaseTerminal, Context{Completed: true})
	assert.True(t, result.Fatal)
	assert.False(t, result.Retry)
}

func TestPipeline_RecoverableErrorSetsRetryAdvice(t *testing.T) {
	rule := Func{RuleName: "e", CheckFn: func(ctx Context) []Violation {
		return []Violation{{Rule: "e", Severity: SeverityError, Message: "x", Recoverable: true}}
	}}
	result := New(rule).Run(PhaseTerminal, Context{Completed: true})
	assert.False(t, result.Fatal)
	assert.True(t, result.Retry)
}

func TestPipeline_WarningsOnlyRecorded(t *testing.T) {
	rule := Func{RuleName: "w", CheckFn: func(ctx Context) []Violation {
		return []Violation{{Rule: "w", Severity: SeverityWarning, Message: "x"}}
	}}
	result := New(rule).Run(PhaseTerminal, Context{Completed: true})
	assert.False(t, result.Fatal)
	assert.False(t, result.Retry)
	assert.Len(t, result.Violations, 1)
}

func TestPatternRule_MatchFlagsViolation(t *testing.T) {
	r, err := NewPatternRule("secret", `(?i)api[_-]?key`, "looks like a leaked key", SeverityError, true)
	assert.NoError(t, err)
	v := r.Check(Context{Content: "here is my API_KEY=123"})
	assert.Len(t, v, 1)
}

func TestJSONStructuralRule_UnbalancedBraces(t *testing.T) {
	r := NewJSONStructuralRule("structural")
	v := r.Check(Context{Content: `{"a": 1`, Completed: true})
	assert.Len(t, v, 1)
}

func TestJSONStructuralRule_TrailingComma(t *testing.T) {
	r := NewJSONStructuralRule("structural")
	v := r.Check(Context{Content: `{"a": 1,}`, Completed: true})
	assert.NotEmpty(t, v)
}

func TestJSONStructuralRule_ValidJSONPasses(t *testing.T) {
	r := NewJSONStructuralRule("structural")
	v := r.Check(Context{Content: `{"a": 1}`, Completed: true})
	assert.Empty(t, v)
}

func TestJSONStructuralRule_SkipsIncompleteContent(t *testing.T) {
	r := NewJSONStructuralRule("structural")
	v := r.Check(Context{Content: `{"a": 1`, Completed: false})
	assert.Empty(t, v)
}

func TestSchemaRule_ValidatesAgainstJSONSchema(t *testing.T) {
	schema := []byte(`{
		"type": "object",
		"properties": {"name": {"type": "string"}, "age": {"type": "integer"}},
		"required": ["name", "age"]
	}`)
	cap, err := NewJSONSchemaCapability("person", schema)
	assert.NoError(t, err)

	rule := SchemaRule{RuleName: "schema", Schema: cap}

	bad := rule.Check(Context{Content: `{"name":"Al","age":"x"}`, Completed: true})
	assert.Len(t, bad, 1)

	good := rule.Check(Context{Content: `{"name":"Al","age":7}`, Completed: true})
	assert.Empty(t, good)
}

func TestRepetitionDriftDetector_ScoresAdjacentRepeats(t *testing.T) {
	d := RepetitionDriftDetector{}
	assert.Equal(t, 0.0, d.Score("one two three", ""))
	assert.Greater(t, d.Score("the the the fox", ""), 0.0)
}

func TestDriftRule_FiresAboveThreshold(t *testing.T) {
	rule := DriftRule{
		RuleName: "drift", Detector: RepetitionDriftDetector{}, Threshold: 0.1,
		Severity: SeverityWarning,
	}
	v := rule.Check(Context{Content: "no no no no repeats"})
	assert.Len(t, v, 1)
}
