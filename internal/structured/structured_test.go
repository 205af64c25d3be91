package structured

import (
	"context"
	"testing"

	"github.com/sanix-darker/streamkernel/internal/adapter"
	"github.com/sanix-darker/streamkernel/internal/adapter/mockadapter"
	"github.com/sanix-darker/streamkernel/internal/event"
	"github.com/sanix-darker/streamkernel/internal/guardrail"
	"github.com/sanix-darker/streamkernel/internal/orchestrator"
	"github.com/sanix-darker/streamkernel/internal/producer/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshRegistry() *adapter.Registry {
	r := adapter.NewRegistry()
	_ = r.Register(mockadapter.New())
	return r
}

var personSchema = []byte(`{
	"type": "object",
	"required": ["name", "age"],
	"properties": {
		"name": {"type": "string"},
		"age": {"type": "number"}
	}
}`)

func TestRun_ValidJSONPassesOnFirstAttempt(t *testing.T) {
	schema, err := guardrail.NewJSONSchemaCapability("person", personSchema)
	require.NoError(t, err)

	opts := Options{
		Session: orchestrator.Options{
			Stream:   mock.Factory(mock.Script{Tokens: []string{`{"name":"Ada",`, `"age":36}`}}),
			Registry: freshRegistry(),
		},
		SchemaName: "person",
		Schema:     schema,
	}

	outcome := Run(context.Background(), opts)
	require.NoError(t, outcome.Err)
	value, ok := outcome.Value.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Ada", value["name"])
	assert.Equal(t, 0, outcome.Telemetry.Corrections)
}

func TestRun_AutoCorrectsFencedMarkdownAndTrailingComma(t *testing.T) {
	schema, err := guardrail.NewJSONSchemaCapability("person", personSchema)
	require.NoError(t, err)

	raw := "```json\n{\"name\": \"Grace\", \"age\": 85,}\n```"
	opts := Options{
		Session: orchestrator.Options{
			Stream:   mock.Factory(mock.Script{Tokens: []string{raw}}),
			Registry: freshRegistry(),
		},
		SchemaName:  "person",
		Schema:      schema,
		AutoCorrect: true,
	}

	outcome := Run(context.Background(), opts)
	require.NoError(t, outcome.Err)
	value, ok := outcome.Value.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Grace", value["name"])
	assert.True(t, outcome.Telemetry.Corrections >= 2)
	assert.Equal(t, 1, outcome.Telemetry.CorrectionTypes[CorrectionStrippedFences])
	assert.Equal(t, 1, outcome.Telemetry.CorrectionTypes[CorrectionTrimmedCommas])
}

func TestRun_UnbalancedBracesAreRepaired(t *testing.T) {
	schema, err := guardrail.NewJSONSchemaCapability("person", personSchema)
	require.NoError(t, err)

	opts := Options{
		Session: orchestrator.Options{
			Stream:   mock.Factory(mock.Script{Tokens: []string{`{"name": "Alan", "age": 41`}}),
			Registry: freshRegistry(),
		},
		SchemaName:  "person",
		Schema:      schema,
		AutoCorrect: true,
	}

	outcome := Run(context.Background(), opts)
	require.NoError(t, outcome.Err)
	assert.Equal(t, 1, outcome.Telemetry.CorrectionTypes[CorrectionBalancedBraces])
}

func TestRun_ExhaustsRetriesOnPersistentlyInvalidSchema(t *testing.T) {
	schema, err := guardrail.NewJSONSchemaCapability("person", personSchema)
	require.NoError(t, err)

	opts := Options{
		Session: orchestrator.Options{
			Stream:   mock.Factory(mock.Script{Tokens: []string{`{"name": "No Age"}`}}),
			Registry: freshRegistry(),
			Retry:    orchestrator.RetryPolicy{Attempts: 2},
		},
		SchemaName:  "person",
		Schema:      schema,
		AutoCorrect: true,
	}

	outcome := Run(context.Background(), opts)
	require.Error(t, outcome.Err)
}

func TestRunStreaming_TeesEventsAndResolvesOutcomeAfterStreamCloses(t *testing.T) {
	schema, err := guardrail.NewJSONSchemaCapability("person", personSchema)
	require.NoError(t, err)

	opts := Options{
		Session: orchestrator.Options{
			Stream:   mock.Factory(mock.Script{Tokens: []string{`{"name":"Mae",`, `"age":58}`}}),
			Registry: freshRegistry(),
		},
		SchemaName: "person",
		Schema:     schema,
	}

	teed, outcomeCh := RunStreaming(context.Background(), opts)

	var tokenCount int
	for ev := range teed {
		if ev.Type == event.StreamToken {
			tokenCount++
		}
	}
	outcome := <-outcomeCh

	require.NoError(t, outcome.Err)
	assert.True(t, tokenCount >= 2)
	value, ok := outcome.Value.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Mae", value["name"])
}

func TestAutoCorrect_ExtractsJSONEmbeddedInProse(t *testing.T) {
	raw := `Sure, here you go: {"name": "Edsger", "age": 60} hope that helps!`
	corrected, corrections := AutoCorrect(raw)
	assert.Equal(t, `{"name": "Edsger", "age": 60}`, corrected)
	assert.Contains(t, corrections, CorrectionExtractedObject)
}
