package cmd

import (
	"os"

	"github.com/sanix-darker/streamkernel/internal/consensus"
	"github.com/sanix-darker/streamkernel/internal/guardrail"
)

// loadSchemaCapability reads a JSON Schema document from path and compiles
// it into a guardrail.SchemaCapability, the wider of the two schema
// interfaces in use (it also exposes Describe and a string reason
// alongside the pass/fail bool, which structured-output repair needs).
func loadSchemaCapability(name, path string) (*guardrail.JSONSchemaCapability, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return guardrail.NewJSONSchemaCapability(name, data)
}

// consensusSchemaAdapter narrows a guardrail.SchemaCapability down to
// consensus.SchemaCapability's single Validate(value) error method, so one
// user-supplied schema file can drive both a structured-output run and a
// consensus run without two independent loaders.
type consensusSchemaAdapter struct {
	inner *guardrail.JSONSchemaCapability
}

func (a consensusSchemaAdapter) Validate(value interface{}) error {
	ok, reason := a.inner.SafeParse(value)
	if ok {
		return nil
	}
	return &schemaValidationError{reason: reason}
}

type schemaValidationError struct{ reason string }

func (e *schemaValidationError) Error() string { return e.reason }

func asConsensusSchema(c *guardrail.JSONSchemaCapability) consensus.SchemaCapability {
	if c == nil {
		return nil
	}
	return consensusSchemaAdapter{inner: c}
}
