package guardrail

import (
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaCapability is a narrow capability interface for validating a
// decoded value against a schema, with an optional Describe() for
// telemetry. JSONSchemaCapability below is the concrete gojsonschema-backed
// implementation; callers may supply their own backend as long as it
// satisfies this interface.
type SchemaCapability interface {
	SafeParse(value interface{}) (ok bool, message string)
	Describe() string
}

// JSONSchemaCapability implements SchemaCapability against a JSON Schema
// document using xeipuuv/gojsonschema, the JSON Schema validator already
// present in this module's dependency set.
type JSONSchemaCapability struct {
	name   string
	schema *gojsonschema.Schema
}

// NewJSONSchemaCapability compiles schemaJSON (a JSON Schema document) and
// returns a capability that validates arbitrary values against it.
func NewJSONSchemaCapability(name string, schemaJSON []byte) (*JSONSchemaCapability, error) {
	loader := gojsonschema.NewBytesLoader(schemaJSON)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, err
	}
	return &JSONSchemaCapability{name: name, schema: schema}, nil
}

func (c *JSONSchemaCapability) Describe() string { return c.name }

func (c *JSONSchemaCapability) SafeParse(value interface{}) (bool, string) {
	documentLoader := gojsonschema.NewGoLoader(value)
	result, err := c.schema.Validate(documentLoader)
	if err != nil {
		return false, err.Error()
	}
	if result.Valid() {
		return true, ""
	}

	var sb []byte
	for i, e := range result.Errors() {
		if i > 0 {
			sb = append(sb, ';', ' ')
		}
		sb = append(sb, []byte(e.String())...)
	}
	return false, string(sb)
}

// SchemaRule is the terminal guardrail wiring a SchemaCapability into the
// pipeline. It parses ctx.Content as JSON, then delegates to
// Schema.SafeParse.
type SchemaRule struct {
	RuleName string
	Schema   SchemaCapability
}

func (r SchemaRule) Name() string { return r.RuleName }

func (r SchemaRule) Check(ctx Context) []Violation {
	if !ctx.Completed {
		return nil
	}
	var value interface{}
	if err := json.Unmarshal([]byte(ctx.Content), &value); err != nil {
		return []Violation{{
			Rule: r.RuleName, Severity: SeverityError, Recoverable: true,
			Message: "content is not valid JSON: " + err.Error(),
		}}
	}
	if ok, msg := r.Schema.SafeParse(value); !ok {
		return []Violation{{
			Rule: r.RuleName, Severity: SeverityError, Recoverable: true,
			Message: "schema validation failed: " + msg,
		}}
	}
	return nil
}
