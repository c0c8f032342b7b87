// Package schema provides an output guardrail that validates agent output
// against a JSON Schema. The guardrail trips when the output does not decode
// as JSON or fails validation; OutputInfo carries a Report describing why.
package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	agent "goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/guardrail"
	"goa.design/agentcore/runtime/agent/model"
)

// resourceURL names the schema resource inside the compiler.
const resourceURL = "output.json"

// Report is the OutputInfo of the schema guardrail.
type Report struct {
	// Valid is true when the output satisfied the schema.
	Valid bool `json:"valid"`
	// Message describes the decoding or validation failure.
	Message string `json:"message,omitempty"`
}

// Guardrail validates agent outputs against a compiled schema.
type Guardrail struct {
	schema *jsonschema.Schema
}

// New compiles the JSON Schema document in schemaJSON.
func New(schemaJSON []byte) (*Guardrail, error) {
	if len(bytes.TrimSpace(schemaJSON)) == 0 {
		return nil, errors.New("schema is required")
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceURL, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	s, err := c.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Guardrail{schema: s}, nil
}

// Output returns an output guardrail named name that runs Check.
func (g *Guardrail) Output(name string) guardrail.OutputGuardrail {
	return guardrail.NewOutput(guardrail.OutputFunc(g.check), guardrail.WithName(name))
}

// Check validates output. Strings, byte slices and message items are parsed
// as JSON text; any other value is validated through its JSON encoding.
func (g *Guardrail) Check(output any) Report {
	doc, err := decode(output)
	if err != nil {
		return Report{Message: fmt.Sprintf("output is not valid JSON: %v", err)}
	}
	if err := g.schema.Validate(doc); err != nil {
		return Report{Message: err.Error()}
	}
	return Report{Valid: true}
}

func (g *Guardrail) check(_ context.Context, _ *guardrail.RunContext, _ agent.Ident, output any) guardrail.FunctionOutput {
	r := g.Check(output)
	return guardrail.FunctionOutput{OutputInfo: r, TripwireTriggered: !r.Valid}
}

func decode(output any) (any, error) {
	var raw []byte
	switch v := output.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	case model.MessageOutput:
		raw = []byte(v.Text())
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(raw))
}
