package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ToJSONSchema converts the schema to JSON Schema format for structured output.
func (s Schema) ToJSONSchema() map[string]any {
	if s.raw != nil {
		return s.raw
	}

	properties := make(map[string]any)
	required := make([]string, 0)

	for _, field := range s.Fields {
		properties[field.Name] = fieldToJSONSchema(field)
		if field.Required {
			required = append(required, field.Name)
		}
	}

	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false, // required for strict mode
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	if s.Description != "" {
		schema["description"] = s.Description
	}

	return schema
}

func fieldToJSONSchema(f Field) map[string]any {
	schema := map[string]any{
		"type": string(f.Type),
	}

	if f.Description != "" {
		schema["description"] = f.Description
	}
	if len(f.Enum) > 0 {
		schema["enum"] = f.Enum
	}
	if len(f.Examples) > 0 {
		schema["examples"] = f.Examples
	}
	if f.Default != nil {
		schema["default"] = f.Default
	}

	if f.Type == TypeArray && f.Items != nil {
		schema["items"] = fieldToJSONSchema(*f.Items)
	}

	if f.Type == TypeObject && len(f.Properties) > 0 {
		props := make(map[string]any)
		req := make([]string, 0)
		for _, p := range f.Properties {
			props[p.Name] = fieldToJSONSchema(p)
			if p.Required {
				req = append(req, p.Name)
			}
		}
		schema["properties"] = props
		schema["additionalProperties"] = false
		if len(req) > 0 {
			schema["required"] = req
		}
	}

	return schema
}

// Validator checks decoded JSON values against a compiled schema.
type Validator struct {
	compiled *jsonschema.Schema
}

// Compile builds a Validator for the schema.
func (s Schema) Compile() (*Validator, error) {
	b, err := json.Marshal(s.ToJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{compiled: compiled}, nil
}

// MustCompile is like Compile but panics on error.
func (s Schema) MustCompile() *Validator {
	v, err := s.Compile()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks a value and returns one entry per failed constraint.
// Values that are not plain decoded JSON (structs, typed slices) are
// round-tripped through encoding/json first.
func (v *Validator) Validate(value any) []ValidationError {
	doc, err := toJSONValue(value)
	if err != nil {
		return []ValidationError{{Message: err.Error()}}
	}

	err = v.compiled.Validate(doc)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []ValidationError{{Message: err.Error()}}
	}

	var out []ValidationError
	collectLeaves(verr, &out)
	return out
}

func collectLeaves(e *jsonschema.ValidationError, out *[]ValidationError) {
	if len(e.Causes) == 0 {
		*out = append(*out, ValidationError{Field: e.InstanceLocation, Message: e.Message})
		return
	}
	for _, c := range e.Causes {
		collectLeaves(c, out)
	}
}

func toJSONValue(value any) (any, error) {
	switch value.(type) {
	case nil, map[string]any, []any, string, float64, bool:
		return value, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return doc, nil
}

// ToPromptDescription renders the schema as a field list for the prompt.
func (s Schema) ToPromptDescription() string {
	var sb strings.Builder

	if s.Description != "" {
		sb.WriteString(s.Description)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Fields to extract:\n")

	for _, field := range s.Fields {
		writeFieldDescription(&sb, field, 0)
	}

	return sb.String()
}

func writeFieldDescription(sb *strings.Builder, f Field, indent int) {
	prefix := strings.Repeat("  ", indent)

	sb.WriteString(prefix)
	sb.WriteString("- ")
	sb.WriteString(f.Name)
	sb.WriteString(" (")
	sb.WriteString(string(f.Type))
	if f.Required {
		sb.WriteString(", required")
	}
	sb.WriteString(")")

	if f.Description != "" {
		sb.WriteString(": ")
		sb.WriteString(f.Description)
	}
	if len(f.Enum) > 0 {
		sb.WriteString(" [one of: ")
		sb.WriteString(strings.Join(f.Enum, ", "))
		sb.WriteString("]")
	}
	sb.WriteString("\n")

	if f.Type == TypeArray && f.Items != nil && f.Items.Type == TypeObject {
		sb.WriteString(prefix)
		sb.WriteString("  Each item:\n")
		for _, prop := range f.Items.Properties {
			writeFieldDescription(sb, prop, indent+2)
		}
	}

	if f.Type == TypeObject {
		for _, prop := range f.Properties {
			writeFieldDescription(sb, prop, indent+1)
		}
	}
}
