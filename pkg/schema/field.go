// Package schema describes the shape of structured model output. Schemas
// are built from Go types or loaded from user-supplied JSON/YAML and can be
// rendered as JSON Schema for structured output and as prompt text.
package schema

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// FieldType represents the type of a schema field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Field represents a single field in the schema.
type Field struct {
	Name        string    `json:"name,omitempty" yaml:"name,omitempty"`
	Type        FieldType `json:"type" yaml:"type"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Items       *Field    `json:"items,omitempty" yaml:"items,omitempty"`
	Properties  []Field   `json:"-" yaml:"-"` // populated by the custom unmarshalers
	Enum        []string  `json:"enum,omitempty" yaml:"enum,omitempty"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Examples    []string  `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// fieldAlias is used to avoid infinite recursion in the unmarshalers.
type fieldAlias Field

// UnmarshalYAML accepts properties either as a map keyed by field name or as a list.
func (f *Field) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		fieldAlias `yaml:",inline"`
		Properties yaml.Node `yaml:"properties"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*f = Field(raw.fieldAlias)

	switch raw.Properties.Kind {
	case yaml.MappingNode:
		// keep document order, a Go map would lose it
		for i := 0; i+1 < len(raw.Properties.Content); i += 2 {
			var prop Field
			if err := raw.Properties.Content[i+1].Decode(&prop); err != nil {
				return err
			}
			prop.Name = raw.Properties.Content[i].Value
			f.Properties = append(f.Properties, prop)
		}
	case yaml.SequenceNode:
		return raw.Properties.Decode(&f.Properties)
	}
	return nil
}

// MarshalJSON includes properties as a list.
func (f Field) MarshalJSON() ([]byte, error) {
	type fieldJSON struct {
		fieldAlias
		Properties []Field `json:"properties,omitempty"`
	}
	return json.Marshal(fieldJSON{fieldAlias: fieldAlias(f), Properties: f.Properties})
}

// UnmarshalJSON accepts properties either as a map keyed by field name or as a list.
func (f *Field) UnmarshalJSON(data []byte) error {
	var raw struct {
		fieldAlias
		Properties json.RawMessage `json:"properties,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = Field(raw.fieldAlias)

	if len(raw.Properties) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw.Properties, &f.Properties); err == nil {
		return nil
	}

	var propsMap map[string]Field
	if err := json.Unmarshal(raw.Properties, &propsMap); err != nil {
		return err
	}
	f.Properties = nil
	for _, name := range sortedKeys(propsMap) {
		prop := propsMap[name]
		prop.Name = name
		f.Properties = append(f.Properties, prop)
	}
	return nil
}

// ValidationError represents a validation failure at a JSON pointer location.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}
