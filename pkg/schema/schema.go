package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Schema defines the structure the model is asked to return.
type Schema struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field `json:"fields" yaml:"fields"`

	// raw holds a user-supplied JSON Schema document, used verbatim by ToJSONSchema.
	raw map[string]any
}

// ErrEmptySchema is returned when a schema document has no fields.
var ErrEmptySchema = errors.New("schema defines no fields")

// SchemaOption configures schema creation.
type SchemaOption func(*schemaBuilder)

type schemaBuilder struct {
	name        string
	description string
}

// WithDescription sets the schema description.
func WithDescription(desc string) SchemaOption {
	return func(b *schemaBuilder) {
		b.description = desc
	}
}

// WithName overrides the schema name, which defaults to the Go type name.
func WithName(name string) SchemaOption {
	return func(b *schemaBuilder) {
		b.name = name
	}
}

// NewSchema creates a Schema from a struct type using reflection.
//
// Supported tags: json (name, omitempty marks optional), description,
// examples (comma separated) and enum (comma separated).
func NewSchema[T any](opts ...SchemaOption) (Schema, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return Schema{}, fmt.Errorf("schema must be created from a struct type, got interface")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return Schema{}, fmt.Errorf("schema must be created from a struct type, got %v", t.Kind())
	}

	builder := &schemaBuilder{name: t.Name()}
	for _, opt := range opts {
		opt(builder)
	}

	fields, err := extractFields(t)
	if err != nil {
		return Schema{}, err
	}

	return Schema{
		Name:        builder.name,
		Description: builder.description,
		Fields:      fields,
	}, nil
}

// MustSchema is like NewSchema but panics on error. Intended for package-level
// schemas built from known types.
func MustSchema[T any](opts ...SchemaOption) Schema {
	s, err := NewSchema[T](opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Parse loads a schema from JSON or YAML. Two document shapes are accepted:
// the field list format ({"name": ..., "fields": [...]}) and a plain JSON
// Schema object ({"type": "object", "properties": {...}}).
func Parse(data []byte) (Schema, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Schema{}, ErrEmptySchema
	}

	var doc map[string]any
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return Schema{}, fmt.Errorf("failed to parse JSON schema: %w", err)
		}
	} else if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return Schema{}, fmt.Errorf("failed to parse YAML schema: %w", err)
	}

	if _, ok := doc["fields"]; ok {
		if trimmed[0] == '{' {
			return FromJSON(trimmed)
		}
		return FromYAML(trimmed)
	}
	return FromJSONSchema(doc)
}

// FromJSON creates a schema from field list JSON.
func FromJSON(data []byte) (Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return Schema{}, fmt.Errorf("failed to parse JSON schema: %w", err)
	}
	if len(s.Fields) == 0 {
		return Schema{}, ErrEmptySchema
	}
	return s, nil
}

// FromYAML creates a schema from field list YAML.
func FromYAML(data []byte) (Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schema{}, fmt.Errorf("failed to parse YAML schema: %w", err)
	}
	if len(s.Fields) == 0 {
		return Schema{}, ErrEmptySchema
	}
	return s, nil
}

// FromJSONSchema wraps an existing JSON Schema document. Top-level
// properties are mirrored into Fields for prompt rendering; the document
// itself is passed to the model and validator unchanged.
func FromJSONSchema(doc map[string]any) (Schema, error) {
	doc = normalizeYAML(doc).(map[string]any)

	props, _ := doc["properties"].(map[string]any)
	if len(props) == 0 {
		return Schema{}, ErrEmptySchema
	}

	s := Schema{raw: doc}
	s.Name, _ = doc["title"].(string)
	s.Description, _ = doc["description"].(string)
	s.Fields = fieldsFromProperties(props, stringSet(doc["required"]))
	return s, nil
}

// IsJSONSchema reports whether the schema wraps a user-supplied JSON Schema document.
func (s Schema) IsJSONSchema() bool {
	return s.raw != nil
}

func fieldsFromProperties(props map[string]any, required map[string]bool) []Field {
	fields := make([]Field, 0, len(props))
	for _, name := range sortedKeys(props) {
		def, _ := props[name].(map[string]any)
		f := fieldFromJSONSchema(def)
		f.Name = name
		f.Required = required[name]
		fields = append(fields, f)
	}
	return fields
}

func fieldFromJSONSchema(def map[string]any) Field {
	var f Field
	switch t := def["type"].(type) {
	case string:
		f.Type = FieldType(t)
	case []any:
		// ["string", "null"] style unions: take the first concrete type
		for _, v := range t {
			if s, ok := v.(string); ok && s != "null" {
				f.Type = FieldType(s)
				break
			}
		}
	}
	if f.Type == "" {
		f.Type = TypeString
	}
	f.Description, _ = def["description"].(string)
	if enum, ok := def["enum"].([]any); ok {
		for _, v := range enum {
			f.Enum = append(f.Enum, fmt.Sprint(v))
		}
	}
	if items, ok := def["items"].(map[string]any); ok {
		item := fieldFromJSONSchema(items)
		f.Items = &item
	}
	if props, ok := def["properties"].(map[string]any); ok {
		f.Properties = fieldsFromProperties(props, stringSet(def["required"]))
	}
	return f
}

// normalizeYAML converts map[any]any nodes left by some YAML decoders.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return m
	case []any:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	default:
		return v
	}
}

func stringSet(v any) map[string]bool {
	set := make(map[string]bool)
	list, _ := v.([]any)
	for _, item := range list {
		if s, ok := item.(string); ok {
			set[s] = true
		}
	}
	return set
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// extractFields recursively extracts field definitions from a struct type.
func extractFields(t reflect.Type) ([]Field, error) {
	fields := make([]Field, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Tag.Get("json") == "-" {
			continue
		}

		field, err := fieldFromType(sf.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", sf.Name, err)
		}
		field.Name = jsonName(sf)
		field.Description = sf.Tag.Get("description")
		field.Required = sf.Type.Kind() != reflect.Ptr && !hasOmitempty(sf)
		if examples := sf.Tag.Get("examples"); examples != "" {
			field.Examples = strings.Split(examples, ",")
		}
		if enum := sf.Tag.Get("enum"); enum != "" {
			field.Enum = strings.Split(enum, ",")
		}

		fields = append(fields, field)
	}

	return fields, nil
}

// fieldFromType maps a Go type onto a Field definition.
func fieldFromType(t reflect.Type) (Field, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var field Field
	switch t.Kind() {
	case reflect.String:
		field.Type = TypeString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		field.Type = TypeInteger
	case reflect.Float32, reflect.Float64:
		field.Type = TypeNumber
	case reflect.Bool:
		field.Type = TypeBoolean
	case reflect.Slice, reflect.Array:
		field.Type = TypeArray
		item, err := fieldFromType(t.Elem())
		if err != nil {
			return Field{}, err
		}
		field.Items = &item
	case reflect.Struct:
		field.Type = TypeObject
		props, err := extractFields(t)
		if err != nil {
			return Field{}, err
		}
		field.Properties = props
	case reflect.Map, reflect.Interface:
		field.Type = TypeObject
	default:
		return Field{}, fmt.Errorf("unsupported type: %v", t.Kind())
	}

	return field, nil
}

// jsonName returns the JSON field name from struct tags.
func jsonName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" {
		return sf.Name
	}
	return name
}

func hasOmitempty(sf reflect.StructField) bool {
	_, opts, _ := strings.Cut(sf.Tag.Get("json"), ",")
	return strings.Contains(opts, "omitempty")
}
