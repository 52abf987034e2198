package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmylchreest/distill/internal/logger"
	"github.com/jmylchreest/distill/pkg/prompt"
	"github.com/jmylchreest/distill/pkg/schema"
	"github.com/jmylchreest/distill/pkg/source"
)

var (
	ErrEmptyResponse   = errors.New("model returned an empty response")
	ErrUnsupportedMode = errors.New("mode has no extraction validator")
)

// WarningInvalidJSON is recorded when the output could not be decoded.
const WarningInvalidJSON = "response was not valid JSON"

// Validator checks and coerces model output. It is safe for concurrent use.
type Validator struct {
	keyPoints *schema.Validator
	entities  *schema.Validator
}

// NewValidator compiles the fixed output schemas.
func NewValidator() (*Validator, error) {
	kp, err := prompt.KeyPointsSchema.Compile()
	if err != nil {
		return nil, fmt.Errorf("key points schema: %w", err)
	}
	ent, err := prompt.EntitiesSchema.Compile()
	if err != nil {
		return nil, fmt.Errorf("entities schema: %w", err)
	}
	return &Validator{keyPoints: kp, entities: ent}, nil
}

// Summary cleans a summary. Output shaped as {"summary": "..."} is unwrapped.
func (v *Validator) Summary(raw string) (*SummaryResponse, error) {
	text := StripCodeFences(raw)

	if strings.HasPrefix(text, "{") {
		var obj struct {
			Summary *string `json:"summary"`
		}
		if err := json.Unmarshal([]byte(text), &obj); err == nil && obj.Summary != nil {
			text = strings.TrimSpace(*obj.Summary)
		}
	}

	if text == "" {
		return nil, ErrEmptyResponse
	}
	return &SummaryResponse{
		Summary:   text,
		WordCount: source.WordCount(text),
	}, nil
}

// Extraction decodes and coerces output for an extraction mode. Problems
// with the output itself are reported as warnings, not errors.
func (v *Validator) Extraction(mode prompt.Mode, raw string, custom *schema.Schema) (Result, error) {
	switch mode {
	case prompt.ModeKeyPoints, prompt.ModeEntities, prompt.ModeCustom:
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
	}

	var res Result
	decoded, ok := DecodeJSON(raw)
	if !ok {
		logger.Warn("model output was not valid JSON", "mode", mode, "bytes", len(raw))
		res.Warnings = append(res.Warnings, WarningInvalidJSON)
	}

	switch mode {
	case prompt.ModeKeyPoints:
		doc := wrapArray(decoded, "key_points")
		if ok {
			res.Warnings = append(res.Warnings, schemaWarnings(v.keyPoints, doc)...)
		}
		var dropped int
		res.KeyValuePairs, dropped = coerceKeyPoints(doc["key_points"])
		if dropped > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("dropped %d invalid key points", dropped))
		}
	case prompt.ModeEntities:
		doc := wrapArray(decoded, "entities")
		if ok {
			res.Warnings = append(res.Warnings, schemaWarnings(v.entities, doc)...)
		}
		var dropped int
		res.Entities, dropped = coerceEntities(doc["entities"])
		if dropped > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("dropped %d invalid entities", dropped))
		}
	case prompt.ModeCustom:
		if !ok {
			res.Data = map[string]any{"data": raw}
			break
		}
		res.Data = coerceCustom(decoded)
		if custom != nil {
			res.Warnings = append(res.Warnings, customWarnings(*custom, res.Data)...)
		}
	}

	if len(res.Warnings) > 0 {
		logger.Debug("extraction warnings", "mode", mode, "warnings", res.Warnings)
	}
	return res, nil
}

// wrapArray accepts a bare array as the value of key.
func wrapArray(decoded any, key string) map[string]any {
	switch d := decoded.(type) {
	case map[string]any:
		return d
	case []any:
		return map[string]any{key: d}
	default:
		return map[string]any{key: []any{}}
	}
}

func schemaWarnings(v *schema.Validator, doc any) []string {
	errs := v.Validate(doc)
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, "schema: "+e.Error())
	}
	return out
}

func customWarnings(s schema.Schema, data map[string]any) []string {
	compiled, err := s.Compile()
	if err != nil {
		return []string{"schema: " + err.Error()}
	}
	return schemaWarnings(compiled, data)
}

func coerceKeyPoints(v any) ([]KeyValuePair, int) {
	items, _ := v.([]any)
	out := make([]KeyValuePair, 0, len(items))
	dropped := 0
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			dropped++
			continue
		}
		kv := KeyValuePair{Key: stringify(obj["key"]), Value: stringify(obj["value"])}
		if kv.Key == "" && kv.Value == "" {
			dropped++
			continue
		}
		out = append(out, kv)
	}
	return out, dropped
}

// entityTypes maps lowercase names to the canonical entity types.
var entityTypes = func() map[string]string {
	m := make(map[string]string, len(prompt.EntityTypes)+1)
	for _, t := range prompt.EntityTypes {
		m[strings.ToLower(t)] = t
	}
	m["organisation"] = "Organization"
	return m
}()

// EntityTypeOther is used for entities the model gave no type.
const EntityTypeOther = "Other"

// CanonicalEntityType normalizes the case of known types. Unknown types are
// returned trimmed and an empty type becomes Other.
func CanonicalEntityType(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return EntityTypeOther
	}
	if canon, ok := entityTypes[strings.ToLower(t)]; ok {
		return canon
	}
	return t
}

func coerceEntities(v any) ([]Entity, int) {
	items, _ := v.([]any)
	out := make([]Entity, 0, len(items))
	dropped := 0
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			dropped++
			continue
		}
		name := stringify(obj["name"])
		if name == "" {
			dropped++
			continue
		}
		out = append(out, Entity{
			Name:     name,
			Type:     CanonicalEntityType(stringify(obj["type"])),
			Mentions: coerceMentions(obj["mentions"]),
		})
	}
	return out, dropped
}

func coerceMentions(v any) []string {
	var raw []string
	switch m := v.(type) {
	case string:
		raw = []string{m}
	case []any:
		for _, item := range m {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func coerceCustom(decoded any) map[string]any {
	obj, ok := decoded.(map[string]any)
	if !ok {
		return map[string]any{"data": decoded}
	}
	if len(obj) == 1 {
		if inner, ok := obj["data"].(map[string]any); ok {
			return inner
		}
	}
	return obj
}

// stringify renders a decoded JSON value as a string.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
