// Package response turns raw model output into the API's response envelopes.
package response

import (
	"github.com/jmylchreest/distill/pkg/prompt"
	"github.com/jmylchreest/distill/pkg/source"
)

// KeyValuePair is one extracted key point.
type KeyValuePair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Entity is a named entity and the ways the content refers to it.
type Entity struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Mentions []string `json:"mentions"`
}

// ExtractionResponse is the envelope returned by the extract endpoint.
// Only the collection matching ExtractionType is populated; the others are
// present and empty.
type ExtractionResponse struct {
	Success        bool           `json:"success"`
	ExtractionType prompt.Mode    `json:"extraction_type"`
	SourceType     source.Type    `json:"source_type"`
	Data           map[string]any `json:"data"`
	KeyValuePairs  []KeyValuePair `json:"key_value_pairs"`
	Entities       []Entity       `json:"entities"`
	Context        string         `json:"context,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
}

// NewExtractionResponse returns an unsuccessful response with empty collections.
func NewExtractionResponse(mode prompt.Mode, sourceType source.Type) *ExtractionResponse {
	return &ExtractionResponse{
		ExtractionType: mode,
		SourceType:     sourceType,
		Data:           map[string]any{},
		KeyValuePairs:  []KeyValuePair{},
		Entities:       []Entity{},
	}
}

// Apply copies a validated result into the response and marks it successful.
func (r *ExtractionResponse) Apply(res Result) {
	r.Success = true
	if res.Data != nil {
		r.Data = res.Data
	}
	if res.KeyValuePairs != nil {
		r.KeyValuePairs = res.KeyValuePairs
	}
	if res.Entities != nil {
		r.Entities = res.Entities
	}
	r.Warnings = res.Warnings
}

// SummaryResponse is the envelope returned by the summarize endpoint.
type SummaryResponse struct {
	Summary   string         `json:"summary"`
	WordCount int            `json:"word_count"`
	Title     string         `json:"title,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Result is the validated form of an extraction.
type Result struct {
	Data          map[string]any
	KeyValuePairs []KeyValuePair
	Entities      []Entity
	Warnings      []string
}
