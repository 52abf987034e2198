package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/distill/pkg/response"
)

// TextWriter renders results for reading in a terminal. Types it does not
// know are written as YAML.
type TextWriter struct {
	w     io.Writer
	count int
}

// NewTextWriter creates a text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

// Write renders v immediately, separating results with a blank line.
func (w *TextWriter) Write(v any) error {
	var b strings.Builder
	if w.count > 0 {
		b.WriteString("\n")
	}
	w.count++

	switch r := v.(type) {
	case *response.SummaryResponse:
		writeSummary(&b, r)
	case *response.ExtractionResponse:
		writeExtraction(&b, r)
	default:
		y := NewYAMLWriter(&b)
		_ = y.Write(v)
		if err := y.Close(); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w.w, b.String())
	return err
}

// Close is a no-op.
func (w *TextWriter) Close() error {
	return nil
}

func writeSummary(b *strings.Builder, r *response.SummaryResponse) {
	if r.Title != "" {
		fmt.Fprintf(b, "# %s\n\n", r.Title)
	}
	b.WriteString(strings.TrimSpace(r.Summary))
	fmt.Fprintf(b, "\n\n(%s words)\n", humanize.Comma(int64(r.WordCount)))

	if len(r.Metadata) > 0 {
		b.WriteString("\nMetadata:\n")
		for _, k := range sortedKeys(r.Metadata) {
			fmt.Fprintf(b, "  %s: %v\n", k, r.Metadata[k])
		}
	}
}

func writeExtraction(b *strings.Builder, r *response.ExtractionResponse) {
	status := "ok"
	if !r.Success {
		status = "failed"
	}
	fmt.Fprintf(b, "%s extraction from %s: %s\n", r.ExtractionType, r.SourceType, status)
	if r.Context != "" {
		fmt.Fprintf(b, "Context: %s\n", r.Context)
	}

	if len(r.KeyValuePairs) > 0 {
		b.WriteString("\nKey points:\n")
		for _, kv := range r.KeyValuePairs {
			fmt.Fprintf(b, "  - %s: %s\n", kv.Key, kv.Value)
		}
	}

	if len(r.Entities) > 0 {
		b.WriteString("\nEntities:\n")
		for _, e := range r.Entities {
			fmt.Fprintf(b, "  - %s (%s)", e.Name, e.Type)
			if len(e.Mentions) > 0 {
				fmt.Fprintf(b, ": %s", strings.Join(e.Mentions, ", "))
			}
			b.WriteString("\n")
		}
	}

	if len(r.Data) > 0 {
		b.WriteString("\nData:\n")
		for _, k := range sortedKeys(r.Data) {
			fmt.Fprintf(b, "  %s: %v\n", k, r.Data[k])
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(b, "  - %s\n", w)
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
