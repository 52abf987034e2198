package output

import (
	"encoding/json"
	"io"
)

// JSONWriter collects results and writes them on Close: a lone result as
// an object, several as an array.
type JSONWriter struct {
	w      io.Writer
	pretty bool
	indent string
	items  []any
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{w: w, pretty: pretty, indent: indent}
}

// Write buffers v.
func (w *JSONWriter) Write(v any) error {
	w.items = append(w.items, v)
	return nil
}

// Close encodes the buffered results. Nothing is written if none were buffered.
func (w *JSONWriter) Close() error {
	if len(w.items) == 0 {
		return nil
	}

	var v any = w.items
	if len(w.items) == 1 {
		v = w.items[0]
	}
	w.items = nil

	enc := json.NewEncoder(w.w)
	enc.SetEscapeHTML(false)
	if w.pretty {
		enc.SetIndent("", w.indent)
	}
	return enc.Encode(v)
}

// JSONLWriter writes one compact JSON document per line as results arrive.
type JSONLWriter struct {
	enc *json.Encoder
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{enc: enc}
}

// Write encodes v on its own line.
func (w *JSONLWriter) Write(v any) error {
	return w.enc.Encode(v)
}

// Close is a no-op.
func (w *JSONLWriter) Close() error {
	return nil
}
