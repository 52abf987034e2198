package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter collects results and writes them on Close, like JSONWriter.
type YAMLWriter struct {
	w     io.Writer
	items []any
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{w: w}
}

// Write buffers v.
func (w *YAMLWriter) Write(v any) error {
	w.items = append(w.items, v)
	return nil
}

// Close encodes the buffered results.
func (w *YAMLWriter) Close() error {
	if len(w.items) == 0 {
		return nil
	}

	var v any = w.items
	if len(w.items) == 1 {
		v = w.items[0]
	}
	w.items = nil

	doc, err := jsonShape(v)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w.w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// jsonShape round-trips v through JSON so YAML keys follow the json tags
// and omitempty rules of the response types.
func jsonShape(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
