// Package cleaner turns fetched HTML into text suitable for prompting.
package cleaner

import "fmt"

// Cleaner transforms HTML content into a cleaner format for prompting.
// The default implementation strips page chrome and returns plain text.
type Cleaner interface {
	// Clean transforms the input HTML into a cleaned format.
	// The output format depends on the implementation (plain text, markdown, etc.).
	Clean(html string) (string, error)

	// Name returns the cleaner type for logging/debugging.
	Name() string
}

// Names accepted by New.
const (
	NameText        = "text"
	NameReadability = "readability"
	NameTrafilatura = "trafilatura"
	NameMarkdown    = "markdown"
	NameNoop        = "noop"
)

// New returns the cleaner registered under name. An empty name selects the
// text cleaner.
func New(name string) (Cleaner, error) {
	switch name {
	case NameText, "":
		return NewText(), nil
	case NameReadability:
		return NewChain(NewReadability(nil), NewText()), nil
	case NameTrafilatura:
		return NewChain(NewTrafilatura(&TrafilaturaConfig{Output: OutputText}), NewText()), nil
	case NameMarkdown:
		return NewChain(NewReadability(nil), NewMarkdown()), nil
	case NameNoop:
		return NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown cleaner: %s (use text, readability, trafilatura, markdown, or noop)", name)
	}
}
