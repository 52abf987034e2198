// Package source normalizes PDF uploads, web pages and plain text into a
// Document: canonical text plus the metadata the prompt builder needs.
package source

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jmylchreest/distill/internal/logger"
	"github.com/jmylchreest/distill/pkg/cleaner"
	"github.com/jmylchreest/distill/pkg/fetcher"
)

// Type identifies where content came from.
type Type string

const (
	TypePDF  Type = "pdf"
	TypeURL  Type = "url"
	TypeText Type = "text"
)

// ParseType validates a source type name.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypePDF, TypeURL, TypeText:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, s)
	}
}

// Input is the raw content of a request.
type Input struct {
	Type      Type
	Text      string
	URL       string
	Data      []byte
	Filename  string
	FetchMode fetcher.Mode // overrides the normalizer's default for URL inputs
}

// Metadata holds document properties, mostly from the PDF info dictionary.
type Metadata struct {
	Author           string
	Subject          string
	Keywords         []string
	Creator          string
	Producer         string
	CreationDate     string
	ModificationDate string
}

// Section is a run of text under a detected header.
type Section struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Level      int    `json:"level"`
	PageNumber int    `json:"page_number,omitempty"`
}

// Document is normalized content ready for prompting.
type Document struct {
	Type      Type
	Text      string
	Title     string
	URL       string
	Filename  string
	PageCount int
	WordCount int
	Metadata  Metadata
	Sections  []Section
	Links     []string
}

// Context returns a one-line description of where the document came from.
func (d *Document) Context() string {
	var b strings.Builder
	switch d.Type {
	case TypePDF:
		fmt.Fprintf(&b, "PDF Document: %s, Pages: %d", d.Filename, d.PageCount)
	case TypeURL:
		fmt.Fprintf(&b, "Scraped from URL: %s", d.URL)
	default:
		fmt.Fprintf(&b, "Text document, Words: %d", d.WordCount)
	}
	if d.Title != "" {
		fmt.Fprintf(&b, ", Title: %s", d.Title)
	}
	return b.String()
}

// InfoEntry is one metadata key/value pair.
type InfoEntry struct {
	Key   string
	Value any
}

// Info returns the non-empty metadata entries in a stable order.
func (d *Document) Info() []InfoEntry {
	var out []InfoEntry
	add := func(key string, value any) {
		switch v := value.(type) {
		case string:
			if v == "" {
				return
			}
		case int:
			if v == 0 {
				return
			}
		}
		out = append(out, InfoEntry{Key: key, Value: value})
	}

	add("title", d.Title)
	add("url", d.URL)
	add("filename", d.Filename)
	add("author", d.Metadata.Author)
	add("subject", d.Metadata.Subject)
	add("keywords", strings.Join(d.Metadata.Keywords, ", "))
	add("page_count", d.PageCount)
	add("word_count", d.WordCount)
	add("creator", d.Metadata.Creator)
	add("producer", d.Metadata.Producer)
	add("creation_date", d.Metadata.CreationDate)
	add("modification_date", d.Metadata.ModificationDate)

	var titles []string
	for _, s := range d.Sections {
		if s.Level > 0 {
			titles = append(titles, s.Title)
		}
	}
	add("sections", strings.Join(titles, ", "))

	return out
}

// InfoMap returns Info as a map.
func (d *Document) InfoMap() map[string]any {
	info := d.Info()
	m := make(map[string]any, len(info))
	for _, e := range info {
		m[e.Key] = e.Value
	}
	return m
}

// Normalizer turns Inputs into Documents. URL inputs are fetched with a
// fetcher per mode, created on first use.
type Normalizer struct {
	fetchConfig fetcher.Config
	fetchOpts   fetcher.Options
	defaultMode fetcher.Mode
	cleaner     cleaner.Cleaner

	mu       sync.Mutex
	fetchers map[fetcher.Mode]fetcher.Fetcher
	override fetcher.Fetcher
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithFetchConfig sets the user agent and timeout used for URL inputs.
func WithFetchConfig(cfg fetcher.Config) Option {
	return func(n *Normalizer) {
		n.fetchConfig = cfg
	}
}

// WithFetchMode sets the default fetch mode for URL inputs.
func WithFetchMode(mode fetcher.Mode) Option {
	return func(n *Normalizer) {
		n.defaultMode = mode
	}
}

// WithFetchOptions sets per-request fetch options such as headers.
func WithFetchOptions(opts fetcher.Options) Option {
	return func(n *Normalizer) {
		n.fetchOpts = opts
	}
}

// WithFetcher uses f for every URL input regardless of mode.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(n *Normalizer) {
		n.override = f
	}
}

// WithCleaner sets the HTML cleaner for URL inputs.
func WithCleaner(c cleaner.Cleaner) Option {
	return func(n *Normalizer) {
		n.cleaner = c
	}
}

// NewNormalizer creates a Normalizer. Defaults: static fetching and the text cleaner.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		defaultMode: fetcher.ModeStatic,
		cleaner:     cleaner.NewText(),
		fetchers:    make(map[fetcher.Mode]fetcher.Fetcher),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize dispatches on the input type.
func (n *Normalizer) Normalize(ctx context.Context, in Input) (*Document, error) {
	switch in.Type {
	case TypeText:
		if strings.TrimSpace(in.Text) == "" {
			return nil, fmt.Errorf("%w: text is empty", ErrMissingInput)
		}
		return FromText(in.Text)
	case TypeURL:
		if strings.TrimSpace(in.URL) == "" {
			return nil, fmt.Errorf("%w: url is empty", ErrMissingInput)
		}
		return n.FromURL(ctx, strings.TrimSpace(in.URL), in.FetchMode)
	case TypePDF:
		if len(in.Data) == 0 {
			return nil, fmt.Errorf("%w: no file uploaded", ErrMissingInput)
		}
		return FromPDF(in.Data, in.Filename)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, in.Type)
	}
}

func (n *Normalizer) fetcherFor(mode fetcher.Mode) (fetcher.Fetcher, error) {
	if n.override != nil {
		return n.override, nil
	}
	if mode == "" {
		mode = n.defaultMode
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if f, ok := n.fetchers[mode]; ok {
		return f, nil
	}
	f, err := fetcher.New(mode, n.fetchConfig)
	if err != nil {
		return nil, err
	}
	logger.Debug("fetcher created", "mode", f.Type())
	n.fetchers[mode] = f
	return f, nil
}

// Close releases the fetchers created by the normalizer.
func (n *Normalizer) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var firstErr error
	for mode, f := range n.fetchers {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(n.fetchers, mode)
	}
	return firstErr
}
