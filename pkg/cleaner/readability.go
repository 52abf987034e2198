package cleaner

import (
	"bytes"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/yosssi/gohtml"
	"golang.org/x/net/html"
)

// OutputFormat selects what a content extractor returns.
type OutputFormat int

const (
	// OutputHTML returns cleaned HTML for chaining into another cleaner.
	OutputHTML OutputFormat = iota
	// OutputText returns plain text directly.
	OutputText
)

// ReadabilityConfig configures the Readability cleaner.
type ReadabilityConfig struct {
	Output OutputFormat
	// MaxElemsToParse limits the number of nodes to parse (0 = no limit).
	MaxElemsToParse int
	// NTopCandidates is the number of top candidates to consider (default: 5).
	NTopCandidates int
	// CharThreshold is the minimum character count for valid content (default: 500).
	CharThreshold int
	// BaseURL is used for resolving relative URLs. If empty, URLs remain relative.
	BaseURL string
}

// ReadabilityCleaner keeps the main article of a page using the Readability
// algorithm and drops navigation, sidebars and other boilerplate.
type ReadabilityCleaner struct {
	cfg     ReadabilityConfig
	baseURL *url.URL
	parser  readability.Parser
}

// NewReadability creates a new Readability cleaner.
// Pass nil for default configuration.
func NewReadability(cfg *ReadabilityConfig) *ReadabilityCleaner {
	if cfg == nil {
		cfg = &ReadabilityConfig{}
	}

	parser := readability.NewParser()
	if cfg.MaxElemsToParse > 0 {
		parser.MaxElemsToParse = cfg.MaxElemsToParse
	}
	if cfg.NTopCandidates > 0 {
		parser.NTopCandidates = cfg.NTopCandidates
	}
	if cfg.CharThreshold > 0 {
		parser.CharThresholds = cfg.CharThreshold
	}

	var base *url.URL
	if cfg.BaseURL != "" {
		// an unparsable base leaves links relative
		base, _ = url.Parse(cfg.BaseURL)
	}

	return &ReadabilityCleaner{
		cfg:     *cfg,
		baseURL: base,
		parser:  parser,
	}
}

// Clean extracts the main content. When nothing can be extracted the input
// is returned unchanged so a following cleaner still sees the whole page.
func (c *ReadabilityCleaner) Clean(htmlContent string) (string, error) {
	article, err := c.parser.Parse(strings.NewReader(htmlContent), c.baseURL)
	if err != nil {
		return "", err
	}
	if article.Node == nil {
		return htmlContent, nil
	}

	var buf bytes.Buffer
	if c.cfg.Output == OutputText {
		if err := article.RenderText(&buf); err != nil || buf.Len() == 0 {
			return htmlContent, nil
		}
		return buf.String(), nil
	}

	if err := article.RenderHTML(&buf); err != nil {
		buf.Reset()
		if err := html.Render(&buf, article.Node); err != nil {
			return htmlContent, nil
		}
	}
	if buf.Len() == 0 {
		return htmlContent, nil
	}
	return gohtml.Format(buf.String()), nil
}

// Name returns the cleaner type.
func (c *ReadabilityCleaner) Name() string {
	return NameReadability
}
