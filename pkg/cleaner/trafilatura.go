package cleaner

import (
	"bytes"
	"strings"

	"github.com/markusmobius/go-trafilatura"
	"github.com/yosssi/gohtml"
	"golang.org/x/net/html"
)

// TrafilaturaConfig configures the Trafilatura cleaner. The zero value
// excludes comments and keeps tables, links and the readability fallback.
type TrafilaturaConfig struct {
	Output          OutputFormat
	IncludeComments bool
	ExcludeTables   bool
	ExcludeLinks    bool
	DisableFallback bool
}

// TrafilaturaCleaner extracts the primary content of a page using
// go-trafilatura.
type TrafilaturaCleaner struct {
	opts   trafilatura.Options
	output OutputFormat
}

// NewTrafilatura creates a new Trafilatura cleaner.
// Pass nil for default configuration.
func NewTrafilatura(cfg *TrafilaturaConfig) *TrafilaturaCleaner {
	if cfg == nil {
		cfg = &TrafilaturaConfig{}
	}

	return &TrafilaturaCleaner{
		opts: trafilatura.Options{
			ExcludeComments: !cfg.IncludeComments,
			ExcludeTables:   cfg.ExcludeTables,
			IncludeLinks:    !cfg.ExcludeLinks,
			EnableFallback:  !cfg.DisableFallback,
		},
		output: cfg.Output,
	}
}

// Clean extracts the main content from HTML. The input is returned
// unchanged when nothing could be extracted.
func (c *TrafilaturaCleaner) Clean(htmlContent string) (string, error) {
	result, err := trafilatura.Extract(strings.NewReader(htmlContent), c.opts)
	if err != nil {
		return "", err
	}
	if result == nil {
		return htmlContent, nil
	}

	if c.output == OutputText || result.ContentNode == nil {
		if result.ContentText == "" {
			return htmlContent, nil
		}
		return result.ContentText, nil
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, result.ContentNode); err != nil {
		return result.ContentText, nil
	}
	return gohtml.Format(buf.String()), nil
}

// Name returns the cleaner type.
func (c *TrafilaturaCleaner) Name() string {
	return NameTrafilatura
}
