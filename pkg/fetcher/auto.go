package fetcher

import (
	"context"
	"errors"
	"strings"

	"github.com/jmylchreest/distill/internal/logger"
)

// AutoFetcher fetches statically and falls back to a headless browser
// when the page looks like it needs JavaScript.
type AutoFetcher struct {
	static  Fetcher
	dynamic Fetcher
}

// NewAuto creates a fetcher that auto-detects JS requirements.
func NewAuto(cfg Config) (*AutoFetcher, error) {
	dynamic, err := NewDynamic(cfg)
	if err != nil {
		return nil, err
	}
	return &AutoFetcher{
		static:  NewStatic(cfg),
		dynamic: dynamic,
	}, nil
}

// Fetch tries static first, then falls back to dynamic if needed.
func (f *AutoFetcher) Fetch(ctx context.Context, url string, opts Options) (Content, error) {
	content, err := f.static.Fetch(ctx, url, opts)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return content, err
		}
		logger.Debug("auto fetch: static failed, retrying dynamic", "url", url, "error", err)
		return f.dynamic.Fetch(ctx, url, opts)
	}

	if content.HTML != "" && NeedsJavaScript(content) {
		logger.Debug("auto fetch: page needs javascript", "url", url)
		return f.dynamic.Fetch(ctx, url, opts)
	}

	return content, nil
}

// NeedsJavaScript checks if a statically fetched page appears to require JS rendering.
func NeedsJavaScript(content Content) bool {
	html := strings.ToLower(content.HTML)
	text := strings.ToLower(content.Text)

	spaMarkers := []string{
		`<div id="root"></div>`,   // React
		`<div id="app"></div>`,    // Vue
		`<app-root></app-root>`,   // Angular
		`<div id="__next"></div>`, // Next.js
		`<div id="__nuxt"></div>`, // Nuxt.js
		"ng-app",
		"v-cloak",
	}
	for _, marker := range spaMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}

	if len(strings.TrimSpace(content.Text)) < 100 {
		for _, indicator := range []string{"loading", "please wait", "javascript required", "enable javascript"} {
			if strings.Contains(text, indicator) {
				return true
			}
		}
	}

	if noscript := extractBetween(html, "<noscript>", "</noscript>"); noscript != "" {
		if strings.Contains(noscript, "javascript") &&
			(strings.Contains(noscript, "enable") || strings.Contains(noscript, "required")) {
			return true
		}
	}

	return false
}

func extractBetween(s, start, end string) string {
	i := strings.Index(s, start)
	if i == -1 {
		return ""
	}
	i += len(start)
	j := strings.Index(s[i:], end)
	if j == -1 {
		return ""
	}
	return s[i : i+j]
}

// Close releases all fetcher resources.
func (f *AutoFetcher) Close() error {
	_ = f.static.Close()
	return f.dynamic.Close()
}

// Type returns the fetcher type.
func (f *AutoFetcher) Type() string {
	return string(ModeAuto)
}
