package source

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/jmylchreest/distill/internal/logger"
	"github.com/jmylchreest/distill/pkg/fetcher"
)

// ValidateURL checks that raw is an absolute http(s) URL.
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

// FromURL fetches a page and normalizes its content. Responses that carry a
// PDF are handed to FromPDF.
func (n *Normalizer) FromURL(ctx context.Context, rawURL string, mode fetcher.Mode) (*Document, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	f, err := n.fetcherFor(mode)
	if err != nil {
		return nil, err
	}

	logger.Info("fetching url", "url", rawURL, "fetcher", f.Type())
	content, err := f.Fetch(ctx, rawURL, n.fetchOpts)
	if err != nil {
		logger.Warn("fetch failed", "url", rawURL, "error", err)
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	if isPDFResponse(content) {
		doc, err := FromPDF(content.Body, pdfFilename(u))
		if err != nil {
			return nil, err
		}
		doc.URL = rawURL
		return doc, nil
	}

	var text string
	switch {
	case content.HTML != "":
		text, err = n.cleaner.Clean(content.HTML)
		if err != nil {
			return nil, fmt.Errorf("clean %s: %w", rawURL, err)
		}
	case len(content.Body) > 0 && DetectType(content.Body) == KindText:
		text = CleanText(string(content.Body))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyContent, rawURL)
	}

	title := strings.TrimSpace(content.Title)
	if title == "" {
		title = rawURL
	}

	logger.Debug("url normalized", "url", rawURL, "cleaner", n.cleaner.Name(), "chars", len(text))

	return &Document{
		Type:      TypeURL,
		Text:      text,
		Title:     title,
		URL:       rawURL,
		WordCount: WordCount(text),
		Links:     content.Links,
	}, nil
}

func isPDFResponse(c fetcher.Content) bool {
	if strings.Contains(strings.ToLower(c.ContentType), "application/pdf") {
		return true
	}
	return c.HTML == "" && DetectType(c.Body) == KindPDF
}

func pdfFilename(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return u.Host + ".pdf"
	}
	return name
}
