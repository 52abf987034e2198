// Package fetcher retrieves remote pages for the URL source.
// Implement the Fetcher interface to plug in other retrieval strategies.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Fetcher abstracts page fetching strategies.
type Fetcher interface {
	// Fetch retrieves page content from a URL.
	Fetch(ctx context.Context, url string, opts Options) (Content, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Type returns a string identifying the fetcher type (e.g., "static", "dynamic").
	Type() string
}

// Mode selects a fetch strategy.
type Mode string

const (
	ModeStatic  Mode = "static"
	ModeDynamic Mode = "dynamic"
	ModeAuto    Mode = "auto"
)

// Options controls fetching behavior for a single request.
type Options struct {
	UserAgent       string
	Timeout         time.Duration
	WaitForSelector string        // CSS selector to wait for (dynamic fetchers)
	WaitDuration    time.Duration // Additional wait after load
	Headers         map[string]string
}

// Content represents fetched page data.
type Content struct {
	URL         string
	HTML        string
	Body        []byte // Raw response body, kept for non-HTML payloads such as PDFs
	Text        string // Whitespace-collapsed body text
	Title       string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
	Links       []string
}

// Config holds defaults shared by all fetchers.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Chrome user agent for better compatibility
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const defaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// DefaultConfig returns the defaults used when a field is left empty.
func DefaultConfig() Config {
	return Config{
		UserAgent: defaultUserAgent,
		Timeout:   10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// New creates a fetcher for the given mode.
func New(mode Mode, cfg Config) (Fetcher, error) {
	switch mode {
	case ModeStatic, "":
		return NewStatic(cfg), nil
	case ModeDynamic:
		return NewDynamic(cfg)
	case ModeAuto:
		return NewAuto(cfg)
	default:
		return nil, fmt.Errorf("%w: %s (use static, dynamic, or auto)", ErrUnknownMode, mode)
	}
}

// ParseMode validates a fetch mode name. An empty name is returned as is.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeStatic, ModeDynamic, ModeAuto:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %s (use static, dynamic, or auto)", ErrUnknownMode, s)
	}
}

// Error types for distinguishing failure reasons.
// Check with errors.Is(err, fetcher.ErrTimeout).
var (
	// ErrTimeout indicates the remote host did not answer in time.
	ErrTimeout = errors.New("fetch timed out")
	// ErrRequest indicates the request could not be completed (DNS, refused connection, TLS, ...).
	ErrRequest = errors.New("fetch request failed")
	// ErrUnknownMode is returned for fetch modes other than static, dynamic and auto.
	ErrUnknownMode = errors.New("unknown fetch mode")
)

// StatusError is returned when the remote host answers with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.Code, e.URL)
}

// classifyError maps a transport failure onto the package error types.
func classifyError(url string, status int, err error) error {
	if status >= 300 {
		return &StatusError{URL: url, Code: status}
	}
	if isTimeout(err) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrRequest, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	// colly does not always wrap the transport error
	msg := err.Error()
	return strings.Contains(msg, "Client.Timeout exceeded") || strings.Contains(msg, "deadline exceeded")
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
