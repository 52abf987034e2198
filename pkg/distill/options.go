// Package distill summarizes and extracts structured data from PDFs, web
// pages and plain text using a language model.
package distill

import (
	"time"

	"github.com/jmylchreest/distill/pkg/cleaner"
	"github.com/jmylchreest/distill/pkg/fetcher"
	"github.com/jmylchreest/distill/pkg/llm"
)

// Config holds all Distiller configuration.
type Config struct {
	// LLM settings. An empty Provider is detected from the environment.
	Provider          string
	Model             string
	APIKey            string
	BaseURL           string
	Temperature       float64
	TopP              float64
	MaxTokens         int
	LLMTimeout        time.Duration
	MaxRetries        int
	RequestsPerMinute int
	StructuredOutput  bool
	StrictMode        bool

	// Fetch settings for URL sources
	FetchMode   fetcher.Mode
	CleanerName string
	UserAgent   string
	Timeout     time.Duration

	// Prompt settings
	DefaultMaxLength int
	MaxContentSize   int

	// Injected components, mainly for tests
	LLM     llm.Provider
	Fetcher fetcher.Fetcher
	Cleaner cleaner.Cleaner
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	client := llm.DefaultClientConfig()
	return Config{
		Temperature:       client.Temperature,
		TopP:              client.TopP,
		MaxTokens:         client.MaxTokens,
		LLMTimeout:        120 * time.Second,
		MaxRetries:        3,
		RequestsPerMinute: 60,
		StructuredOutput:  true,
		FetchMode:         fetcher.ModeStatic,
		CleanerName:       cleaner.NameText,
		Timeout:           10 * time.Second,
		DefaultMaxLength:  1000,
		MaxContentSize:    100_000,
	}
}

// Option configures a Distiller.
type Option func(*Config)

// WithConfig replaces the whole configuration. Later options still apply.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithProvider sets the LLM provider.
func WithProvider(provider string) Option {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithModel sets the LLM model.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithTemperature sets the LLM temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithMaxTokens sets the response token budget.
func WithMaxTokens(n int) Option {
	return func(c *Config) {
		c.MaxTokens = n
	}
}

// WithMaxRetries sets how often a rate-limited request is retried.
func WithMaxRetries(n int) Option {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// WithFetchMode sets the fetch mode (auto, static, dynamic).
func WithFetchMode(mode fetcher.Mode) Option {
	return func(c *Config) {
		c.FetchMode = mode
	}
}

// WithCleanerName selects the HTML cleaner by name.
func WithCleanerName(name string) Option {
	return func(c *Config) {
		c.CleanerName = name
	}
}

// WithLLM uses an existing provider instead of creating one.
func WithLLM(p llm.Provider) Option {
	return func(c *Config) {
		c.LLM = p
	}
}

// WithFetcher uses f for every URL source.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

// WithCleaner uses an existing HTML cleaner.
func WithCleaner(cl cleaner.Cleaner) Option {
	return func(c *Config) {
		c.Cleaner = cl
	}
}
