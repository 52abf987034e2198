// Package config loads distill settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"

	"github.com/jmylchreest/distill/pkg/distill"
	"github.com/jmylchreest/distill/pkg/fetcher"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "DISTILL_"

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig     `envPrefix:"SERVER_"`
	LLM        LLMConfig        `envPrefix:"LLM_"`
	Fetch      FetchConfig      `envPrefix:"FETCH_"`
	Extraction ExtractionConfig `envPrefix:"EXTRACTION_"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `env:"ADDR"             envDefault:":8000"  validate:"required"`
	APIPrefix       string        `env:"API_PREFIX"       envDefault:"/api"   validate:"omitempty,startswith=/"`
	CORSOrigins     []string      `env:"CORS_ORIGINS"     envDefault:"*"      validate:"dive,required"`
	MaxUploadSize   string        `env:"MAX_UPLOAD_SIZE"  envDefault:"10MB"   validate:"required"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT"     envDefault:"30s"    validate:"gte=0"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT"    envDefault:"180s"   validate:"gte=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"    validate:"gte=0"`
}

// LLMConfig configures the model provider. An empty Provider is detected
// from the provider API key variables.
type LLMConfig struct {
	Provider          string        `env:"PROVIDER"            validate:"omitempty,oneof=gemini openai anthropic openrouter ollama"`
	Model             string        `env:"MODEL"`
	APIKey            string        `env:"API_KEY"`
	BaseURL           string        `env:"BASE_URL"            validate:"omitempty,url"`
	Temperature       float64       `env:"TEMPERATURE"         envDefault:"0.1"  validate:"gte=0,lte=2"`
	TopP              float64       `env:"TOP_P"               envDefault:"0.95" validate:"gte=0,lte=1"`
	MaxTokens         int           `env:"MAX_TOKENS"          envDefault:"1024" validate:"gt=0"`
	Timeout           time.Duration `env:"TIMEOUT"             envDefault:"120s" validate:"gte=0"`
	MaxRetries        int           `env:"MAX_RETRIES"         envDefault:"3"    validate:"gte=0,lte=10"`
	RequestsPerMinute int           `env:"REQUESTS_PER_MINUTE" envDefault:"60"   validate:"gte=0"`
	StructuredOutput  bool          `env:"STRUCTURED_OUTPUT"   envDefault:"true"`
	StrictMode        bool          `env:"STRICT_MODE"`
}

// FetchConfig configures URL sources.
type FetchConfig struct {
	Mode      string        `env:"MODE"       envDefault:"static" validate:"oneof=static dynamic auto"`
	Cleaner   string        `env:"CLEANER"    envDefault:"text"   validate:"oneof=text noop markdown readability trafilatura"`
	Timeout   time.Duration `env:"TIMEOUT"    envDefault:"10s"    validate:"gt=0"`
	UserAgent string        `env:"USER_AGENT"`
}

// ExtractionConfig configures prompt building.
type ExtractionConfig struct {
	DefaultMaxLength int    `env:"DEFAULT_MAX_LENGTH" envDefault:"1000"  validate:"gt=0"`
	MaxContentSize   string `env:"MAX_CONTENT_SIZE"   envDefault:"100KB"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom is Load with an explicit environment. A nil map reads the
// process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the humanized sizes.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.UploadLimit(); err != nil {
		return err
	}
	if _, err := c.ContentLimit(); err != nil {
		return err
	}
	return nil
}

// UploadLimit returns Server.MaxUploadSize in bytes.
func (c *Config) UploadLimit() (int64, error) {
	n, err := humanize.ParseBytes(c.Server.MaxUploadSize)
	if err != nil {
		return 0, fmt.Errorf("invalid max upload size %q: %w", c.Server.MaxUploadSize, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid max upload size %q: must be positive", c.Server.MaxUploadSize)
	}
	return int64(n), nil
}

// ContentLimit returns Extraction.MaxContentSize in bytes. Empty or "0"
// means unlimited.
func (c *Config) ContentLimit() (int, error) {
	s := strings.TrimSpace(c.Extraction.MaxContentSize)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid max content size %q: %w", s, err)
	}
	return int(n), nil
}

// DistillConfig converts the settings into a distill.Config.
func (c *Config) DistillConfig() (distill.Config, error) {
	contentLimit, err := c.ContentLimit()
	if err != nil {
		return distill.Config{}, err
	}

	dc := distill.DefaultConfig()
	dc.Provider = c.LLM.Provider
	dc.Model = c.LLM.Model
	dc.APIKey = c.LLM.APIKey
	dc.BaseURL = c.LLM.BaseURL
	dc.Temperature = c.LLM.Temperature
	dc.TopP = c.LLM.TopP
	dc.MaxTokens = c.LLM.MaxTokens
	dc.LLMTimeout = c.LLM.Timeout
	dc.MaxRetries = c.LLM.MaxRetries
	dc.RequestsPerMinute = c.LLM.RequestsPerMinute
	dc.StructuredOutput = c.LLM.StructuredOutput
	dc.StrictMode = c.LLM.StrictMode
	dc.FetchMode = fetcher.Mode(c.Fetch.Mode)
	dc.CleanerName = c.Fetch.Cleaner
	dc.UserAgent = c.Fetch.UserAgent
	dc.Timeout = c.Fetch.Timeout
	dc.DefaultMaxLength = c.Extraction.DefaultMaxLength
	dc.MaxContentSize = contentLimit
	return dc, nil
}
