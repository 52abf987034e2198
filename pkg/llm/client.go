package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmylchreest/distill/internal/logger"
	"github.com/jmylchreest/distill/pkg/prompt"
)

// ClientConfig holds the sampling settings applied to every prompt.
type ClientConfig struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
	// StructuredOutput sends the prompt's JSON schema to the provider.
	StructuredOutput bool
	StrictMode       bool
}

// DefaultClientConfig returns the sampling defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Temperature:      0.1,
		TopP:             0.95,
		MaxTokens:        1024,
		StructuredOutput: true,
	}
}

// Client turns built prompts into provider requests.
type Client struct {
	provider Provider
	cfg      ClientConfig
}

// NewClient creates a Client for provider.
func NewClient(provider Provider, cfg ClientConfig) *Client {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultClientConfig().MaxTokens
	}
	return &Client{provider: provider, cfg: cfg}
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}

// Complete sends p to the model and returns the raw response.
func (c *Client) Complete(ctx context.Context, p prompt.Prompt) (*Response, error) {
	req := Request{
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
		StrictMode:  c.cfg.StrictMode,
	}
	if p.System != "" {
		req.Messages = append(req.Messages, Message{Role: RoleSystem, Content: p.System})
	}
	req.Messages = append(req.Messages, Message{Role: RoleUser, Content: p.User})
	if c.cfg.StructuredOutput {
		req.JSONSchema = p.JSONSchema
	}

	logger.DebugContext(ctx, "sending prompt",
		"provider", c.provider.Name(),
		"model", c.provider.Model(),
		"mode", p.Mode,
		"prompt_bytes", len(p.User),
		"structured", req.JSONSchema != nil)

	resp, err := c.provider.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, fmt.Errorf("%s: %w (finish reason %q)", c.provider.Name(), ErrEmptyResponse, resp.FinishReason)
	}

	logger.DebugContext(ctx, "model response",
		"provider", c.provider.Name(),
		"model", resp.Model,
		"finish_reason", resp.FinishReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"duration", resp.Duration)

	return resp, nil
}
