package distill

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jmylchreest/distill/internal/logger"
	"github.com/jmylchreest/distill/pkg/cleaner"
	"github.com/jmylchreest/distill/pkg/fetcher"
	"github.com/jmylchreest/distill/pkg/llm"
	"github.com/jmylchreest/distill/pkg/prompt"
	"github.com/jmylchreest/distill/pkg/response"
	"github.com/jmylchreest/distill/pkg/schema"
	"github.com/jmylchreest/distill/pkg/source"
)

// SummarizeRequest asks for a summary of one source.
type SummarizeRequest struct {
	Input           source.Input
	MaxLength       int // words, 0 uses the configured default
	IncludeMetadata bool
}

// ExtractRequest asks for structured data from one source.
type ExtractRequest struct {
	Input              source.Input
	Mode               prompt.Mode
	CustomInstructions string
	Schema             *schema.Schema // optional, custom mode only
	IncludeContext     bool
}

// Distiller runs the normalize, prompt, model and validate pipeline.
type Distiller struct {
	normalizer *source.Normalizer
	builder    *prompt.Builder
	client     *llm.Client
	validator  *response.Validator
	config     Config
}

// New creates a Distiller.
func New(opts ...Option) (*Distiller, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	provider := cfg.LLM
	if provider == nil {
		var err error
		provider, err = newProvider(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider: %w", err)
		}
	}
	limited := llm.NewRateLimited(provider, llm.RateLimitConfig{
		RequestsPerMinute: cfg.RequestsPerMinute,
		MaxRetries:        cfg.MaxRetries,
	})

	cl := cfg.Cleaner
	if cl == nil {
		var err error
		cl, err = cleaner.New(cfg.CleanerName)
		if err != nil {
			return nil, err
		}
	}

	normOpts := []source.Option{
		source.WithFetchConfig(fetcher.Config{UserAgent: cfg.UserAgent, Timeout: cfg.Timeout}),
		source.WithFetchMode(cfg.FetchMode),
		source.WithCleaner(cl),
	}
	if cfg.Fetcher != nil {
		normOpts = append(normOpts, source.WithFetcher(cfg.Fetcher))
	}

	validator, err := response.NewValidator()
	if err != nil {
		return nil, err
	}

	logger.Debug("distiller created",
		"provider", provider.Name(),
		"model", provider.Model(),
		"fetch_mode", cfg.FetchMode,
		"cleaner", cl.Name())

	return &Distiller{
		normalizer: source.NewNormalizer(normOpts...),
		builder: prompt.NewBuilder(prompt.Config{
			MaxTokens:        cfg.MaxTokens,
			MaxContentSize:   cfg.MaxContentSize,
			DefaultMaxLength: cfg.DefaultMaxLength,
		}),
		client: llm.NewClient(limited, llm.ClientConfig{
			Temperature:      cfg.Temperature,
			TopP:             cfg.TopP,
			MaxTokens:        cfg.MaxTokens,
			StructuredOutput: cfg.StructuredOutput,
			StrictMode:       cfg.StrictMode,
		}),
		validator: validator,
		config:    cfg,
	}, nil
}

func newProvider(cfg Config) (llm.Provider, error) {
	name, apiKey := cfg.Provider, cfg.APIKey
	if name == "" {
		var detected string
		name, detected = llm.DetectProvider()
		if apiKey == "" {
			apiKey = detected
		}
	}
	if apiKey == "" {
		apiKey = llm.APIKeyFromEnv(name)
	}

	pc := llm.DefaultProviderConfig()
	pc.APIKey = apiKey
	pc.BaseURL = cfg.BaseURL
	pc.Model = cfg.Model
	pc.MaxRetries = cfg.MaxRetries
	pc.AppTitle = "distill"
	if cfg.LLMTimeout > 0 {
		pc.Timeout = cfg.LLMTimeout
	}
	return llm.NewProvider(name, pc)
}

// Provider returns the name and model of the configured LLM provider.
func (d *Distiller) Provider() (name, model string) {
	p := d.client.Provider()
	return p.Name(), p.Model()
}

// Close releases fetcher resources.
func (d *Distiller) Close() error {
	return d.normalizer.Close()
}

// Summarize produces a summary of the request's source.
func (d *Distiller) Summarize(ctx context.Context, req SummarizeRequest) (*response.SummaryResponse, error) {
	const op = "summarize"
	start := time.Now()

	doc, err := d.normalizer.Normalize(ctx, req.Input)
	if err != nil {
		return nil, classify(op, err)
	}

	p, err := d.builder.Build(prompt.ModeSummary, doc, prompt.Options{MaxLength: req.MaxLength})
	if err != nil {
		return nil, classify(op, err)
	}

	raw, err := d.client.Complete(ctx, p)
	if err != nil {
		logger.ErrorContext(ctx, "summary generation failed", "source_type", doc.Type, "error", err)
		return nil, modelError(op, err)
	}

	resp, err := d.validator.Summary(raw.Content)
	if err != nil {
		return nil, &Error{Kind: KindModel, Op: op, Err: err}
	}

	resp.Title = doc.Title
	if req.IncludeMetadata {
		resp.Metadata = doc.InfoMap()
		resp.Metadata["source_type"] = string(doc.Type)
	}

	logger.InfoContext(ctx, "summary complete",
		"source_type", doc.Type,
		"input_words", doc.WordCount,
		"summary_words", resp.WordCount,
		"duration", time.Since(start))

	return resp, nil
}

// Extract produces structured data from the request's source. Source
// failures are returned as errors; prompt, model and validation failures
// are reported in the response with Success false.
func (d *Distiller) Extract(ctx context.Context, req ExtractRequest) (*response.ExtractionResponse, error) {
	const op = "extract"
	start := time.Now()

	if !slices.Contains(prompt.ExtractionModes, req.Mode) {
		return nil, &Error{Kind: KindInvalid, Op: op, Err: fmt.Errorf("%w: %q", prompt.ErrUnknownMode, req.Mode)}
	}

	doc, err := d.normalizer.Normalize(ctx, req.Input)
	if err != nil {
		return nil, classify(op, err)
	}

	out := response.NewExtractionResponse(req.Mode, doc.Type)

	res, err := d.extract(ctx, req, doc)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, classify(op, err)
		}
		logger.ErrorContext(ctx, "extraction failed", "mode", req.Mode, "source_type", doc.Type, "error", err)
		out.Context = failureContext(req.Mode, err)
		return out, nil
	}

	out.Apply(res)
	if req.IncludeContext {
		out.Context = doc.Context()
	}

	logger.InfoContext(ctx, "extraction complete",
		"mode", req.Mode,
		"source_type", doc.Type,
		"key_points", len(out.KeyValuePairs),
		"entities", len(out.Entities),
		"warnings", len(out.Warnings),
		"duration", time.Since(start))

	return out, nil
}

func (d *Distiller) extract(ctx context.Context, req ExtractRequest, doc *source.Document) (response.Result, error) {
	p, err := d.builder.Build(req.Mode, doc, prompt.Options{
		CustomInstructions: req.CustomInstructions,
		Schema:             req.Schema,
	})
	if err != nil {
		return response.Result{}, err
	}

	raw, err := d.client.Complete(ctx, p)
	if err != nil {
		return response.Result{}, err
	}

	return d.validator.Extraction(req.Mode, raw.Content, req.Schema)
}

// failureContext describes an in-band extraction failure.
func failureContext(mode prompt.Mode, err error) string {
	switch mode {
	case prompt.ModeKeyPoints:
		return "Error extracting key points: " + err.Error()
	case prompt.ModeEntities:
		return "Error extracting entities: " + err.Error()
	default:
		return "Error performing custom extraction: " + err.Error()
	}
}
