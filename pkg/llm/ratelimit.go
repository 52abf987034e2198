package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/jmylchreest/distill/internal/logger"
)

// Retry defaults for rate-limited requests.
const (
	DefaultBaseRetryDelay = 1 * time.Second
	DefaultMaxRetryDelay  = 32 * time.Second
)

// RateLimitConfig configures RateLimited.
type RateLimitConfig struct {
	RequestsPerMinute int // 0 disables client-side limiting
	MaxRetries        int // retries after a 429, not counting the first attempt
	BaseDelay         time.Duration
	MaxDelay          time.Duration
}

// RateLimited wraps a Provider with a request limiter and retries on 429
// responses with exponential backoff. Other errors are returned as is.
type RateLimited struct {
	Provider
	limiter *rate.Limiter
	cfg     RateLimitConfig
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewRateLimited wraps p. The limiter is shared by all callers of the wrapper.
func NewRateLimited(p Provider, cfg RateLimitConfig) *RateLimited {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseRetryDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxRetryDelay
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
		burst = max(1, cfg.RequestsPerMinute/10)
	}

	return &RateLimited{
		Provider: p,
		limiter:  rate.NewLimiter(limit, burst),
		cfg:      cfg,
		sleep:    sleepContext,
	}
}

// Execute waits for the limiter, then calls the wrapped provider.
func (r *RateLimited) Execute(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.backoff(attempt)
			logger.Info("retrying rate-limited request",
				"provider", r.Name(),
				"attempt", attempt,
				"max_retries", r.cfg.MaxRetries,
				"delay", delay)
			if err := r.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		resp, err := r.Provider.Execute(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsRateLimited(err) {
			return nil, err
		}
		logger.Warn("provider rate limit", "provider", r.Name(), "attempt", attempt+1, "error", err)
	}

	return nil, fmt.Errorf("max retries (%d) exceeded, last error: %w", r.cfg.MaxRetries, lastErr)
}

// backoff returns BaseDelay * 2^(attempt-1), capped at MaxDelay.
func (r *RateLimited) backoff(attempt int) time.Duration {
	delay := r.cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= r.cfg.MaxDelay {
			return r.cfg.MaxDelay
		}
	}
	return min(delay, r.cfg.MaxDelay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
