package llm

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
)

// RetryConfig bounds retries and total time spent on one Generate call
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Timeout      time.Duration
}

// DefaultRetryConfig returns the retry settings used when none are configured
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  2,
		InitialDelay: time.Second,
		Timeout:      300 * time.Second,
	}
}

// ResilientProvider retries failed generations with exponential backoff under an overall timeout
type ResilientProvider struct {
	inner Provider
	cfg   RetryConfig
}

// NewResilientProvider wraps inner. Zero fields of cfg take their defaults.
func NewResilientProvider(inner Provider, cfg RetryConfig) *ResilientProvider {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &ResilientProvider{inner: inner, cfg: cfg}
}

func (p *ResilientProvider) Name() string {
	return p.inner.Name()
}

// Unwrap returns the wrapped provider
func (p *ResilientProvider) Unwrap() Provider {
	return p.inner
}

func (p *ResilientProvider) Generate(ctx context.Context, prompt string, s Settings) (string, error) {
	r := retry.New[string](retry.Config{
		MaxAttempts:   p.cfg.MaxAttempts,
		InitialDelay:  p.cfg.InitialDelay,
		BackoffPolicy: retry.BackoffExponential,
	})
	t := timeout.New[string](timeout.Config{
		DefaultTimeout: p.cfg.Timeout,
	})

	return t.Execute(ctx, p.cfg.Timeout, func(ctx context.Context) (string, error) {
		return r.Do(ctx, func(ctx context.Context) (string, error) {
			return p.inner.Generate(ctx, prompt, s)
		})
	})
}

// ListDeployments delegates to the wrapped provider when it can list deployments
func (p *ResilientProvider) ListDeployments(ctx context.Context) (*DeploymentList, error) {
	if l, ok := p.inner.(DeploymentLister); ok {
		return l.ListDeployments(ctx)
	}
	return nil, ErrNotSupported
}
