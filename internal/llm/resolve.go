package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider names accepted by Resolve
const (
	ProviderAICore    = "aicore"
	ProviderVertexAI  = "vertexai"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderMock      = "mock"
	ProviderNone      = "none"
)

// Options carries everything needed to build any supported provider
type Options struct {
	Provider string
	Model    string

	AICore   AICoreConfig
	VertexAI VertexAIConfig

	AnthropicAPIKey  string
	AnthropicBaseURL string
	OpenAIAPIKey     string
	OpenAIBaseURL    string

	Retry RetryConfig

	// MockResponse is returned by the mock provider
	MockResponse string
}

// Resolve builds the configured provider wrapped with retries.
// It returns a nil Provider and no error for "none".
func Resolve(ctx context.Context, opts Options) (Provider, error) {
	var (
		p   Provider
		err error
	)

	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case ProviderNone:
		return nil, nil
	case "", ProviderAICore:
		p, err = NewAICoreProvider(opts.AICore)
	case ProviderVertexAI:
		cfg := opts.VertexAI
		if cfg.Model == "" {
			cfg.Model = opts.Model
		}
		p, err = NewVertexAIProvider(ctx, cfg)
	case ProviderAnthropic:
		p, err = NewAnthropicProvider(opts.AnthropicAPIKey, opts.Model, opts.AnthropicBaseURL)
	case ProviderOpenAI:
		p, err = NewOpenAIProvider(opts.OpenAIAPIKey, opts.Model, opts.OpenAIBaseURL)
	case ProviderMock:
		return &MockProvider{Response: opts.MockResponse}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewResilientProvider(p, opts.Retry), nil
}
