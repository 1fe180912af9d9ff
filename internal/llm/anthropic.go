package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/liushuangls/go-anthropic/v2"
)

const DefaultAnthropicModel = "claude-3-7-sonnet-latest"

// AnthropicProvider calls the Anthropic Messages API directly
type AnthropicProvider struct {
	client       *anthropic.Client
	defaultModel string
}

// NewAnthropicProvider creates a provider. An empty apiKey falls back to ANTHROPIC_API_KEY.
func NewAnthropicProvider(apiKey, model, baseURL string) (*AnthropicProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key not set")
	}
	if model == "" {
		model = DefaultAnthropicModel
	}

	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}

	return &AnthropicProvider{
		client:       anthropic.NewClient(apiKey, opts...),
		defaultModel: model,
	}, nil
}

func (a *AnthropicProvider) Name() string { return "anthropic" }

func (a *AnthropicProvider) Generate(ctx context.Context, prompt string, s Settings) (string, error) {
	model := s.Model
	if model == "" {
		model = a.defaultModel
	}
	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultAICoreMaxTokens
	}
	var temperature *float32
	if s.Temperature != nil {
		t := float32(*s.Temperature)
		temperature = &t
	}

	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(model),
		System:      s.System,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(prompt)},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	for _, c := range resp.Content {
		if c.Text != nil && *c.Text != "" {
			return *c.Text, nil
		}
	}
	return "", fmt.Errorf("no response content")
}
