package llm

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

const (
	DefaultVertexLocation = "us-central1"
	DefaultVertexModel    = "gemini-1.5-flash"
)

// VertexAIConfig selects the Google Cloud project and model
type VertexAIConfig struct {
	ProjectID string
	Location  string
	Model     string
}

// VertexAIProvider wraps the Vertex AI Gemini API
type VertexAIProvider struct {
	client       *genai.Client
	defaultModel string
	projectID    string
	location     string
}

// NewVertexAIProvider creates a new Vertex AI client
func NewVertexAIProvider(ctx context.Context, cfg VertexAIConfig) (*VertexAIProvider, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("google cloud project not set")
	}
	if cfg.Location == "" {
		cfg.Location = DefaultVertexLocation
	}
	if cfg.Model == "" {
		cfg.Model = DefaultVertexModel
	}

	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	return &VertexAIProvider{
		client:       client,
		defaultModel: cfg.Model,
		projectID:    cfg.ProjectID,
		location:     cfg.Location,
	}, nil
}

func (v *VertexAIProvider) Name() string { return "vertexai" }

// Generate sends a prompt to the model and returns the response text
func (v *VertexAIProvider) Generate(ctx context.Context, prompt string, s Settings) (string, error) {
	name := s.Model
	if name == "" {
		name = v.defaultModel
	}

	model := v.client.GenerativeModel(name)
	if s.Temperature != nil {
		model.SetTemperature(float32(*s.Temperature))
	}
	model.SetTopK(40)
	model.SetTopP(0.95)
	if s.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(s.MaxTokens))
	}
	if s.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(s.System)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates returned")
	}

	var result strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			result.WriteString(string(text))
		}
	}

	return result.String(), nil
}

// Close closes the Vertex AI client
func (v *VertexAIProvider) Close() error {
	return v.client.Close()
}
