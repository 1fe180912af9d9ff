package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fmuoria/doc-compare-agent/internal/llm"
	"github.com/fmuoria/doc-compare-agent/internal/logging"
	"github.com/fmuoria/doc-compare-agent/internal/models"
)

// Analyzer produces AI comparison reports through an LLM provider
type Analyzer struct {
	provider     llm.Provider
	defaultModel string
	temperature  *float64
	maxTokens    int
	logger       *slog.Logger
}

// Config tunes generation for the analyzer
type Config struct {
	DefaultModel string   // model name, or AI Core deployment ID
	Temperature  *float64 // nil selects DefaultAICoreTemperature
	MaxTokens    int
}

// NewAnalyzer creates an analyzer over provider
func NewAnalyzer(provider llm.Provider, cfg Config, logger *slog.Logger) *Analyzer {
	if cfg.Temperature == nil {
		cfg.Temperature = llm.Float64(llm.DefaultAICoreTemperature)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = llm.DefaultAICoreMaxTokens
	}
	return &Analyzer{
		provider:     provider,
		defaultModel: cfg.DefaultModel,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		logger:       logging.OrDiscard(logger),
	}
}

// ProviderName returns the name of the underlying provider
func (a *Analyzer) ProviderName() string {
	return a.provider.Name()
}

// ResolveModel returns deploymentID, or the configured default when it is empty
func (a *Analyzer) ResolveModel(deploymentID string) string {
	if deploymentID != "" {
		return deploymentID
	}
	return a.defaultModel
}

// Analyze asks the model to compare the documents and parses its reply
func (a *Analyzer) Analyze(ctx context.Context, specText, responseText, deploymentID string) (models.ComparisonReport, error) {
	system, user := BuildPrompts(specText, responseText)
	model := a.ResolveModel(deploymentID)

	text, err := a.provider.Generate(ctx, user, llm.Settings{
		Model:       model,
		System:      system,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		return models.ComparisonReport{}, fmt.Errorf("AI analysis failed: %w", err)
	}

	parsed, err := ParseReport(text)
	if err != nil {
		a.logger.Warn("unusable model reply", slog.String("model", model), slog.Int("reply_length", len(text)), slog.Any("error", err))
		return models.ComparisonReport{}, err
	}
	for _, issue := range parsed.SchemaIssues {
		a.logger.Debug("model reply schema issue", slog.String("issue", issue))
	}

	return parsed.Report, nil
}
