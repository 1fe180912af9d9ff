// Package bootstrap assembles the comparison service, batch agent and providers from a Config.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fmuoria/doc-compare-agent/internal/agent"
	"github.com/fmuoria/doc-compare-agent/internal/analysis"
	"github.com/fmuoria/doc-compare-agent/internal/comparison"
	"github.com/fmuoria/doc-compare-agent/internal/config"
	"github.com/fmuoria/doc-compare-agent/internal/ingestion"
	"github.com/fmuoria/doc-compare-agent/internal/llm"
	"github.com/fmuoria/doc-compare-agent/internal/logging"
	"github.com/fmuoria/doc-compare-agent/internal/metrics"
	"github.com/fmuoria/doc-compare-agent/internal/scoring"
)

// Options adjusts how components are built
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Manager

	// RuleBased skips the LLM provider entirely
	RuleBased bool
}

// Components is everything a front end needs to run comparisons
type Components struct {
	Config      *config.Config
	Provider    llm.Provider // nil when running rule-based only
	Scorer      *scoring.CategoryScorer
	Service     *comparison.Service
	Agent       *agent.ComparisonAgent
	Deployments llm.DeploymentLister
	Metrics     *metrics.Manager
}

// Build wires the configured provider, scorer, comparison service and batch agent
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Components, error) {
	logger := logging.OrDiscard(opts.Logger)

	scorer, err := NewScorer(cfg)
	if err != nil {
		return nil, err
	}

	var provider llm.Provider
	if !opts.RuleBased {
		provider, err = llm.Resolve(ctx, cfg.LLMOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", cfg.LLM.Provider, err)
		}
	}

	svcOpts := comparison.Options{
		Scorer:    scorer,
		Fallback:  cfg.FallbackPolicy(),
		ModelName: cfg.LLM.ModelName,
		Metrics:   opts.Metrics,
		Logger:    logger.With(slog.String("component", "comparison")),
	}

	c := &Components{
		Config:   cfg,
		Provider: provider,
		Scorer:   scorer,
		Metrics:  opts.Metrics,
	}

	if provider != nil {
		svcOpts.Analyzer = analysis.NewAnalyzer(provider, analysis.Config{
			DefaultModel: cfg.EffectiveModel(),
			Temperature:  llm.Float64(cfg.LLM.Temperature),
			MaxTokens:    cfg.LLM.MaxTokens,
		}, logger.With(slog.String("component", "analysis")))

		if lister, ok := provider.(llm.DeploymentLister); ok {
			c.Deployments = lister
		}
		logger.Info("llm provider ready", slog.String("provider", provider.Name()))
	} else {
		logger.Info("running with the rule-based scorer only")
	}

	c.Service = comparison.NewService(svcOpts)
	c.Agent = agent.NewComparisonAgent(agent.Options{
		Comparer:     c.Service,
		FileHandler:  ingestion.NewFileHandler(cfg.UploadsDir, logger),
		Gmail:        GmailFactory(cfg, logger),
		DeploymentID: cfg.EffectiveModel(),
		RequestDelay: cfg.Agent.RequestDelay,
		MaxRetries:   cfg.Agent.MaxRetries,
		RetryBackoff: cfg.Agent.RetryBackoff,
		Metrics:      opts.Metrics,
		Logger:       logger.With(slog.String("component", "agent")),
	})

	return c, nil
}

// NewScorer builds the rule-based scorer from the rubric and jitter settings
func NewScorer(cfg *config.Config) (*scoring.CategoryScorer, error) {
	rubric := scoring.DefaultRubric()
	if cfg.RubricPath != "" {
		r, err := scoring.LoadRubric(cfg.RubricPath)
		if err != nil {
			return nil, err
		}
		rubric = r
	}

	opts := []scoring.Option{scoring.WithRubric(rubric)}
	if cfg.Scoring.Jitter > 0 {
		opts = append(opts, scoring.WithJitter(scoring.NewSeededJitter(cfg.Scoring.Seed, cfg.Scoring.Jitter)))
	}
	return scoring.NewCategoryScorer(opts...), nil
}

// GmailFactory returns an agent.GmailFactory backed by the Gmail API
func GmailFactory(cfg *config.Config, logger *slog.Logger) agent.GmailFactory {
	return func(ctx context.Context, progress ingestion.ProgressFunc) (agent.AttachmentFetcher, error) {
		gh, err := ingestion.NewGmailHandlerWithCallback(ctx, ingestion.GmailOptions{
			CredentialsPath: cfg.Google.GmailCredentialsPath,
			TokenPath:       cfg.Google.GmailTokenPath,
			UploadsDir:      cfg.UploadsDir,
		}, progress, logger)
		if err != nil {
			return nil, err
		}
		return gh, nil
	}
}

// Close releases provider resources
func (c *Components) Close() error {
	if c == nil || c.Provider == nil {
		return nil
	}
	p := c.Provider
	if u, ok := p.(interface{ Unwrap() llm.Provider }); ok {
		p = u.Unwrap()
	}
	if closer, ok := p.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
