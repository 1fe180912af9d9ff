// Package comparison runs a full specification/response comparison and wraps the report with metadata.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fmuoria/doc-compare-agent/internal/ingestion"
	"github.com/fmuoria/doc-compare-agent/internal/logging"
	"github.com/fmuoria/doc-compare-agent/internal/metrics"
	"github.com/fmuoria/doc-compare-agent/internal/models"
	"github.com/fmuoria/doc-compare-agent/internal/scoring"
)

// Version is stamped into every comparison envelope
const Version = "1.0.0"

// ErrAnalysisFailed is returned when AI analysis fails and no fallback is allowed
var ErrAnalysisFailed = errors.New("AI analysis failed")

// FallbackPolicy decides what happens when AI analysis fails
type FallbackPolicy string

const (
	FallbackDisabled  FallbackPolicy = "disabled"
	FallbackRuleBased FallbackPolicy = "rule-based"
)

// ParseFallbackPolicy validates a policy name; empty means disabled
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch p := FallbackPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FallbackDisabled, nil
	case FallbackDisabled, FallbackRuleBased:
		return p, nil
	default:
		return "", fmt.Errorf("unknown fallback policy %q (want %q or %q)", s, FallbackDisabled, FallbackRuleBased)
	}
}

// Analyzer produces AI comparison reports
type Analyzer interface {
	Analyze(ctx context.Context, specText, responseText, deploymentID string) (models.ComparisonReport, error)
	ProviderName() string
	ResolveModel(deploymentID string) string
}

// Options wires the service's collaborators. Only Scorer is required; a nil Analyzer means rule-based only.
type Options struct {
	Analyzer  Analyzer
	Scorer    *scoring.CategoryScorer
	Fallback  FallbackPolicy
	ModelName string // display name of the AI model, defaults to the resolved model ID
	Metrics   *metrics.Manager
	Logger    *slog.Logger

	Now   func() time.Time
	NewID func() string
}

// Service compares documents
type Service struct {
	analyzer  Analyzer
	scorer    *scoring.CategoryScorer
	fallback  FallbackPolicy
	modelName string
	metrics   *metrics.Manager
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewService creates a comparison service
func NewService(opts Options) *Service {
	s := &Service{
		analyzer:  opts.Analyzer,
		scorer:    opts.Scorer,
		fallback:  opts.Fallback,
		modelName: opts.ModelName,
		metrics:   opts.Metrics,
		logger:    logging.OrDiscard(opts.Logger),
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if s.scorer == nil {
		s.scorer = scoring.NewCategoryScorer()
	}
	if s.fallback == "" {
		s.fallback = FallbackDisabled
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// HasAnalyzer reports whether AI analysis is configured
func (s *Service) HasAnalyzer() bool {
	return s.analyzer != nil
}

// CompareDocuments cleans both texts, scores them and returns the envelope
func (s *Service) CompareDocuments(ctx context.Context, specText, responseText, deploymentID string) (*models.ComparisonResult, error) {
	start := s.now()

	cleanedSpec := ingestion.CleanText(specText)
	cleanedResponse := ingestion.CleanText(responseText)
	stats := models.DocumentStatsPair{
		Specification: ingestion.GetDocumentStats(cleanedSpec),
		Response:      ingestion.GetDocumentStats(cleanedResponse),
	}
	s.logger.Debug("document stats",
		slog.Int("spec_words", stats.Specification.Words),
		slog.Int("response_words", stats.Response.Words))

	meta := models.ComparisonMetadata{
		ID:      s.newID(),
		Version: Version,
	}

	var report models.ComparisonReport
	outcome := metrics.OutcomeSuccess

	if s.analyzer == nil {
		report = s.scorer.Score(cleanedSpec, cleanedResponse)
	} else {
		model := s.analyzer.ResolveModel(deploymentID)
		meta.DeploymentID = model
		meta.Provider = s.analyzer.ProviderName()
		meta.ModelName = s.modelName
		if meta.ModelName == "" {
			meta.ModelName = model
		}

		var err error
		report, err = s.analyzer.Analyze(ctx, cleanedSpec, cleanedResponse, model)
		if err != nil {
			if ctx.Err() != nil || s.fallback != FallbackRuleBased {
				s.metrics.RecordComparison(string(models.MethodAI), metrics.OutcomeFailure, s.now().Sub(start), 0)
				s.logger.Error("AI analysis failed", slog.String("deployment_id", model), slog.Any("error", err))
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, fmt.Errorf("comparison failed: %w", ctxErr)
				}
				return nil, fmt.Errorf("comparison failed: %w: %w", ErrAnalysisFailed, err)
			}

			s.logger.Warn("AI analysis failed, using rule-based scorer", slog.String("deployment_id", model), slog.Any("error", err))
			report = s.scorer.Score(cleanedSpec, cleanedResponse)
			meta.FallbackReason = err.Error()
			outcome = metrics.OutcomeFallback
		}
	}

	meta.Method = report.Method
	meta.Timestamp = s.now().UTC()

	s.metrics.RecordComparison(string(report.Method), outcome, s.now().Sub(start), report.OverallScore)
	s.logger.Info("comparison completed",
		slog.String("id", meta.ID),
		slog.String("method", string(report.Method)),
		slog.Float64("overall_score", report.OverallScore))

	return &models.ComparisonResult{
		ComparisonReport: report,
		DocumentStats:    stats,
		Metadata:         meta,
	}, nil
}
