package scoring

import (
	"math"
	"strings"

	"github.com/fmuoria/doc-compare-agent/internal/models"
)

// Status thresholds on the 0-100 score scale
const (
	ExcellentThreshold = 85.0
	GoodThreshold      = 70.0
)

// Coverage weights of the base score formula
const (
	specCoverageWeight     = 0.4
	responseCoverageWeight = 0.4
	coverageRatioWeight    = 0.2
)

// Coverage is the keyword-presence breakdown of one category
type Coverage struct {
	Keywords         int
	SpecMatches      int
	ResponseMatches  int
	SpecCoverage     float64
	ResponseCoverage float64
	CoverageRatio    float64
	BaseScore        float64 // 0-100, before jitter and clamping
}

// Option configures a CategoryScorer
type Option func(*CategoryScorer)

// WithRubric replaces the default rubric
func WithRubric(r *Rubric) Option {
	return func(s *CategoryScorer) {
		if r != nil {
			s.rubric = r
		}
	}
}

// WithJitter sets the score perturbation source
func WithJitter(j Jitter) Option {
	return func(s *CategoryScorer) {
		if j != nil {
			s.jitter = j
		}
	}
}

// CategoryScorer scores a response against a specification by keyword coverage
type CategoryScorer struct {
	rubric *Rubric
	jitter Jitter
}

// NewCategoryScorer creates a scorer with the default rubric and no jitter
func NewCategoryScorer(opts ...Option) *CategoryScorer {
	s := &CategoryScorer{
		rubric: DefaultRubric(),
		jitter: NoJitter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rubric returns the rubric the scorer was built with
func (s *CategoryScorer) Rubric() *Rubric {
	return s.rubric
}

// Score compares specText with responseText and returns the weighted category report
func (s *CategoryScorer) Score(specText, responseText string) models.ComparisonReport {
	specLower := strings.ToLower(specText)
	responseLower := strings.ToLower(responseText)

	categories := s.rubric.Categories()
	results := make([]models.CategoryResult, 0, len(categories))

	for i, cat := range categories {
		cov := ComputeCoverage(specLower, responseLower, cat.Keywords)
		score := Clamp(cov.BaseScore + s.jitter.Perturb())
		status := Classify(score)

		results = append(results, models.CategoryResult{
			ID:            i + 1,
			Name:          cat.Name,
			Weight:        cat.Weight,
			Score:         score,
			WeightedScore: Round1(score * cat.Weight),
			Status:        status,
			KeyFinding:    s.rubric.Finding(cat.Name, status),
		})
	}

	overall := OverallScore(results)
	return models.ComparisonReport{
		Categories:   results,
		OverallScore: overall,
		Summary:      Summarize(results, overall),
		Method:       models.MethodRuleBased,
	}
}

// ComputeCoverage counts binary keyword presence in both lower-cased texts
func ComputeCoverage(specLower, responseLower string, keywords []string) Coverage {
	cov := Coverage{Keywords: len(keywords)}
	if len(keywords) == 0 {
		return cov
	}

	for _, kw := range keywords {
		if strings.Contains(specLower, kw) {
			cov.SpecMatches++
		}
		if strings.Contains(responseLower, kw) {
			cov.ResponseMatches++
		}
	}

	n := float64(len(keywords))
	cov.SpecCoverage = float64(cov.SpecMatches) / n
	cov.ResponseCoverage = float64(cov.ResponseMatches) / n

	if cov.SpecMatches > 0 {
		cov.CoverageRatio = float64(cov.ResponseMatches) / float64(cov.SpecMatches)
	} else {
		cov.CoverageRatio = cov.ResponseCoverage
	}

	cov.BaseScore = (cov.SpecCoverage*specCoverageWeight +
		cov.ResponseCoverage*responseCoverageWeight +
		cov.CoverageRatio*coverageRatioWeight) * 100

	return cov
}

// Classify maps a 0-100 score to its status tier
func Classify(score float64) models.Status {
	switch {
	case score >= ExcellentThreshold:
		return models.StatusExcellent
	case score >= GoodThreshold:
		return models.StatusGood
	default:
		return models.StatusCriticalGap
	}
}

// OverallScore sums the weighted scores and rounds to one decimal
func OverallScore(results []models.CategoryResult) float64 {
	var total float64
	for _, r := range results {
		total += r.WeightedScore
	}
	return Round1(total)
}

// Clamp bounds a score to [0, 100]
func Clamp(score float64) float64 {
	return math.Min(100, math.Max(0, score))
}

// Round1 rounds to one decimal place
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
