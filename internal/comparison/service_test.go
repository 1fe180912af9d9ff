package comparison

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmuoria/doc-compare-agent/internal/analysis"
	"github.com/fmuoria/doc-compare-agent/internal/llm"
	"github.com/fmuoria/doc-compare-agent/internal/metrics"
	"github.com/fmuoria/doc-compare-agent/internal/models"
	"github.com/fmuoria/doc-compare-agent/internal/scoring"
)

const aiReply = `{"categories":[
	{"name":"Content Accuracy","weight":0.5,"score":90,"keyFinding":"Accurate"},
	{"name":"Completeness","weight":0.5,"score":70,"keyFinding":"Mostly complete"}
],"overallScore":80,"summary":"Good match."}`

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

func newTestService(provider llm.Provider, policy FallbackPolicy, m *metrics.Manager) *Service {
	opts := Options{
		Scorer:    scoring.NewCategoryScorer(),
		Fallback:  policy,
		ModelName: "Claude 3.7 Sonnet",
		Metrics:   m,
		Now:       func() time.Time { return fixedNow },
		NewID:     func() string { return "cmp-1" },
	}
	if provider != nil {
		opts.Analyzer = analysis.NewAnalyzer(provider, analysis.Config{DefaultModel: "dc3ee26c175a1d47"}, nil)
	}
	return NewService(opts)
}

func TestCompareDocuments_AI(t *testing.T) {
	mock := &llm.MockProvider{Response: aiReply}
	m := metrics.NewManager()
	svc := newTestService(mock, FallbackDisabled, m)

	result, err := svc.CompareDocuments(context.Background(), "Spec\r\n\r\n\r\n\r\nprocess", "Response workflow", "")
	require.NoError(t, err)

	assert.Equal(t, models.MethodAI, result.Method)
	assert.Equal(t, 80.0, result.OverallScore)
	assert.Equal(t, "Good match.", result.Summary)

	meta := result.Metadata
	assert.Equal(t, "cmp-1", meta.ID)
	assert.Equal(t, "dc3ee26c175a1d47", meta.DeploymentID)
	assert.Equal(t, "mock", meta.Provider)
	assert.Equal(t, "Claude 3.7 Sonnet", meta.ModelName)
	assert.Equal(t, models.MethodAI, meta.Method)
	assert.Equal(t, Version, meta.Version)
	assert.Equal(t, time.UTC, meta.Timestamp.Location())
	assert.True(t, meta.Timestamp.Equal(fixedNow))
	assert.Empty(t, meta.FallbackReason)

	assert.Equal(t, 2, result.DocumentStats.Specification.Words)
	assert.Equal(t, 2, result.DocumentStats.Specification.Paragraphs)
	assert.Equal(t, 2, result.DocumentStats.Response.Words)

	require.Len(t, mock.Prompts(), 1)
	assert.Contains(t, mock.Prompts()[0], "Spec\n\nprocess")

	count, err := testutil.GatherAndCount(m.Registry(), "doccompare_comparisons_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCompareDocuments_DeploymentOverride(t *testing.T) {
	mock := &llm.MockProvider{Response: aiReply}
	svc := newTestService(mock, FallbackDisabled, nil)

	result, err := svc.CompareDocuments(context.Background(), "a", "b", "dep-override")
	require.NoError(t, err)
	assert.Equal(t, "dep-override", result.Metadata.DeploymentID)
	assert.Equal(t, []string{"dep-override"}, mock.Models())
}

func TestCompareDocuments_FallbackDisabled(t *testing.T) {
	svc := newTestService(&llm.MockProvider{Err: errors.New("upstream down")}, FallbackDisabled, nil)

	result, err := svc.CompareDocuments(context.Background(), "spec", "response", "")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Contains(t, err.Error(), "comparison failed")
	assert.Contains(t, err.Error(), "upstream down")
}

func TestCompareDocuments_FallbackRuleBased(t *testing.T) {
	svc := newTestService(&llm.MockProvider{Response: "not json"}, FallbackRuleBased, nil)

	result, err := svc.CompareDocuments(context.Background(), "process requirement", "process workflow business", "")
	require.NoError(t, err)

	assert.Equal(t, models.MethodRuleBased, result.Method)
	assert.Equal(t, models.MethodRuleBased, result.Metadata.Method)
	assert.Contains(t, result.Metadata.FallbackReason, "malformed model reply")
	assert.Len(t, result.Categories, 6)
}

func TestCompareDocuments_CancelledContextSkipsFallback(t *testing.T) {
	svc := newTestService(&llm.MockProvider{Err: context.Canceled}, FallbackRuleBased, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CompareDocuments(ctx, "spec", "response", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompareDocuments_RuleBasedOnly(t *testing.T) {
	svc := newTestService(nil, FallbackDisabled, nil)
	assert.False(t, svc.HasAnalyzer())

	result, err := svc.CompareDocuments(context.Background(), "", "", "ignored")
	require.NoError(t, err)
	assert.Equal(t, models.MethodRuleBased, result.Method)
	assert.Equal(t, 0.0, result.OverallScore)
	assert.Empty(t, result.Metadata.Provider)
	assert.Empty(t, result.Metadata.DeploymentID)
	assert.Equal(t, models.DocumentStats{}, result.DocumentStats.Specification)
}

func TestParseFallbackPolicy(t *testing.T) {
	tests := []struct {
		input    string
		expected FallbackPolicy
		wantErr  bool
	}{
		{"", FallbackDisabled, false},
		{"disabled", FallbackDisabled, false},
		{" Rule-Based ", FallbackRuleBased, false},
		{"ai", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFallbackPolicy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
