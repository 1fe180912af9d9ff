package gui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmuoria/doc-compare-agent/internal/config"
	"github.com/fmuoria/doc-compare-agent/internal/llm"
	"github.com/fmuoria/doc-compare-agent/internal/models"
)

func TestCategoryCell(t *testing.T) {
	c := models.CategoryResult{
		Name: "Error Handling & Robustness", Weight: 0.2, Score: 72.04, WeightedScore: 14.4,
		Status: models.StatusGood, KeyFinding: "Basic error handling",
	}

	want := []string{"Error Handling & Robustness", "20%", "72.0", "14.4", "GOOD", "Basic error handling"}
	for col, expected := range want {
		assert.Equal(t, expected, categoryCell(c, col), "column %d", col)
	}
	assert.Empty(t, categoryCell(c, len(categoryHeaders)))
}

func TestRankingCell(t *testing.T) {
	r := models.RankedResponse{
		Rank: 2,
		Name: "Acme",
		Result: &models.ComparisonResult{ComparisonReport: models.ComparisonReport{
			OverallScore: 86.25,
			Method:       models.MethodAI,
			Categories: []models.CategoryResult{
				{Status: models.StatusCriticalGap},
				{Status: models.StatusExcellent},
			},
		}},
	}

	want := []string{"2", "Acme", "86.2", "EXCELLENT", "1", "ai"}
	for col, expected := range want {
		assert.Equal(t, expected, rankingCell(r, col), "column %d", col)
	}

	r.Result = nil
	assert.Equal(t, "Acme", rankingCell(r, 1))
	assert.Empty(t, rankingCell(r, 2))
}

func TestExportFileName(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "Ranking_Results_2026-01-02_150405.xlsx", exportFileName("Ranking", now))
}

func TestSettingsRoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AICore.ClientID = "id"

	v := settingsFromConfig(cfg)
	assert.Equal(t, llm.ProviderAICore, v.Provider)
	assert.Equal(t, "id", v.ClientID)

	v.Provider = llm.ProviderVertexAI
	v.Project = "my-project"
	v.Fallback = "rule-based"

	out := v.apply(cfg)
	assert.Equal(t, llm.ProviderVertexAI, out.LLM.Provider)
	assert.Equal(t, "my-project", out.Google.Project)
	assert.Equal(t, "rule-based", out.Fallback)
	assert.Equal(t, llm.ProviderAICore, cfg.LLM.Provider, "original config is untouched")
	assert.NoError(t, out.Validate())
}

func TestCompareFiles(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "spec.txt")
	respPath := filepath.Join(dir, "resp.txt")
	require.NoError(t, os.WriteFile(specPath, []byte("spec text"), 0600))
	require.NoError(t, os.WriteFile(respPath, []byte("response text"), 0600))

	var statuses []string
	var got [3]string
	result, err := compareFiles(context.Background(),
		func(_ context.Context, specText, responseText, deploymentID string) (*models.ComparisonResult, error) {
			got = [3]string{specText, responseText, deploymentID}
			return &models.ComparisonResult{ComparisonReport: models.ComparisonReport{OverallScore: 50}}, nil
		},
		specPath, respPath, "dep", func(s string) { statuses = append(statuses, s) })

	require.NoError(t, err)
	assert.Equal(t, 50.0, result.OverallScore)
	assert.Equal(t, [3]string{"spec text", "response text", "dep"}, got)
	assert.Equal(t, []string{"Comparing documents..."}, statuses)

	_, err = compareFiles(context.Background(), nil, filepath.Join(dir, "missing.txt"), respPath, "", func(string) {})
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = compareFiles(context.Background(),
		func(context.Context, string, string, string) (*models.ComparisonResult, error) { return nil, boom },
		specPath, respPath, "", func(string) {})
	assert.ErrorIs(t, err, boom)
}
