package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmuoria/doc-compare-agent/internal/ingestion"
	"github.com/fmuoria/doc-compare-agent/internal/llm"
	"github.com/fmuoria/doc-compare-agent/internal/models"
)

// TestIsRateLimitError tests the rate limit error detection
func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "ResourceExhausted error",
			err:      errors.New("rpc error: code = ResourceExhausted desc = Resource exhausted"),
			expected: true,
		},
		{
			name:     "HTTP 429 error",
			err:      errors.New("HTTP 429: Too Many Requests"),
			expected: true,
		},
		{
			name:     "AI Core 429 wrapped",
			err:      fmt.Errorf("comparison failed: %w", &llm.APIError{StatusCode: 429, Body: "slow down"}),
			expected: true,
		},
		{
			name:     "Rate limit error",
			err:      errors.New("rate limit exceeded"),
			expected: true,
		},
		{
			name:     "Quota error",
			err:      errors.New("quota exceeded for this project"),
			expected: true,
		},
		{
			name:     "Other error",
			err:      errors.New("connection timeout"),
			expected: false,
		},
		{
			name:     "AI Core server error",
			err:      &llm.APIError{StatusCode: 500, Body: "internal"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isRateLimitError(tt.err)
			if result != tt.expected {
				t.Errorf("isRateLimitError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

// TestRateLimitConstants tests that rate limit constants are set correctly
func TestRateLimitConstants(t *testing.T) {
	if requestDelay.Seconds() != 4 {
		t.Errorf("requestDelay = %v, want 4 seconds", requestDelay)
	}

	if maxRetries != 3 {
		t.Errorf("maxRetries = %d, want 3", maxRetries)
	}

	if retryBackoff.Seconds() != 10 {
		t.Errorf("retryBackoff = %v, want 10 seconds", retryBackoff)
	}

	a := NewComparisonAgent(Options{FileHandler: ingestion.NewFileHandler(t.TempDir(), nil)})
	assert.Equal(t, requestDelay, a.requestDelay)
	assert.Equal(t, maxRetries, a.maxRetries)
	assert.Equal(t, retryBackoff, a.retryBackoff)
}

func ranked(name string, overall float64, cats ...models.CategoryResult) models.RankedResponse {
	return models.RankedResponse{
		Name: name,
		Result: &models.ComparisonResult{
			ComparisonReport: models.ComparisonReport{OverallScore: overall, Categories: cats},
		},
	}
}

func cat(weight, score float64, status models.Status) models.CategoryResult {
	return models.CategoryResult{Weight: weight, Score: score, Status: status}
}

// TestRankResponses tests ordering and tie-breaking for equal overall scores
func TestRankResponses(t *testing.T) {
	tests := []struct {
		name     string
		results  []models.RankedResponse
		expected []string
	}{
		{
			name: "Sort by overall score (no ties)",
			results: []models.RankedResponse{
				ranked("Alice", 70),
				ranked("Bob", 90),
				ranked("Carol", 80),
			},
			expected: []string{"Bob", "Carol", "Alice"},
		},
		{
			name: "Tie on overall, broken by fewer critical gaps",
			results: []models.RankedResponse{
				ranked("Alice", 80, cat(0.5, 60, models.StatusCriticalGap), cat(0.5, 100, models.StatusExcellent)),
				ranked("Bob", 80, cat(0.5, 80, models.StatusGood), cat(0.5, 80, models.StatusGood)),
			},
			expected: []string{"Bob", "Alice"},
		},
		{
			name: "Tie on overall and gaps, broken by heaviest category",
			results: []models.RankedResponse{
				ranked("Alice", 80, cat(0.7, 75, models.StatusGood), cat(0.3, 91.7, models.StatusExcellent)),
				ranked("Bob", 80, cat(0.7, 80, models.StatusGood), cat(0.3, 80, models.StatusGood)),
			},
			expected: []string{"Bob", "Alice"},
		},
		{
			name: "Complete tie, broken by name",
			results: []models.RankedResponse{
				ranked("Zed", 75),
				ranked("Amy", 75),
			},
			expected: []string{"Amy", "Zed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]models.RankedResponse, len(tt.results))
			copy(results, tt.results)

			RankResponses(results)

			for i, name := range tt.expected {
				assert.Equal(t, name, results[i].Name, "position %d", i)
				assert.Equal(t, i+1, results[i].Rank)
			}
		})
	}
}

// fakeComparer scores by response length and can fail per response
type fakeComparer struct {
	mu          sync.Mutex
	calls       map[string]int
	rateLimited map[string]int // number of 429s before success
	failing     map[string]bool
	deployments []string
}

func (f *fakeComparer) CompareDocuments(ctx context.Context, specText, responseText, deploymentID string) (*models.ComparisonResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[responseText]++
	f.deployments = append(f.deployments, deploymentID)

	if f.failing[responseText] {
		return nil, errors.New("invalid reply")
	}
	if f.calls[responseText] <= f.rateLimited[responseText] {
		return nil, &llm.APIError{StatusCode: 429, Body: "rate limit"}
	}

	return &models.ComparisonResult{
		ComparisonReport: models.ComparisonReport{OverallScore: float64(len(responseText)), Method: models.MethodAI},
	}, nil
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
}

func newTestAgent(t *testing.T, comparer Comparer, uploads string) *ComparisonAgent {
	t.Helper()
	return NewComparisonAgent(Options{
		Comparer:     comparer,
		FileHandler:  ingestion.NewFileHandler(uploads, nil),
		DeploymentID: "dep-1",
		RequestDelay: -1,
		RetryBackoff: -1,
	})
}

func TestIngestFromUpload(t *testing.T) {
	uploads := t.TempDir()
	writeFiles(t, uploads, map[string]string{
		"Acme_Response.txt":    "short",
		"Globex_Response.txt":  "a much longer response",
		"Initech_Response.txt": "broken",
	})
	specPath := filepath.Join(t.TempDir(), "spec.txt")
	require.NoError(t, os.WriteFile(specPath, []byte("the specification"), 0600))

	comparer := &fakeComparer{
		rateLimited: map[string]int{"a much longer response": 2},
		failing:     map[string]bool{"broken": true},
	}
	a := newTestAgent(t, comparer, uploads)

	var mu sync.Mutex
	var messages []string
	a.SetProgressCallback(func(current, total int, message string) {
		mu.Lock()
		messages = append(messages, message)
		mu.Unlock()
	})

	require.NoError(t, a.IngestFromUploadWithContext(context.Background(), specPath))

	results := a.GetResults()
	require.Len(t, results, 2)
	assert.Equal(t, "Globex", results[0].Name)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "Acme", results[1].Name)
	assert.Equal(t, 3, comparer.calls["a much longer response"], "two 429s then success")
	assert.Equal(t, 1, comparer.calls["broken"], "non rate-limit errors are not retried")
	for _, d := range comparer.deployments {
		assert.Equal(t, "dep-1", d)
	}

	report, err := a.GetReport()
	require.NoError(t, err)
	assert.Equal(t, "spec.txt", report.Specification)
	assert.Len(t, report.Responses, 2)
	assert.NotEmpty(t, report.Timestamp)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Processing complete!", messages[len(messages)-1])
}

func TestIngestFromUpload_RateLimitExhausted(t *testing.T) {
	uploads := t.TempDir()
	writeFiles(t, uploads, map[string]string{"Acme_Response.txt": "busy"})
	specPath := filepath.Join(t.TempDir(), "spec.txt")
	require.NoError(t, os.WriteFile(specPath, []byte("spec"), 0600))

	comparer := &fakeComparer{rateLimited: map[string]int{"busy": 100}}
	a := newTestAgent(t, comparer, uploads)

	err := a.IngestFromUploadWithContext(context.Background(), specPath)
	require.Error(t, err)
	assert.Equal(t, maxRetries+1, comparer.calls["busy"])
	assert.Empty(t, a.GetResults())
}

func TestIngestFromUpload_SkipsSpecInUploads(t *testing.T) {
	uploads := t.TempDir()
	writeFiles(t, uploads, map[string]string{
		"spec.txt":          "the specification",
		"Acme_Response.txt": "response",
	})

	comparer := &fakeComparer{}
	a := newTestAgent(t, comparer, uploads)

	require.NoError(t, a.IngestFromUploadWithContext(context.Background(), filepath.Join(uploads, "spec.txt")))
	results := a.GetResults()
	require.Len(t, results, 1)
	assert.Equal(t, "Acme", results[0].Name)
	assert.Zero(t, comparer.calls["the specification"])
}

func TestIngestFromUpload_Errors(t *testing.T) {
	specPath := filepath.Join(t.TempDir(), "spec.txt")
	require.NoError(t, os.WriteFile(specPath, []byte("spec"), 0600))

	a := newTestAgent(t, &fakeComparer{}, t.TempDir())
	err := a.IngestFromUploadWithContext(context.Background(), specPath)
	assert.ErrorContains(t, err, "no responses found")

	err = a.IngestFromUploadWithContext(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "failed to read specification")

	_, err = a.GetReport()
	assert.Error(t, err)

	noComparer := NewComparisonAgent(Options{FileHandler: ingestion.NewFileHandler(t.TempDir(), nil)})
	assert.Error(t, noComparer.IngestFromUploadWithContext(context.Background(), specPath))
}

func TestIngestFromUpload_Cancelled(t *testing.T) {
	uploads := t.TempDir()
	writeFiles(t, uploads, map[string]string{"Acme_Response.txt": "x"})
	specPath := filepath.Join(t.TempDir(), "spec.txt")
	require.NoError(t, os.WriteFile(specPath, []byte("spec"), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestAgent(t, &fakeComparer{}, uploads).IngestFromUploadWithContext(ctx, specPath)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeFetcher struct {
	dir      string
	progress ingestion.ProgressFunc
	subject  string
}

func (f *fakeFetcher) FetchAttachmentsWithContext(_ context.Context, subject string) (int, error) {
	f.subject = subject
	f.progress(1, 1, "Downloaded 1 attachments")
	return 1, os.WriteFile(filepath.Join(f.dir, "Vendor_proposal.txt"), []byte("vendor text"), 0600)
}

func TestIngestFromGmail(t *testing.T) {
	uploads := t.TempDir()
	writeFiles(t, uploads, map[string]string{"Stale_Response.txt": "left over"})
	specPath := filepath.Join(t.TempDir(), "rfp.txt")
	require.NoError(t, os.WriteFile(specPath, []byte("spec"), 0600))

	fetcher := &fakeFetcher{dir: uploads}
	a := NewComparisonAgent(Options{
		Comparer:     &fakeComparer{},
		FileHandler:  ingestion.NewFileHandler(uploads, nil),
		RequestDelay: -1,
		RetryBackoff: -1,
		Gmail: func(_ context.Context, progress ingestion.ProgressFunc) (AttachmentFetcher, error) {
			fetcher.progress = progress
			return fetcher, nil
		},
	})

	var sawGmailProgress bool
	a.SetProgressCallback(func(current, total int, message string) {
		if strings.HasPrefix(message, "Downloaded") {
			sawGmailProgress = current == 40
		}
	})

	require.NoError(t, a.IngestFromGmailWithContext(context.Background(), "RFP-42", specPath))
	assert.Equal(t, "RFP-42", fetcher.subject)
	assert.True(t, sawGmailProgress)

	results := a.GetResults()
	require.Len(t, results, 1, "stale uploads are cleared before fetching")
	assert.Equal(t, "Vendor", results[0].Name)
	assert.Equal(t, "rfp.txt", a.Specification())
}

func TestIngestFromGmail_NotConfigured(t *testing.T) {
	a := newTestAgent(t, &fakeComparer{}, t.TempDir())
	assert.ErrorContains(t, a.IngestFromGmailWithContext(context.Background(), "s", "spec.txt"), "gmail is not configured")
}
