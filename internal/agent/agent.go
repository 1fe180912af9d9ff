package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fmuoria/doc-compare-agent/internal/ingestion"
	"github.com/fmuoria/doc-compare-agent/internal/llm"
	"github.com/fmuoria/doc-compare-agent/internal/logging"
	"github.com/fmuoria/doc-compare-agent/internal/metrics"
	"github.com/fmuoria/doc-compare-agent/internal/models"
	"github.com/fmuoria/doc-compare-agent/internal/scoring"
)

// Rate limiting defaults for sequential model calls
const (
	requestDelay = 4 * time.Second
	maxRetries   = 3
	retryBackoff = 10 * time.Second
)

// ProgressCallback is called to report progress during processing
type ProgressCallback func(current, total int, message string)

// Comparer compares one specification with one response
type Comparer interface {
	CompareDocuments(ctx context.Context, specText, responseText, deploymentID string) (*models.ComparisonResult, error)
}

// AttachmentFetcher downloads response documents into the uploads directory
type AttachmentFetcher interface {
	FetchAttachmentsWithContext(ctx context.Context, subject string) (int, error)
}

// GmailFactory builds an AttachmentFetcher reporting through progress
type GmailFactory func(ctx context.Context, progress ingestion.ProgressFunc) (AttachmentFetcher, error)

// Options wires the agent. Zero pacing values take the package defaults; use a negative
// RequestDelay or RetryBackoff to disable waiting.
type Options struct {
	Comparer     Comparer
	FileHandler  *ingestion.FileHandler
	Gmail        GmailFactory
	DeploymentID string

	RequestDelay time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	Metrics *metrics.Manager
	Logger  *slog.Logger
}

// ComparisonAgent ranks many responses against one specification
type ComparisonAgent struct {
	FileHandler *ingestion.FileHandler

	comparer     Comparer
	gmail        GmailFactory
	deploymentID string
	requestDelay time.Duration
	maxRetries   int
	retryBackoff time.Duration
	metrics      *metrics.Manager
	logger       *slog.Logger

	mu            sync.RWMutex
	specification string
	results       []models.RankedResponse
	progressCb    ProgressCallback
}

// NewComparisonAgent creates a new comparison agent
func NewComparisonAgent(opts Options) *ComparisonAgent {
	a := &ComparisonAgent{
		FileHandler:  opts.FileHandler,
		comparer:     opts.Comparer,
		gmail:        opts.Gmail,
		deploymentID: opts.DeploymentID,
		requestDelay: opts.RequestDelay,
		maxRetries:   opts.MaxRetries,
		retryBackoff: opts.RetryBackoff,
		metrics:      opts.Metrics,
		logger:       logging.OrDiscard(opts.Logger),
	}
	if a.FileHandler == nil {
		a.FileHandler = ingestion.NewFileHandler("uploads", opts.Logger)
	}
	if a.requestDelay == 0 {
		a.requestDelay = requestDelay
	}
	if a.maxRetries == 0 {
		a.maxRetries = maxRetries
	}
	if a.retryBackoff == 0 {
		a.retryBackoff = retryBackoff
	}
	return a
}

// SetProgressCallback sets the progress callback function
func (a *ComparisonAgent) SetProgressCallback(cb ProgressCallback) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.progressCb = cb
}

// reportProgress calls the progress callback if set
func (a *ComparisonAgent) reportProgress(current, total int, message string) {
	a.mu.RLock()
	cb := a.progressCb
	a.mu.RUnlock()

	if cb != nil {
		cb(current, total, message)
	}
}

// IngestFromUploadWithContext compares every response in the uploads directory with the specification at specPath
func (a *ComparisonAgent) IngestFromUploadWithContext(ctx context.Context, specPath string) error {
	if a.comparer == nil {
		return fmt.Errorf("no comparer configured")
	}

	a.reportProgress(0, 100, "Reading specification...")

	specText, err := ingestion.ExtractFile(specPath)
	if err != nil {
		return fmt.Errorf("failed to read specification: %w", err)
	}

	a.reportProgress(10, 100, "Loading responses...")

	responses, err := a.FileHandler.LoadResponses()
	if err != nil {
		return fmt.Errorf("failed to load responses: %w", err)
	}
	responses = withoutPath(responses, specPath)

	if len(responses) == 0 {
		return fmt.Errorf("no responses found in uploads directory")
	}

	a.logger.Info("found responses to compare", slog.Int("count", len(responses)))
	a.reportProgress(20, 100, fmt.Sprintf("Processing %d responses...", len(responses)))

	return a.processResponses(ctx, filepath.Base(specPath), specText, responses, 20)
}

// IngestFromGmailWithContext fetches responses mailed with the given subject, then ranks them against the specification
func (a *ComparisonAgent) IngestFromGmailWithContext(ctx context.Context, subject, specPath string) error {
	if a.comparer == nil {
		return fmt.Errorf("no comparer configured")
	}
	if a.gmail == nil {
		return fmt.Errorf("gmail is not configured")
	}

	a.reportProgress(0, 100, "Reading specification...")

	specText, err := ingestion.ExtractFile(specPath)
	if err != nil {
		return fmt.Errorf("failed to read specification: %w", err)
	}

	a.reportProgress(2, 100, "Initializing Gmail handler...")

	// Gmail progress maps onto 10-40% of the run
	fetcher, err := a.gmail(ctx, func(current, total int, message string) {
		progress := 10
		if total > 0 {
			progress += 30 * current / total
		}
		a.reportProgress(progress, 100, message)
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Gmail handler: %w", err)
	}

	a.reportProgress(5, 100, "Clearing existing uploads...")

	if err := a.FileHandler.ClearUploads(); err != nil {
		return fmt.Errorf("failed to clear uploads: %w", err)
	}

	a.reportProgress(10, 100, "Fetching emails from Gmail...")

	if _, err := fetcher.FetchAttachmentsWithContext(ctx, subject); err != nil {
		return fmt.Errorf("failed to fetch Gmail attachments: %w", err)
	}

	a.reportProgress(50, 100, "Loading responses...")

	responses, err := a.FileHandler.LoadResponses()
	if err != nil {
		return fmt.Errorf("failed to load responses: %w", err)
	}
	responses = withoutPath(responses, specPath)

	if len(responses) == 0 {
		return fmt.Errorf("no responses found after Gmail fetch")
	}

	a.logger.Info("found responses to compare from Gmail", slog.Int("count", len(responses)))
	a.reportProgress(60, 100, fmt.Sprintf("Processing %d responses...", len(responses)))

	return a.processResponses(ctx, filepath.Base(specPath), specText, responses, 60)
}

// withoutPath drops the specification itself when it sits in the uploads directory
func withoutPath(docs []models.ResponseDocument, path string) []models.ResponseDocument {
	abs, err := filepath.Abs(path)
	if err != nil {
		return docs
	}
	kept := docs[:0]
	for _, d := range docs {
		if p, err := filepath.Abs(d.Path); err == nil && p == abs {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// processResponses compares all responses sequentially and ranks them
func (a *ComparisonAgent) processResponses(ctx context.Context, specName, specText string, responses []models.ResponseDocument, baseProgress int) error {
	results := make([]models.RankedResponse, 0, len(responses))
	span := 95 - baseProgress

	for i, doc := range responses {
		if err := ctx.Err(); err != nil {
			return err
		}

		if i > 0 {
			if err := sleep(ctx, a.requestDelay); err != nil {
				return err
			}
		}

		a.logger.Info("comparing response", slog.Int("index", i+1), slog.Int("total", len(responses)), slog.String("name", doc.Name))

		progress := baseProgress + (span * i / len(responses))
		a.reportProgress(progress, 100, fmt.Sprintf("Comparing %s (%d/%d)", doc.Name, i+1, len(responses)))

		result, err := a.compareWithRetry(ctx, specText, doc)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			a.logger.Warn("failed to compare response", slog.String("name", doc.Name), slog.Any("error", err))
			a.metrics.RecordBatchResponse(metrics.OutcomeFailure)
			continue
		}
		a.metrics.RecordBatchResponse(metrics.OutcomeSuccess)

		results = append(results, models.RankedResponse{
			Name:   doc.Name,
			Path:   doc.Path,
			Result: result,
		})
	}

	a.reportProgress(95, 100, "Ranking responses...")

	RankResponses(results)

	a.mu.Lock()
	a.specification = specName
	a.results = results
	a.mu.Unlock()

	if len(results) == 0 {
		return fmt.Errorf("all %d comparisons failed", len(responses))
	}

	a.reportProgress(100, 100, "Processing complete!")

	return nil
}

// compareWithRetry retries rate-limited comparisons with a growing backoff
func (a *ComparisonAgent) compareWithRetry(ctx context.Context, specText string, doc models.ResponseDocument) (*models.ComparisonResult, error) {
	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			wait := a.retryBackoff * time.Duration(attempt)
			a.logger.Warn("rate limited, retrying",
				slog.String("name", doc.Name),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait))
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		result, err := a.comparer.CompareDocuments(ctx, specText, doc.Content, a.deploymentID)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRateLimitError(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("rate limit persisted after %d retries: %w", a.maxRetries, lastErr)
}

// RankResponses sorts by overall score descending and assigns ranks 1..n.
// Ties go to the response with fewer critical gaps, then to the higher-weighted category scores, then by name.
func RankResponses(results []models.RankedResponse) {
	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := results[i].Result, results[j].Result
		if ri.OverallScore != rj.OverallScore {
			return ri.OverallScore > rj.OverallScore
		}

		gi := scoring.StatusCounts(ri.Categories)[models.StatusCriticalGap]
		gj := scoring.StatusCounts(rj.Categories)[models.StatusCriticalGap]
		if gi != gj {
			return gi < gj
		}

		if ti, tj := topCategoryScore(ri), topCategoryScore(rj); ti != tj {
			return ti > tj
		}

		return results[i].Name < results[j].Name
	})

	for i := range results {
		results[i].Rank = i + 1
	}
}

// topCategoryScore returns the score of the highest-weighted category
func topCategoryScore(r *models.ComparisonResult) float64 {
	var best models.CategoryResult
	for _, c := range r.Categories {
		if c.Weight > best.Weight {
			best = c
		}
	}
	return best.Score
}

// isRateLimitError checks if an error is caused by provider rate limiting or quota exhaustion
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "resourceexhausted") ||
		strings.Contains(msg, "resource exhausted") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota")
}

// sleep waits for d or until ctx is done. Non-positive d returns immediately.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GetReport returns the ranking report
func (a *ComparisonAgent) GetReport() (models.BatchReport, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.results) == 0 {
		return models.BatchReport{}, fmt.Errorf("no results available, run ingestion first")
	}

	responses := make([]models.RankedResponse, len(a.results))
	copy(responses, a.results)

	return models.BatchReport{
		Specification: a.specification,
		Responses:     responses,
		Timestamp:     time.Now().Format(time.RFC3339),
	}, nil
}

// GetResults returns the current results (thread-safe)
func (a *ComparisonAgent) GetResults() []models.RankedResponse {
	a.mu.RLock()
	defer a.mu.RUnlock()

	resultsCopy := make([]models.RankedResponse, len(a.results))
	copy(resultsCopy, a.results)
	return resultsCopy
}

// Specification returns the file name of the last ranked specification
func (a *ComparisonAgent) Specification() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.specification
}
