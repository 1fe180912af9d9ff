// Package api exposes the comparison service over HTTP.
package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/fmuoria/doc-compare-agent/internal/ingestion"
	"github.com/fmuoria/doc-compare-agent/internal/llm"
	"github.com/fmuoria/doc-compare-agent/internal/logging"
	"github.com/fmuoria/doc-compare-agent/internal/metrics"
	"github.com/fmuoria/doc-compare-agent/internal/models"
)

// DefaultMaxUploadBytes is the per-file upload limit
const DefaultMaxUploadBytes = 10 << 20

//go:embed static/index.html
var indexHTML []byte

// Form field names accepted by POST /api/compare, primary name first
var (
	specFields     = []string{"specDocument", "fsDocument"}
	responseFields = []string{"responseDocument", "jouleResponse"}
)

// Comparer compares two extracted documents
type Comparer interface {
	CompareDocuments(ctx context.Context, specText, responseText, deploymentID string) (*models.ComparisonResult, error)
}

// Options configures a Server. Comparer is required.
type Options struct {
	Comparer       Comparer
	Deployments    llm.DeploymentLister
	Metrics        *metrics.Manager
	Logger         *slog.Logger
	MaxUploadBytes int64
	Now            func() time.Time
}

// Server handles HTTP requests
type Server struct {
	comparer    Comparer
	deployments llm.DeploymentLister
	metrics     *metrics.Manager
	logger      *slog.Logger
	maxUpload   int64
	now         func() time.Time
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	s := &Server{
		comparer:    opts.Comparer,
		deployments: opts.Deployments,
		metrics:     opts.Metrics,
		logger:      logging.OrDiscard(opts.Logger),
		maxUpload:   opts.MaxUploadBytes,
		now:         opts.Now,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/compare", s.handleCompare)
	mux.HandleFunc("GET /api/deployments", s.handleDeployments)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /{$}", s.handleRoot)

	return s.loggingMiddleware(s.metricsMiddleware(mux, mux))
}

// handleRoot serves the upload form
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleHealth provides a health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

// handleDeployments lists the deployments known to the AI provider
func (s *Server) handleDeployments(w http.ResponseWriter, r *http.Request) {
	if s.deployments == nil {
		s.respondError(w, http.StatusNotImplemented, "Deployments unavailable", "the configured provider cannot list deployments")
		return
	}

	list, err := s.deployments.ListDeployments(r.Context())
	if errors.Is(err, llm.ErrNotSupported) {
		s.respondError(w, http.StatusNotImplemented, "Deployments unavailable", err.Error())
		return
	}
	if err != nil {
		s.logger.Error("failed to list deployments", slog.Any("error", err))
		s.respondError(w, http.StatusInternalServerError, "Failed to fetch deployments", err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, list)
}

type upload struct {
	meta models.FileMetadata
	text string
}

// handleCompare extracts both uploaded documents and compares them
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.maxUpload+1<<20)
	if err := r.ParseMultipartForm(2 * s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "Upload too large",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.respondError(w, http.StatusBadRequest, "Invalid upload", fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	specHeader := formFile(r.MultipartForm, specFields)
	responseHeader := formFile(r.MultipartForm, responseFields)
	if specHeader == nil || responseHeader == nil {
		s.respondError(w, http.StatusBadRequest, "Missing files",
			"both specDocument and responseDocument are required")
		return
	}

	spec, status, err := s.readUpload(specHeader)
	if err != nil {
		s.respondError(w, status, "Invalid specification document", err.Error())
		return
	}
	response, status, err := s.readUpload(responseHeader)
	if err != nil {
		s.respondError(w, status, "Invalid response document", err.Error())
		return
	}

	deploymentID := strings.TrimSpace(r.FormValue("deploymentId"))
	s.logger.Info("comparing documents",
		slog.String("spec", spec.meta.Name),
		slog.String("response", response.meta.Name),
		slog.String("deployment", deploymentID))

	result, err := s.comparer.CompareDocuments(r.Context(), spec.text, response.text, deploymentID)
	if err != nil {
		s.logger.Error("comparison failed", slog.Any("error", err))
		s.respondError(w, http.StatusInternalServerError, "Comparison failed", err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, models.CompareResponse{
		Success:    true,
		Comparison: result,
		Metadata: models.UploadMetadata{
			Specification: spec.meta,
			Response:      response.meta,
			Timestamp:     s.now().UTC(),
		},
	})
}

func formFile(form *multipart.Form, names []string) *multipart.FileHeader {
	for _, name := range names {
		if files := form.File[name]; len(files) > 0 {
			return files[0]
		}
	}
	return nil
}

// readUpload validates and extracts one uploaded file, returning the HTTP status to use on failure
func (s *Server) readUpload(fh *multipart.FileHeader) (upload, int, error) {
	contentType := fh.Header.Get("Content-Type")
	meta := models.FileMetadata{Name: fh.Filename, Size: fh.Size, Type: contentType}

	if fh.Size > s.maxUpload {
		return upload{}, http.StatusBadRequest, fmt.Errorf("%s exceeds the %d byte limit", fh.Filename, s.maxUpload)
	}
	if !allowedUpload(fh.Filename, contentType) {
		return upload{}, http.StatusBadRequest, fmt.Errorf("%s: %w (%s)", fh.Filename, ingestion.ErrUnsupportedType, contentType)
	}

	f, err := fh.Open()
	if err != nil {
		return upload{}, http.StatusBadRequest, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return upload{}, http.StatusBadRequest, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	text, err := ingestion.ExtractText(fh.Filename, contentType, data)
	if err != nil {
		return upload{}, http.StatusUnprocessableEntity, err
	}
	return upload{meta: meta, text: text}, 0, nil
}

// allowedUpload accepts known document MIME types, or a generic type with a known extension
func allowedUpload(filename, contentType string) bool {
	if ingestion.SupportedMimeType(contentType) {
		return true
	}
	base := strings.TrimSpace(strings.Split(contentType, ";")[0])
	if base == "" || base == "application/octet-stream" {
		return ingestion.SupportedExtension(filename)
	}
	return false
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// respondError sends an error response
func (s *Server) respondError(w http.ResponseWriter, status int, errMsg, message string) {
	s.respondJSON(w, status, map[string]string{
		"error":   errMsg,
		"message": message,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// metricsMiddleware records request counts and latency per route pattern
func (s *Server) metricsMiddleware(mux *http.ServeMux, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		s.metrics.RecordHTTPRequest(pattern, r.Method, rec.status, time.Since(start))
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr))
		next.ServeHTTP(w, r)
	})
}
