package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmuoria/doc-compare-agent/internal/comparison"
	"github.com/fmuoria/doc-compare-agent/internal/llm"
	"github.com/fmuoria/doc-compare-agent/internal/metrics"
	"github.com/fmuoria/doc-compare-agent/internal/models"
	"github.com/fmuoria/doc-compare-agent/internal/scoring"
)

type fakeComparer struct {
	err          error
	spec         string
	response     string
	deploymentID string
}

func (f *fakeComparer) CompareDocuments(_ context.Context, specText, responseText, deploymentID string) (*models.ComparisonResult, error) {
	f.spec, f.response, f.deploymentID = specText, responseText, deploymentID
	if f.err != nil {
		return nil, f.err
	}
	return &models.ComparisonResult{
		ComparisonReport: models.ComparisonReport{OverallScore: 72.5, Method: models.MethodAI},
		Metadata:         models.ComparisonMetadata{DeploymentID: deploymentID},
	}, nil
}

type part struct {
	field       string
	filename    string
	contentType string
	content     string
}

func multipartBody(t *testing.T, parts []part, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, p.field, p.filename))
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
}

func newTestServer(c Comparer, opts ...func(*Options)) (*Server, http.Handler) {
	o := Options{Comparer: c, Now: fixedNow}
	for _, fn := range opts {
		fn(&o)
	}
	s := NewServer(o)
	return s, s.Router()
}

func postCompare(t *testing.T, h http.Handler, parts []part, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, parts, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/compare", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleCompare_Success(t *testing.T) {
	fc := &fakeComparer{}
	_, h := newTestServer(fc)

	rec := postCompare(t, h, []part{
		{"specDocument", "spec.txt", "text/plain", "Requirement: process workflow"},
		{"responseDocument", "resp.txt", "text/plain", "We deliver the workflow"},
	}, map[string]string{"deploymentId": " dep-42 "})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Requirement: process workflow", fc.spec)
	assert.Equal(t, "We deliver the workflow", fc.response)
	assert.Equal(t, "dep-42", fc.deploymentID)

	var resp models.CompareResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 72.5, resp.Comparison.OverallScore)
	assert.Equal(t, "spec.txt", resp.Metadata.Specification.Name)
	assert.Equal(t, int64(len("We deliver the workflow")), resp.Metadata.Response.Size)
	assert.Equal(t, "text/plain", resp.Metadata.Response.Type)
	assert.Equal(t, fixedNow(), resp.Metadata.Timestamp)
}

func TestHandleCompare_FieldAliases(t *testing.T) {
	fc := &fakeComparer{}
	_, h := newTestServer(fc)

	rec := postCompare(t, h, []part{
		{"fsDocument", "fs.txt", "application/octet-stream", "functional spec"},
		{"jouleResponse", "joule.txt", "", "response text"},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "functional spec", fc.spec)
	assert.Equal(t, "response text", fc.response)
}

func TestHandleCompare_Errors(t *testing.T) {
	spec := part{"specDocument", "spec.txt", "text/plain", "spec"}

	tests := []struct {
		name     string
		parts    []part
		comparer *fakeComparer
		status   int
		errMsg   string
	}{
		{
			name:   "missing response",
			parts:  []part{spec},
			status: http.StatusBadRequest,
			errMsg: "Missing files",
		},
		{
			name:   "unsupported mime",
			parts:  []part{spec, {"responseDocument", "logo.png", "image/png", "png"}},
			status: http.StatusBadRequest,
			errMsg: "Invalid response document",
		},
		{
			name:   "octet stream with unknown extension",
			parts:  []part{spec, {"responseDocument", "data.bin", "application/octet-stream", "x"}},
			status: http.StatusBadRequest,
			errMsg: "Invalid response document",
		},
		{
			name:   "binary text",
			parts:  []part{{"specDocument", "spec.txt", "text/plain", "%PDF-1.4 binary"}, {"responseDocument", "r.txt", "text/plain", "resp"}},
			status: http.StatusUnprocessableEntity,
			errMsg: "Invalid specification document",
		},
		{
			name:     "comparison failure",
			parts:    []part{spec, {"responseDocument", "r.txt", "text/plain", "resp"}},
			comparer: &fakeComparer{err: fmt.Errorf("comparison failed: %w", comparison.ErrAnalysisFailed)},
			status:   http.StatusInternalServerError,
			errMsg:   "Comparison failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := tt.comparer
			if fc == nil {
				fc = &fakeComparer{}
			}
			_, h := newTestServer(fc)
			rec := postCompare(t, h, tt.parts, nil)

			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.errMsg, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestHandleCompare_FileTooLarge(t *testing.T) {
	_, h := newTestServer(&fakeComparer{}, func(o *Options) { o.MaxUploadBytes = 8 })

	rec := postCompare(t, h, []part{
		{"specDocument", "spec.txt", "text/plain", "short"},
		{"responseDocument", "resp.txt", "text/plain", "this response is too long"},
	}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec)["message"], "exceeds")
}

func TestHandleCompare_BodyTooLarge(t *testing.T) {
	fc := &fakeComparer{}
	_, h := newTestServer(fc, func(o *Options) { o.MaxUploadBytes = 8 })

	rec := postCompare(t, h, []part{
		{"specDocument", "spec.txt", "text/plain", "short"},
		{"responseDocument", "resp.txt", "text/plain", strings.Repeat("a", 2<<20)},
	}, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "Upload too large", body["error"])
	assert.Contains(t, body["message"], "exceeds")
	assert.Empty(t, fc.spec)
}

func TestHandleCompare_NotMultipart(t *testing.T) {
	_, h := newTestServer(&fakeComparer{})
	req := httptest.NewRequest(http.MethodPost, "/api/compare", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCompare_WithRealService(t *testing.T) {
	svc := comparison.NewService(comparison.Options{Scorer: scoring.NewCategoryScorer()})
	_, h := newTestServer(svc)

	rec := postCompare(t, h, []part{
		{"specDocument", "spec.txt", "text/plain", "requirement process"},
		{"responseDocument", "resp.txt", "text/plain", "process workflow business"},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp models.CompareResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.MethodRuleBased, resp.Comparison.Method)
	assert.Len(t, resp.Comparison.Categories, 6)
}

func TestHandleHealth(t *testing.T) {
	_, h := newTestServer(&fakeComparer{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "OK", "timestamp": "2026-03-04T05:06:07Z"}, decodeError(t, rec))
}

func TestHandleRoot(t *testing.T) {
	_, h := newTestServer(&fakeComparer{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "specDocument")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDeployments(t *testing.T) {
	tests := []struct {
		name   string
		lister llm.DeploymentLister
		status int
	}{
		{"no lister", nil, http.StatusNotImplemented},
		{"unsupported", &llm.MockProvider{}, http.StatusNotImplemented},
		{"listed", &llm.MockProvider{Deployments: &llm.DeploymentList{Count: 1, Resources: []llm.Deployment{{ID: "d1", Status: "RUNNING"}}}}, http.StatusOK},
		{"failure", failingLister{}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h := newTestServer(&fakeComparer{}, func(o *Options) { o.Deployments = tt.lister })
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/deployments", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

type failingLister struct{}

func (failingLister) ListDeployments(context.Context) (*llm.DeploymentList, error) {
	return nil, errors.New("upstream down")
}

func TestMetricsEndpointAndMiddleware(t *testing.T) {
	m := metrics.NewManager()
	_, h := newTestServer(&fakeComparer{}, func(o *Options) { o.Metrics = m })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	count, err := testutil.GatherAndCount(m.Registry(), "doccompare_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `doccompare_http_requests_total{endpoint="GET /health",method="GET",status_code="200"} 1`)
}
