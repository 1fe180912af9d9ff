// Package metrics provides Prometheus metrics for the document comparison service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Comparison outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeFailure  = "failure"
)

// Option applies a configuration option to the Manager
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry sets the registry metrics are registered on and served from
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// Manager owns the service's collectors. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	comparisons        *prometheus.CounterVec
	comparisonDuration *prometheus.HistogramVec
	overallScore       prometheus.Histogram
	fallbacks          prometheus.Counter
	batchResponses     *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a manager on its own registry unless WithRegistry is given
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "doccompare",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.comparisons = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "comparisons_total",
		Help:      "Total number of document comparisons by method and outcome",
	}, []string{"method", "outcome"})

	m.comparisonDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "comparison_duration_seconds",
		Help:      "Time spent producing a comparison report",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"method"})

	m.overallScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "comparison_overall_score",
		Help:      "Distribution of overall comparison scores",
		Buckets:   prometheus.LinearBuckets(10, 10, 10),
	})

	m.fallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "comparison_fallbacks_total",
		Help:      "Comparisons answered by the rule-based scorer after AI analysis failed",
	})

	m.batchResponses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "batch_responses_total",
		Help:      "Responses processed by batch ranking by outcome",
	}, []string{"outcome"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "method"})
}

// RecordComparison counts one finished comparison
func (m *Manager) RecordComparison(method, outcome string, duration time.Duration, overall float64) {
	if m == nil {
		return
	}
	m.comparisons.WithLabelValues(method, outcome).Inc()
	m.comparisonDuration.WithLabelValues(method).Observe(duration.Seconds())
	if outcome != OutcomeFailure {
		m.overallScore.Observe(overall)
	}
	if outcome == OutcomeFallback {
		m.fallbacks.Inc()
	}
}

// RecordBatchResponse counts one response handled by a batch run
func (m *Manager) RecordBatchResponse(outcome string) {
	if m == nil {
		return
	}
	m.batchResponses.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest counts one served HTTP request
func (m *Manager) RecordHTTPRequest(endpoint, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// Registry returns the registry backing this manager
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the manager's registry in the Prometheus exposition format
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
