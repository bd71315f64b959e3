// Package metrics provides Prometheus metrics for the ranking service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Calculation metrics
	calculationsTotal    *prometheus.CounterVec
	calculationDuration  prometheus.Histogram
	candidatesRanked     prometheus.Histogram
	calculationConflicts prometheus.Counter

	// Staleness metrics
	staleJobs          prometheus.Gauge
	invalidationsTotal *prometheus.CounterVec

	// Event bus metrics
	eventsPublished  *prometheus.CounterVec
	eventsDropped    *prometheus.CounterVec
	subscriberErrors *prometheus.CounterVec

	// Bulk processing metrics
	bulkRuns        *prometheus.CounterVec
	bulkBatches     prometheus.Counter
	bulkJobFailures prometheus.Counter

	// Store metrics
	replaceLatency prometheus.Histogram
	jobsTracked    prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ranker",
		subsystem:        "rankings",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.calculationsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "calculations_total",
		Help:      "Ranking calculations by outcome (completed, error, conflict).",
	}, []string{"outcome"})

	m.calculationDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "calculation_duration_ms",
		Help:      "Wall time of one ranking calculation in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.candidatesRanked = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "candidates_ranked",
		Help:      "Candidates ranked per calculation.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	m.calculationConflicts = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "calculation_conflicts_total",
		Help:      "Unforced recalculations rejected while a job was CALCULATING.",
	})

	m.staleJobs = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stale_jobs",
		Help:      "Jobs currently marked STALE.",
	})

	m.invalidationsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "invalidations_total",
		Help:      "Staleness invalidations by reason.",
	}, []string{"reason"})

	m.eventsPublished = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "bus",
		Name:      "events_published_total",
		Help:      "Domain events published by type.",
	}, []string{"type"})

	m.eventsDropped = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "bus",
		Name:      "events_dropped_total",
		Help:      "Events dropped because a subscriber buffer was full.",
	}, []string{"type"})

	m.subscriberErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "bus",
		Name:      "subscriber_errors_total",
		Help:      "Subscriber handler failures by subscriber name.",
	}, []string{"subscriber"})

	m.bulkRuns = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "bulk",
		Name:      "runs_total",
		Help:      "Bulk processing runs by priority.",
	}, []string{"priority"})

	m.bulkBatches = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "bulk",
		Name:      "batches_total",
		Help:      "Batches executed by the bulk processor.",
	})

	m.bulkJobFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "bulk",
		Name:      "job_failures_total",
		Help:      "Per-job failures inside bulk runs.",
	})

	m.replaceLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "replace_latency_ms",
		Help:      "Latency of the transactional ranking replace in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.jobsTracked = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "jobs_tracked",
		Help:      "Jobs with a ranking status row.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status code.",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request duration in milliseconds.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_bytes",
		Help:      "Process heap in use.",
	})

	m.systemGoroutineCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutines",
		Help:      "Number of goroutines.",
	})
}

// Calculation metrics.

func RecordCalculation(outcome string) {
	globalManager.calculationsTotal.WithLabelValues(outcome).Inc()
}

func RecordCalculationDuration(latencyMs float64) {
	globalManager.calculationDuration.Observe(latencyMs)
}

func RecordCandidatesRanked(count int) {
	globalManager.candidatesRanked.Observe(float64(count))
}

func RecordCalculationConflict() {
	globalManager.calculationConflicts.Inc()
}

// Staleness metrics.

func UpdateStaleJobs(count int) {
	globalManager.staleJobs.Set(float64(count))
}

func RecordInvalidation(reason string) {
	globalManager.invalidationsTotal.WithLabelValues(reason).Inc()
}

// Event bus metrics.

func RecordEventPublished(eventType string) {
	globalManager.eventsPublished.WithLabelValues(eventType).Inc()
}

func RecordEventDropped(eventType string) {
	globalManager.eventsDropped.WithLabelValues(eventType).Inc()
}

func RecordSubscriberError(subscriber string) {
	globalManager.subscriberErrors.WithLabelValues(subscriber).Inc()
}

// Bulk processing metrics.

func RecordBulkRun(priority string) {
	globalManager.bulkRuns.WithLabelValues(priority).Inc()
}

func RecordBulkBatch() {
	globalManager.bulkBatches.Inc()
}

func RecordBulkJobFailure() {
	globalManager.bulkJobFailures.Inc()
}

// Store metrics.

func RecordReplaceLatency(latencyMs float64) {
	globalManager.replaceLatency.Observe(latencyMs)
}

func UpdateJobsTracked(count int) {
	globalManager.jobsTracked.Set(float64(count))
}

// HTTP metrics.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// System metrics.

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by the service.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler returns an http.Handler serving the custom registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
