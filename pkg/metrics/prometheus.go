// Package metrics provides Prometheus metrics for the brewrank service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager manages all Prometheus metrics for the brewrank service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ranking metrics
	candidates         *prometheus.CounterVec
	comparisonsApplied prometheus.Counter
	directComparisons  prometheus.Counter
	sessionsCommitted  prometheus.Counter
	sessionsAbandoned  prometheus.Counter
	conflictMerges     prometheus.Counter
	replaysRejected    prometheus.Counter
	entriesRemoved     prometheus.Counter

	// Catalog and list gauges
	catalogBeers prometheus.Gauge
	listsTotal   prometheus.Gauge
	guardSize    prometheus.Gauge
	guardEvicted prometheus.Gauge

	// Store metrics
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorRateByKind      *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init rebuilds the global manager from opts on a fresh registry. It must
// run before any handler from Handler is created.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(registry)}, opts...)...)
	customRegistry = registry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "brewrank",
		subsystem:        "ranking",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	m.candidates = m.counterVec("candidates_total",
		"Candidates submitted for insertion, by outcome (inserted, merged, session_started)", "outcome")
	m.comparisonsApplied = m.counter("comparisons_applied_total",
		"Session comparison steps applied")
	m.directComparisons = m.counter("direct_comparisons_total",
		"Direct two-beer comparisons applied")
	m.sessionsCommitted = m.counter("sessions_committed_total",
		"Comparison sessions whose candidate was committed")
	m.sessionsAbandoned = m.counter("sessions_abandoned_total",
		"Comparison sessions abandoned by the client")
	m.conflictMerges = m.counter("conflict_merges_total",
		"Commits that found the beer already inserted and merged instead")
	m.replaysRejected = m.counter("replays_rejected_total",
		"Comparison steps rejected because they were already consumed")
	m.entriesRemoved = m.counter("entries_removed_total",
		"List entries removed")

	m.catalogBeers = m.gauge("catalog_beers", "Beers in the catalog")
	m.listsTotal = m.gauge("lists", "Lists known to the store")
	m.guardSize = m.gauge("step_guard_size", "Consumed steps held by the in-memory guard")
	m.guardEvicted = m.gauge("step_guard_evicted", "Consumed steps dropped by the in-memory guard")

	m.storeLatency = m.histogramVec("store_operation_duration_milliseconds",
		"Store operation latency in milliseconds", "backend", "op")
	m.storeErrors = m.counterVec("store_errors_total",
		"Store operations that failed", "backend", "op")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and type", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by endpoint", "endpoint", "method", "error_type")
	m.errorRateByKind = m.counterVec("errors_by_kind_total",
		"Operation errors by kind (not_found, invalid_argument, permission_denied, conflict, internal)", "kind")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Allocated heap bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_milliseconds",
		Help:        "Average GC pause in milliseconds",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
		ConstLabels: m.constLabels,
	})
}

// Ranking metrics.

// RecordCandidate counts a candidate by outcome.
func RecordCandidate(outcome string) {
	globalManager.candidates.WithLabelValues(outcome).Inc()
}

// RecordComparisonApplied counts a session comparison step.
func RecordComparisonApplied() {
	globalManager.comparisonsApplied.Inc()
}

// RecordDirectComparison counts a direct comparison.
func RecordDirectComparison() {
	globalManager.directComparisons.Inc()
}

// RecordSessionCommitted counts a committed session.
func RecordSessionCommitted() {
	globalManager.sessionsCommitted.Inc()
}

// RecordSessionAbandoned counts an abandoned session.
func RecordSessionAbandoned() {
	globalManager.sessionsAbandoned.Inc()
}

// RecordConflictMerge counts a commit that fell back to merge.
func RecordConflictMerge() {
	globalManager.conflictMerges.Inc()
}

// RecordReplayRejected counts a rejected replayed step.
func RecordReplayRejected() {
	globalManager.replaysRejected.Inc()
}

// RecordEntryRemoved counts a removed list entry.
func RecordEntryRemoved() {
	globalManager.entriesRemoved.Inc()
}

// Gauges.

// UpdateCatalogBeers sets the catalog size.
func UpdateCatalogBeers(count int) {
	globalManager.catalogBeers.Set(float64(count))
}

// UpdateListsTotal sets the number of lists.
func UpdateListsTotal(count int) {
	globalManager.listsTotal.Set(float64(count))
}

// UpdateStepGuard sets the in-memory guard size and eviction count.
func UpdateStepGuard(size, evicted int64) {
	globalManager.guardSize.Set(float64(size))
	globalManager.guardEvicted.Set(float64(evicted))
}

// Store metrics.

// RecordStoreOperation records the latency of a store call, and counts it
// as failed when err is non-nil.
func RecordStoreOperation(backend, op string, started time.Time, err error) {
	ms := float64(time.Since(started).Microseconds()) / 1000
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(ms)
	if err != nil {
		globalManager.storeErrors.WithLabelValues(backend, op).Inc()
	}
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

// RecordErrorByComponent increments the error counter for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint increments the error counter for an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByKind increments the error counter for an error kind.
func RecordErrorByKind(kind string) {
	globalManager.errorRateByKind.WithLabelValues(kind).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler serves the custom registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
