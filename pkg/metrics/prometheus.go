// Package metrics provides Prometheus metrics for the lomba leaderboard service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Leaderboard
	leaderboardComputations *prometheus.CounterVec
	leaderboardLatency      *prometheus.HistogramVec
	rankedEntries           *prometheus.GaugeVec

	// Submissions
	submissionsAccepted  prometheus.Counter
	submissionsDuplicate prometheus.Counter
	submissionsRejected  *prometheus.CounterVec
	scoresUpserted       *prometheus.CounterVec

	// Store
	storeQueryLatency *prometheus.HistogramVec
	storeErrors       *prometheus.CounterVec
	storeRecords      *prometheus.GaugeVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueTotal  prometheus.Counter
	queueDequeueTotal  prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the Record*/Update* helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out of /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry the
// collectors are registered on prometheus.DefaultRegisterer.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "lomba",
		subsystem:        "leaderboard",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// name applies the optional metric prefix.
func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	counterVec := func(name, help string, lbl ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		}, lbl)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	gaugeVec := func(name, help string, lbl ...string) *prometheus.GaugeVec {
		return auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		}, lbl)
	}
	histogram := func(name, help string) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
			Buckets: m.histogramBuckets,
		})
	}
	histogramVec := func(name, help string, lbl ...string) *prometheus.HistogramVec {
		return auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
			Buckets: m.histogramBuckets,
		}, lbl)
	}

	m.leaderboardComputations = counterVec("computations_total", "Number of leaderboard computations", "category", "scope")
	m.leaderboardLatency = histogramVec("computation_latency_milliseconds", "Time spent fetching and ranking a leaderboard", "category")
	m.rankedEntries = gaugeVec("ranked_entries", "Entries in the last computed leaderboard", "category")

	m.submissionsAccepted = counter("submissions_accepted_total", "Score sheets accepted for processing")
	m.submissionsDuplicate = counter("submissions_duplicate_total", "Score sheets rejected as duplicates")
	m.submissionsRejected = counterVec("submissions_rejected_total", "Score sheets rejected by scoring", "reason")
	m.scoresUpserted = counterVec("scores_upserted_total", "Score rows written to the store", "result")

	m.storeQueryLatency = histogramVec("store_query_latency_milliseconds", "Store operation latency", "op")
	m.storeErrors = counterVec("store_errors_total", "Store operation failures", "op")
	m.storeRecords = gaugeVec("store_records", "Records held by the store", "collection")

	m.queueSize = gauge("queue_size", "Current number of queued score sheets")
	m.queueCapacity = gauge("queue_capacity", "Queue capacity")
	m.queueUtilization = gauge("queue_utilization", "Queue fill ratio (0-1)")
	m.queueEnqueueTotal = counter("queue_enqueue_total", "Score sheets enqueued")
	m.queueDequeueTotal = counter("queue_dequeue_total", "Score sheets dequeued")
	m.queueEnqueueErrors = counter("queue_enqueue_errors_total", "Failed enqueue attempts")

	m.workerCount = gauge("worker_count", "Configured scoring workers")
	m.workerProcessingLatency = histogram("worker_processing_latency_milliseconds", "Time to score and store one sheet")
	m.workerErrors = counter("worker_errors_total", "Worker processing failures")

	m.httpRequests = counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")

	m.errorsByComponent = counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorsByType = counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorsByEndpoint = counterVec("errors_by_endpoint_total", "Errors by HTTP endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = histogram("system_gc_pause_milliseconds", "Average GC pause")
}

func enabled() bool { return globalManager != nil && globalManager.enabled }

// RecordLeaderboardComputation counts one ranking run and its latency.
func RecordLeaderboardComputation(category string, includeUnpublished bool, latencyMs float64, entries int) {
	if !enabled() {
		return
	}
	scope := "public"
	if includeUnpublished {
		scope = "recap"
	}
	globalManager.leaderboardComputations.WithLabelValues(category, scope).Inc()
	globalManager.leaderboardLatency.WithLabelValues(category).Observe(latencyMs)
	globalManager.rankedEntries.WithLabelValues(category).Set(float64(entries))
}

// RecordSubmissionAccepted counts a score sheet that entered the queue.
func RecordSubmissionAccepted() {
	if enabled() {
		globalManager.submissionsAccepted.Inc()
	}
}

// RecordSubmissionDuplicate counts a replayed submission id.
func RecordSubmissionDuplicate() {
	if enabled() {
		globalManager.submissionsDuplicate.Inc()
	}
}

// RecordSubmissionRejected counts a sheet the scorer refused.
func RecordSubmissionRejected(reason string) {
	if enabled() {
		globalManager.submissionsRejected.WithLabelValues(reason).Inc()
	}
}

// RecordScoreUpserted counts a score row write; created reports an insert.
func RecordScoreUpserted(created bool) {
	if !enabled() {
		return
	}
	result := "updated"
	if created {
		result = "created"
	}
	globalManager.scoresUpserted.WithLabelValues(result).Inc()
}

// RecordStoreQuery observes a store call.
func RecordStoreQuery(op string, latencyMs float64, err error) {
	if !enabled() {
		return
	}
	globalManager.storeQueryLatency.WithLabelValues(op).Observe(latencyMs)
	if err != nil {
		globalManager.storeErrors.WithLabelValues(op).Inc()
	}
}

// UpdateStoreRecords sets the record gauge of a collection.
func UpdateStoreRecords(collection string, count int) {
	if enabled() {
		globalManager.storeRecords.WithLabelValues(collection).Set(float64(count))
	}
}

// UpdateQueueSize sets the queue backlog gauge.
func UpdateQueueSize(size int) {
	if enabled() {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	if enabled() {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	if enabled() {
		globalManager.queueUtilization.Set(utilization)
	}
}

// RecordQueueEnqueue counts a successful enqueue.
func RecordQueueEnqueue() {
	if enabled() {
		globalManager.queueEnqueueTotal.Inc()
	}
}

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() {
	if enabled() {
		globalManager.queueDequeueTotal.Inc()
	}
}

// RecordQueueEnqueueError counts a refused enqueue.
func RecordQueueEnqueueError() {
	if enabled() {
		globalManager.queueEnqueueErrors.Inc()
	}
}

// UpdateWorkerCount sets the worker gauge.
func UpdateWorkerCount(count int) {
	if enabled() {
		globalManager.workerCount.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency observes one processed sheet.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if enabled() {
		globalManager.workerProcessingLatency.Observe(latencyMs)
	}
}

// RecordWorkerError counts a failed sheet.
func RecordWorkerError() {
	if enabled() {
		globalManager.workerErrors.Inc()
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if enabled() {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if enabled() {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordErrorByComponent counts an error raised by a component.
func RecordErrorByComponent(component, errorType string) {
	if enabled() {
		globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByType counts an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	if enabled() {
		globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint counts an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if enabled() {
		globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if enabled() {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	if enabled() {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	if enabled() {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the registry backing /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval reports how often gauge refreshers should run.
func RefreshInterval() time.Duration {
	if globalManager == nil {
		return defaultRefreshInterval
	}
	return globalManager.refreshInterval
}
