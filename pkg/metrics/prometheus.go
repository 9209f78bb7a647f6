// Package metrics provides Prometheus metrics for the jmscore scoring service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	namespace              = "jmscore"
	subsystem              = "scoring"
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the scoring service.
type Manager struct {
	enabled         bool
	refreshInterval time.Duration
	registry        prometheus.Registerer

	// Game operations
	authAttempts       *prometheus.CounterVec
	submissions        *prometheus.CounterVec
	submissionLatency  prometheus.Histogram
	leaderboardWrites  prometheus.Counter
	personalEvictions  prometheus.Counter
	queryLatency       *prometheus.HistogramVec
	replayBytesWritten prometheus.Counter
	replayBytesServed  prometheus.Counter
	replayMisses       prometheus.Counter

	// Store
	storeLatency *prometheus.HistogramVec
	storeRecords *prometheus.GaugeVec

	// Submission queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Writers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
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

// Init rebuilds the global manager with opts on a fresh registry. Call it
// once at startup, before any recorder runs concurrently.
func Init(opts ...Option) {
	reg := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(reg))...)
	customRegistry = reg
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	// A disabled manager still hands out working collectors, they are just
	// never exposed.
	if !m.enabled {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often periodic gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

// Enabled reports whether metrics are exposed on the configured registry.
func (m *Manager) Enabled() bool {
	return m.enabled
}

func counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help}
}

func gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help}
}

func histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	b := prometheus.DefBuckets

	m.authAttempts = auto.NewCounterVec(counterOpts("auth_attempts_total", "Authentication attempts by result"), []string{"result"})
	m.submissions = auto.NewCounterVec(counterOpts("submissions_total", "Score submissions by outcome"), []string{"outcome"})
	m.submissionLatency = auto.NewHistogram(histogramOpts("submission_latency_milliseconds", "Time to apply a score submission in milliseconds", b))
	m.leaderboardWrites = auto.NewCounter(counterOpts("leaderboard_writes_total", "Global leaderboard values written"))
	m.personalEvictions = auto.NewCounter(counterOpts("personal_evictions_total", "Personal top-10 entries replaced by a better score"))
	m.queryLatency = auto.NewHistogramVec(histogramOpts("query_latency_milliseconds", "Ranking query latency in milliseconds", b), []string{"kind"})
	m.replayBytesWritten = auto.NewCounter(counterOpts("replay_bytes_written_total", "Raw replay bytes stored"))
	m.replayBytesServed = auto.NewCounter(counterOpts("replay_bytes_served_total", "Raw replay bytes served"))
	m.replayMisses = auto.NewCounter(counterOpts("replay_misses_total", "Replay requests for unknown entries"))

	m.storeLatency = auto.NewHistogramVec(histogramOpts("store_latency_milliseconds", "Store transaction latency in milliseconds", b), []string{"op"})
	m.storeRecords = auto.NewGaugeVec(gaugeOpts("store_records", "Number of values per table"), []string{"table"})

	m.queueSize = auto.NewGauge(gaugeOpts("queue_size", "Current number of queued submissions"))
	m.queueCapacity = auto.NewGauge(gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueUtilization = auto.NewGauge(gaugeOpts("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)"))
	m.queueEnqueueRate = auto.NewCounter(counterOpts("queue_enqueue_total", "Total number of submissions enqueued"))
	m.queueDequeueRate = auto.NewCounter(counterOpts("queue_dequeue_total", "Total number of submissions dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(counterOpts("queue_enqueue_errors_total", "Total number of rejected enqueues"))
	m.queueProcessingLatency = auto.NewHistogram(histogramOpts("queue_processing_latency_milliseconds", "Enqueue latency in milliseconds", b))

	m.workerCount = auto.NewGauge(gaugeOpts("worker_count", "Number of running submission writers"))
	m.workerProcessingLatency = auto.NewHistogram(histogramOpts("worker_processing_latency_milliseconds", "Writer job latency in milliseconds", b))
	m.workerErrorRate = auto.NewCounter(counterOpts("worker_errors_total", "Total number of failed writer jobs"))

	m.httpRequests = auto.NewCounterVec(counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", b),
		[]string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(counterOpts("errors_by_type_total", "Total number of errors by type"),
		[]string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(histogramOpts("error_latency_milliseconds", "Latency of operations that resulted in errors", b),
		[]string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RefreshInterval returns the refresh interval of the global manager.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// RecordAuth counts an authentication attempt ("ok", "registered", "denied").
func RecordAuth(result string) {
	globalManager.authAttempts.WithLabelValues(result).Inc()
}

// RecordSubmission counts a submission by outcome.
func RecordSubmission(outcome string) {
	globalManager.submissions.WithLabelValues(outcome).Inc()
}

// RecordSubmissionLatency records the time to apply a submission.
func RecordSubmissionLatency(latencyMs float64) {
	globalManager.submissionLatency.Observe(latencyMs)
}

// RecordLeaderboardWrite counts a global leaderboard write.
func RecordLeaderboardWrite() {
	globalManager.leaderboardWrites.Inc()
}

// RecordPersonalEviction counts a personal top-10 replacement.
func RecordPersonalEviction() {
	globalManager.personalEvictions.Inc()
}

// RecordQueryLatency records ranking query latency by kind ("global", "personal").
func RecordQueryLatency(kind string, latencyMs float64) {
	globalManager.queryLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordReplayWritten adds to the stored replay byte counter.
func RecordReplayWritten(n int) {
	globalManager.replayBytesWritten.Add(float64(n))
}

// RecordReplayServed adds to the served replay byte counter.
func RecordReplayServed(n int) {
	globalManager.replayBytesServed.Add(float64(n))
}

// RecordReplayMiss counts a replay request for an unknown entry.
func RecordReplayMiss() {
	globalManager.replayMisses.Inc()
}

// RecordStoreLatency records store transaction latency by operation.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateStoreRecords sets the number of values stored in a table.
func UpdateStoreRecords(table string, count int) {
	globalManager.storeRecords.WithLabelValues(table).Set(float64(count))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records enqueue latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the number of running writers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records writer job latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the writer error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

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
