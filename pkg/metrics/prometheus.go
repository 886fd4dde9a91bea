// Package metrics provides Prometheus metrics for the detective core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the detective core.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Store metrics
	storeOps           *prometheus.CounterVec
	storeReadFailures  *prometheus.CounterVec
	storeWriteFailures *prometheus.CounterVec
	storeLatency       *prometheus.HistogramVec
	batchFlushes       prometheus.Counter
	batchFlushedKeys   prometheus.Counter
	batchPending       prometheus.Gauge

	// Game metrics
	leaderboardUpdates *prometheus.CounterVec
	leaderboardSize    *prometheus.GaugeVec
	progressSaves      prometheus.Counter
	progressResets     prometheus.Counter
	identityResolved   *prometheus.CounterVec
	gradeResults       *prometheus.CounterVec
	codeRuns           *prometheus.CounterVec
	codeRunLatency     prometheus.Histogram
	attemptsRecorded   prometheus.Counter
	bestScoreUpdates   prometheus.Counter
	feedbackRecorded   prometheus.Counter
	themeChanges       *prometheus.CounterVec

	// Relay metrics
	relayEnqueued     prometheus.Counter
	relayDropped      *prometheus.CounterVec
	relaySent         *prometheus.CounterVec
	relayLatency      prometheus.Histogram
	relayDuplicate    prometheus.Counter
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueUtilization  prometheus.Gauge
	workerActiveCount prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "detective",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	return m.metricPrefix + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.storeOps = m.counterVec("store_operations_total", "Key-value store operations by kind and result", "op", "result")
	m.storeReadFailures = m.counterVec("store_read_failures_total", "Corrupt or unreadable values replaced by defaults", "kind")
	m.storeWriteFailures = m.counterVec("store_write_failures_total", "Swallowed write failures", "kind")
	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Key-value store operation latency in milliseconds", "op")
	m.batchFlushes = m.counter("batch_flushes_total", "Write-coalescing flushes")
	m.batchFlushedKeys = m.counter("batch_flushed_keys_total", "Keys written by write-coalescing flushes")
	m.batchPending = m.gauge("batch_pending_writes", "Writes staged and waiting for the next flush")

	m.leaderboardUpdates = m.counterVec("leaderboard_updates_total", "Leaderboard submissions by outcome", "outcome")
	m.leaderboardSize = m.gaugeVec("leaderboard_entries", "Entries per game leaderboard", "game")
	m.progressSaves = m.counter("progress_saves_total", "Progress records saved")
	m.progressResets = m.counter("progress_resets_total", "Progress records reset")
	m.identityResolved = m.counterVec("identity_resolutions_total", "Identity resolutions by winning strategy", "strategy")
	m.gradeResults = m.counterVec("grade_results_total", "Output comparisons by verdict", "verdict")
	m.codeRuns = m.counterVec("code_runs_total", "Interpreter runs by result", "result")
	m.codeRunLatency = m.histogram("code_run_latency_milliseconds", "Interpreter run latency in milliseconds")
	m.attemptsRecorded = m.counter("attempts_recorded_total", "Attempt records appended to the analytics log")
	m.bestScoreUpdates = m.counter("best_score_updates_total", "Best-score cache improvements")
	m.feedbackRecorded = m.counter("feedback_recorded_total", "Feedback entries appended to the feedback log")
	m.themeChanges = m.counterVec("theme_changes_total", "Theme changes by resulting mode", "mode")

	m.relayEnqueued = m.counter("relay_enqueued_total", "Payloads handed to the relay queue")
	m.relayDropped = m.counterVec("relay_dropped_total", "Payloads dropped before delivery", "reason")
	m.relaySent = m.counterVec("relay_sent_total", "Relay delivery attempts by result", "result")
	m.relayLatency = m.histogram("relay_latency_milliseconds", "Relay POST latency in milliseconds")
	m.relayDuplicate = m.counter("relay_duplicate_total", "Payloads skipped because their id was already relayed")
	m.queueSize = m.gauge("queue_size", "Current size of the relay queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the relay queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Relay queue utilization ratio")
	m.workerActiveCount = m.gauge("worker_active_count", "Relay workers running")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// Store metrics.

// RecordStoreOp counts a store operation and its latency.
func RecordStoreOp(op, result string, latencyMs float64) {
	globalManager.storeOps.WithLabelValues(op, result).Inc()
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreReadFailure counts a value that could not be decoded.
func RecordStoreReadFailure(kind string) {
	globalManager.storeReadFailures.WithLabelValues(kind).Inc()
}

// RecordStoreWriteFailure counts a write that failed and was swallowed.
func RecordStoreWriteFailure(kind string) {
	globalManager.storeWriteFailures.WithLabelValues(kind).Inc()
}

// RecordBatchFlush counts a flush and the number of keys it wrote.
func RecordBatchFlush(keys int) {
	globalManager.batchFlushes.Inc()
	globalManager.batchFlushedKeys.Add(float64(keys))
}

// UpdateBatchPending sets the number of staged writes.
func UpdateBatchPending(n int) {
	globalManager.batchPending.Set(float64(n))
}

// Game metrics.

// RecordLeaderboardUpdate counts a leaderboard submission by outcome
// (inserted, improved, unchanged).
func RecordLeaderboardUpdate(outcome string) {
	globalManager.leaderboardUpdates.WithLabelValues(outcome).Inc()
}

// UpdateLeaderboardSize sets the number of entries on a game's leaderboard.
func UpdateLeaderboardSize(game string, n int) {
	globalManager.leaderboardSize.WithLabelValues(game).Set(float64(n))
}

// RecordProgressSave counts a saved progress record.
func RecordProgressSave() {
	globalManager.progressSaves.Inc()
}

// RecordProgressReset counts a reset progress record.
func RecordProgressReset() {
	globalManager.progressResets.Inc()
}

// RecordIdentityResolved counts which strategy resolved the identity.
func RecordIdentityResolved(strategy string) {
	globalManager.identityResolved.WithLabelValues(strategy).Inc()
}

// RecordGrade counts a comparison verdict (pass, fail).
func RecordGrade(verdict string) {
	globalManager.gradeResults.WithLabelValues(verdict).Inc()
}

// RecordCodeRun counts an interpreter run and its latency.
func RecordCodeRun(result string, latencyMs float64) {
	globalManager.codeRuns.WithLabelValues(result).Inc()
	globalManager.codeRunLatency.Observe(latencyMs)
}

// RecordAttempt counts an appended attempt record.
func RecordAttempt() {
	globalManager.attemptsRecorded.Inc()
}

// RecordBestScoreUpdate counts a best-score cache improvement.
func RecordBestScoreUpdate() {
	globalManager.bestScoreUpdates.Inc()
}

// RecordFeedback counts an appended feedback entry.
func RecordFeedback() {
	globalManager.feedbackRecorded.Inc()
}

// RecordThemeChange counts a theme change.
func RecordThemeChange(mode string) {
	globalManager.themeChanges.WithLabelValues(mode).Inc()
}

// Relay metrics.

// RecordRelayEnqueued counts a payload accepted by the relay queue.
func RecordRelayEnqueued() {
	globalManager.relayEnqueued.Inc()
}

// RecordRelayDropped counts a payload dropped before delivery.
func RecordRelayDropped(reason string) {
	globalManager.relayDropped.WithLabelValues(reason).Inc()
}

// RecordRelaySent counts a delivery attempt and its latency.
func RecordRelaySent(result string, latencyMs float64) {
	globalManager.relaySent.WithLabelValues(result).Inc()
	globalManager.relayLatency.Observe(latencyMs)
}

// RecordRelayDuplicate counts a payload skipped as already relayed.
func RecordRelayDuplicate() {
	globalManager.relayDuplicate.Inc()
}

// UpdateQueueSize sets the current relay queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the relay queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the relay queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// UpdateWorkerActiveCount sets the number of relay workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
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

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
