// Package metrics provides Prometheus metrics for the gamespin gate and client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Authorization results used as label values.
const (
	ResultGranted     = "granted"
	ResultDenied      = "denied"
	ResultUnavailable = "unavailable"
	ResultInvalid     = "invalid"
	ResultOK          = "ok"
	ResultError       = "error"
	ResultDropped     = "dropped"
)

// Manager owns every collector exported by the process.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Gate
	authorizations       *prometheus.CounterVec
	authorizationLatency prometheus.Histogram
	statusChecks         *prometheus.CounterVec
	storeErrors          *prometheus.CounterVec
	trackedIdentities    prometheus.Gauge

	// Profiles
	profileOps *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByType        *prometheus.CounterVec
	errorsByEndpoint    *prometheus.CounterVec

	// Client side persistence and animation
	saveQueueSize  prometheus.Gauge
	saveQueueOps   *prometheus.CounterVec
	spinsCompleted prometheus.Counter
	spinTicks      prometheus.Counter
	spinLandingErr prometheus.Histogram

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // avoids default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gamespin",
		subsystem:        "gate",
		histogramBuckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.authorizations = m.counterVec("authorizations_total", "Spin authorization attempts by result", "result")
	m.authorizationLatency = m.histogram("authorization_latency_milliseconds", "Latency of the atomic authorize operation", m.histogramBuckets)
	m.statusChecks = m.counterVec("status_checks_total", "Read-only cooldown status checks by result", "result")
	m.storeErrors = m.counterVec("store_errors_total", "Authorization/profile store failures by operation", "operation")
	m.trackedIdentities = m.gauge("tracked_identities", "Identities with an authorization record")

	m.profileOps = m.counterVec("profile_operations_total", "Profile loads and saves by result", "operation", "result")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.saveQueueSize = m.gauge("save_queue_size", "Pending profile snapshots awaiting persistence")
	m.saveQueueOps = m.counterVec("save_queue_operations_total", "Save queue operations by result", "operation", "result")
	m.spinsCompleted = promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "spins_completed_total", Help: "Reel spins that reached their landing",
	})
	m.spinTicks = promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "spin_ticks_total", Help: "Boundary-crossing tick events emitted",
	})
	m.spinLandingErr = m.histogram("spin_frame_overrun_milliseconds", "How far past the curve duration the landing frame arrived",
		[]float64{1, 5, 10, 16, 33, 50, 100, 250})

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100})
}

// RecordAuthorization counts an authorization attempt and its latency.
func RecordAuthorization(result string, latencyMs float64) {
	globalManager.authorizations.WithLabelValues(result).Inc()
	globalManager.authorizationLatency.Observe(latencyMs)
}

// RecordStatusCheck counts a status check.
func RecordStatusCheck(result string) {
	globalManager.statusChecks.WithLabelValues(result).Inc()
}

// RecordStoreError counts a store failure for operation.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// UpdateTrackedIdentities sets the number of identities with a record.
func UpdateTrackedIdentities(count int) {
	globalManager.trackedIdentities.Set(float64(count))
}

// RecordProfileOperation counts a profile load or save.
func RecordProfileOperation(operation, result string) {
	globalManager.profileOps.WithLabelValues(operation, result).Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByType counts an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint counts an error by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSaveQueueSize sets the pending snapshot count.
func UpdateSaveQueueSize(size int) {
	globalManager.saveQueueSize.Set(float64(size))
}

// RecordSaveQueue counts a save queue operation.
func RecordSaveQueue(operation, result string) {
	globalManager.saveQueueOps.WithLabelValues(operation, result).Inc()
}

// RecordSpinCompleted counts a landed spin and how late the landing frame was.
func RecordSpinCompleted(overrunMs float64) {
	globalManager.spinsCompleted.Inc()
	globalManager.spinLandingErr.Observe(overrunMs)
}

// RecordSpinTicks counts emitted tick events.
func RecordSpinTicks(n int) {
	if n > 0 {
		globalManager.spinTicks.Add(float64(n))
	}
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry all package-level helpers write to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
