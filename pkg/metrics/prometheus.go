// Package metrics provides Prometheus metrics for the tapline tempo service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the tapline service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Core Tempo Metrics - What really matters for a tap session
	tapsAccepted  prometheus.Counter
	tapsRejected  prometheus.Counter
	tapsDuplicate prometheus.Counter
	sessionResets prometheus.Counter

	// Session Gauges - Latest estimator view
	instantBPM     prometheus.Gauge
	rollingBPM     prometheus.Gauge
	targetBPM      prometheus.Gauge
	accuracyScore  prometheus.Gauge
	sessionTaps    prometheus.Gauge
	liveClients    prometheus.Gauge
	settingsWrites prometheus.Counter

	// Timing Metrics
	tapInterval prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tapline",
		subsystem:        "tempo",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	m.tapsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "taps_accepted_total",
		Help:      "Total number of taps accepted by the estimator",
	})

	m.tapsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "taps_rejected_total",
		Help:      "Total number of taps rejected for falling under the minimum interval",
	})

	m.tapsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "taps_duplicate_total",
		Help:      "Total number of duplicate tap events detected by transport dedupe",
	})

	m.sessionResets = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_resets_total",
		Help:      "Total number of session resets",
	})

	m.settingsWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "settings_writes_total",
		Help:      "Total number of preference writes (target BPM, accuracy visibility)",
	})

	m.instantBPM = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "instant_bpm",
		Help:      "Most recent instantaneous BPM sample",
	})

	m.rollingBPM = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rolling_bpm",
		Help:      "Most recent rolling-average BPM over the trailing window",
	})

	m.targetBPM = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "target_bpm",
		Help:      "Currently configured target BPM (0 when unset)",
	})

	m.accuracyScore = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "accuracy_score",
		Help:      "Most recent accuracy score against the target BPM (0-100)",
	})

	m.sessionTaps = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_taps",
		Help:      "Number of taps accepted in the current session",
	})

	m.liveClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "live_clients",
		Help:      "Number of currently connected live WebSocket clients",
	})

	m.tapInterval = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tap_interval_milliseconds",
		Help:      "Histogram of intervals between consecutive accepted taps in milliseconds",
		Buckets:   []float64{50, 100, 200, 300, 500, 750, 1000, 1500, 2000, 5000},
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Total number of errors by endpoint",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_type_total",
			Help:      "Total number of errors by type",
		},
		[]string{"error_type", "severity"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "error_latency_milliseconds",
			Help:      "Latency of operations that resulted in errors",
			Buckets:   m.histogramBuckets,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordTapAccepted increments the accepted taps counter.
func RecordTapAccepted() {
	globalManager.tapsAccepted.Inc()
}

// RecordTapRejected increments the rejected taps counter.
func RecordTapRejected() {
	globalManager.tapsRejected.Inc()
}

// RecordTapDuplicate increments the duplicate taps counter.
func RecordTapDuplicate() {
	globalManager.tapsDuplicate.Inc()
}

// RecordSessionReset increments the session resets counter.
func RecordSessionReset() {
	globalManager.sessionResets.Inc()
}

// RecordSettingsWrite increments the preference writes counter.
func RecordSettingsWrite() {
	globalManager.settingsWrites.Inc()
}

// RecordTapInterval records the interval between two accepted taps in milliseconds.
func RecordTapInterval(intervalMs float64) {
	globalManager.tapInterval.Observe(intervalMs)
}

// UpdateInstantBPM sets the latest instantaneous BPM sample.
func UpdateInstantBPM(bpm int) {
	globalManager.instantBPM.Set(float64(bpm))
}

// UpdateRollingBPM sets the latest rolling-average BPM.
func UpdateRollingBPM(bpm int) {
	globalManager.rollingBPM.Set(float64(bpm))
}

// UpdateTargetBPM sets the configured target BPM (0 when unset).
func UpdateTargetBPM(bpm int) {
	globalManager.targetBPM.Set(float64(bpm))
}

// UpdateAccuracyScore sets the latest accuracy score.
func UpdateAccuracyScore(score int) {
	globalManager.accuracyScore.Set(float64(score))
}

// UpdateSessionTaps sets the number of taps accepted in the current session.
func UpdateSessionTaps(count int) {
	globalManager.sessionTaps.Set(float64(count))
}

// UpdateLiveClients sets the number of connected live clients.
func UpdateLiveClients(count int) {
	globalManager.liveClients.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
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
