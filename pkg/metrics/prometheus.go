// Package metrics provides Prometheus metrics for the burnout nudge service.
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

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Pipeline Metrics - snapshot load, validation, inference
	recordsLoaded        prometheus.Gauge
	snapshotLoads        prometheus.Counter
	snapshotLoadDuration prometheus.Histogram
	schemaErrors         prometheus.Counter
	duplicateErrors      prometheus.Counter
	inferenceLatency     prometheus.Histogram
	inferenceErrors      prometheus.Counter

	// Business Metrics - what the classifier and rules produced
	predictedLabels *prometheus.GaugeVec
	nudgesDerived   *prometheus.CounterVec

	// Repository Metrics
	repositoryQueryLatency prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue Metrics - batch nudge jobs
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker Metrics - batch nudge derivation
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Error Metrics - detailed error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

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
		namespace:        "empathy",
		subsystem:        "burnout",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
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

// Configure rebuilds the global manager on a fresh registry. It must run
// before metrics are recorded, typically once at startup.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	customRegistry = registry
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(registry)}, opts...)...)
}

// RefreshInterval is how often periodic gauges should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// name applies the configured metric prefix.
func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// A disabled manager still hands out working collectors, it just never
	// registers them.
	reg := m.registry
	if !m.enabled {
		reg = nil
	}
	auto := promauto.With(reg)

	m.recordsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("records_loaded"),
		Help:        "Number of weekly records in the current snapshot",
	})

	m.snapshotLoads = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("snapshot_loads_total"),
		Help:        "Total number of completed snapshot load cycles",
	})

	m.snapshotLoadDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("snapshot_load_duration_milliseconds"),
		Help:        "Duration of a full load cycle (read, validate, infer, nudge) in milliseconds",
		Buckets:     m.histogramBuckets,
	})

	m.schemaErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("schema_errors_total"),
		Help:        "Total number of snapshots rejected for missing required columns",
	})

	m.duplicateErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("duplicate_record_errors_total"),
		Help:        "Total number of snapshots rejected for repeated employee-week keys",
	})

	m.inferenceLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("inference_latency_milliseconds"),
		Help:        "Histogram of batch inference latency in milliseconds",
		Buckets:     m.histogramBuckets,
	})

	m.inferenceErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("inference_errors_total"),
		Help:        "Total number of classifier failures",
	})

	m.predictedLabels = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			ConstLabels: m.customLabels,
			Name:        m.name("predicted_label_records"),
			Help:        "Number of records per predicted risk label in the current snapshot",
		},
		[]string{"label"},
	)

	m.nudgesDerived = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			ConstLabels: m.customLabels,
			Name:        m.name("nudges_derived_total"),
			Help:        "Total number of nudges derived by kind",
		},
		[]string{"kind"},
	)

	m.repositoryQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("repository_query_latency_milliseconds"),
		Help:        "Snapshot query latency in milliseconds",
		Buckets:     m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			ConstLabels: m.customLabels,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			ConstLabels: m.customLabels,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("queue_size"),
		Help:        "Current number of queued nudge jobs",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("queue_capacity"),
		Help:        "Maximum queue capacity",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("queue_utilization_ratio"),
		Help:        "Queue utilization ratio (current size / capacity)",
	})

	m.queueEnqueueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("queue_enqueue_total"),
		Help:        "Total number of jobs enqueued",
	})

	m.queueDequeueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("queue_dequeue_total"),
		Help:        "Total number of jobs dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("queue_enqueue_errors_total"),
		Help:        "Total number of enqueue errors",
	})

	m.queueProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("queue_processing_latency_milliseconds"),
		Help:        "Queue processing latency in milliseconds",
		Buckets:     m.histogramBuckets,
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("worker_count"),
		Help:        "Number of workers in the last nudge batch",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("worker_processing_latency_milliseconds"),
		Help:        "Worker processing latency in milliseconds",
		Buckets:     m.histogramBuckets,
	})

	m.workerErrorRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("worker_errors_total"),
		Help:        "Total number of worker errors",
	})

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			ConstLabels: m.customLabels,
			Name:        m.name("errors_by_component_total"),
			Help:        "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			ConstLabels: m.customLabels,
			Name:        m.name("errors_by_type_total"),
			Help:        "Total number of errors by type",
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			ConstLabels: m.customLabels,
			Name:        m.name("errors_by_endpoint_total"),
			Help:        "Total number of errors by endpoint",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			ConstLabels: m.customLabels,
			Name:        m.name("error_latency_milliseconds"),
			Help:        "Latency of operations that resulted in errors",
			Buckets:     m.histogramBuckets,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.customLabels,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Pipeline Metrics Functions.

// UpdateRecordsLoaded sets the number of records in the current snapshot.
func UpdateRecordsLoaded(count int) {
	globalManager.recordsLoaded.Set(float64(count))
}

// RecordSnapshotLoad records one completed load cycle and its duration.
func RecordSnapshotLoad(durationMs float64) {
	globalManager.snapshotLoads.Inc()
	globalManager.snapshotLoadDuration.Observe(durationMs)
}

// RecordSchemaError increments the schema error counter.
func RecordSchemaError() {
	globalManager.schemaErrors.Inc()
}

// RecordDuplicateError increments the duplicate record counter.
func RecordDuplicateError() {
	globalManager.duplicateErrors.Inc()
}

// RecordInferenceLatency records batch inference latency in milliseconds.
func RecordInferenceLatency(latencyMs float64) {
	globalManager.inferenceLatency.Observe(latencyMs)
}

// RecordInferenceError increments the classifier failure counter.
func RecordInferenceError() {
	globalManager.inferenceErrors.Inc()
}

// UpdatePredictedLabelCount sets the number of records carrying label.
func UpdatePredictedLabelCount(label string, count int) {
	globalManager.predictedLabels.WithLabelValues(label).Set(float64(count))
}

// RecordNudgeDerived increments the counter for a nudge kind.
func RecordNudgeDerived(kind string) {
	globalManager.nudgesDerived.WithLabelValues(kind).Inc()
}

// Repository Metrics Functions.

// RecordRepositoryQueryLatency records snapshot query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue Metrics Functions.

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

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// Error Metrics Functions.

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

// System Performance Metrics Functions.

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
