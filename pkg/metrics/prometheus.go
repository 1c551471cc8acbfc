// Package metrics provides Prometheus metrics for the platehub aggregation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Vendor traffic
	vendorRequests        *prometheus.CounterVec
	vendorRequestDuration *prometheus.HistogramVec
	fetchFailures         *prometheus.CounterVec
	tenantAvailable       *prometheus.GaugeVec

	// Token and rate limiting
	tokenRefreshes      *prometheus.CounterVec
	rateLimitWaits      *prometheus.CounterVec
	rateLimitWaitMillis *prometheus.HistogramVec

	// Aggregation results
	athletesFound      prometheus.Gauge
	athletesMerged     prometheus.Counter
	canonicalFields    prometheus.Histogram
	aliasResolutions   *prometheus.CounterVec
	comparisonsByBand  *prometheus.CounterVec
	percentileMissing  prometheus.Counter
	testsFetched       prometheus.Counter
	trialSetsRetrieved prometheus.Counter

	// Worker pool
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	workerCount        prometheus.Gauge
	workerJobLatency   prometheus.Histogram
	queueEnqueueErrors prometheus.Counter

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "platehub",
		subsystem:        "aggregator",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		enabled:          true,
		constLabels:      map[string]string{},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.vendorRequests = m.counterVec("vendor_requests_total",
		"Outbound vendor API requests by tenant, operation and outcome", "tenant", "operation", "outcome")
	m.vendorRequestDuration = m.histogramVec("vendor_request_duration_milliseconds",
		"Latency of outbound vendor API requests", m.histogramBuckets, "tenant", "operation")
	m.fetchFailures = m.counterVec("fetch_failures_total",
		"Per-item fetch failures swallowed by the orchestrator", "tenant", "operation")
	m.tenantAvailable = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "tenant_available",
		Help: "1 when the tenant authenticated on its last attempt, 0 otherwise", ConstLabels: m.constLabels,
	}, []string{"tenant"})

	m.tokenRefreshes = m.counterVec("token_refreshes_total",
		"OAuth2 token acquisitions by tenant and outcome", "tenant", "outcome")
	m.rateLimitWaits = m.counterVec("rate_limit_waits_total",
		"Requests that had to wait for a rate limiter slot", "tenant")
	m.rateLimitWaitMillis = m.histogramVec("rate_limit_wait_milliseconds",
		"Time spent suspended waiting for a rate limiter slot", m.histogramBuckets, "tenant")

	m.athletesFound = m.gauge("athletes_found", "Athletes returned by the last directory search")
	m.athletesMerged = m.counter("athletes_merged_total", "Profiles merged into an existing athlete")
	m.canonicalFields = m.histogram("canonical_fields", "Fields per canonical metric set",
		[]float64{0, 10, 25, 50, 100, 200, 400, 800})
	m.aliasResolutions = m.counterVec("alias_resolutions_total",
		"Alias targets filled from a candidate field", "target")
	m.comparisonsByBand = m.counterVec("comparisons_total", "Comparative results by rating band", "rating")
	m.percentileMissing = m.counter("percentile_missing_total", "Comparisons that produced no percentile")
	m.testsFetched = m.counter("tests_fetched_total", "Test summaries returned by the vendor")
	m.trialSetsRetrieved = m.counter("trial_sets_retrieved_total", "Trial detail sets retrieved")

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the fetch queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the fetch queue")
	m.workerCount = m.gauge("worker_count", "Fetch workers running")
	m.workerJobLatency = m.histogram("worker_job_latency_milliseconds",
		"Time to fetch and canonicalize one test", m.histogramBuckets)
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Jobs rejected by the fetch queue")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests served", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request latency",
		m.histogramBuckets, "endpoint", "method", "status_code")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint",
		"endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100})
}

// RecordVendorRequest counts one outbound request and its latency.
func (m *Manager) RecordVendorRequest(tenant, operation, outcome string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.vendorRequests.WithLabelValues(tenant, operation, outcome).Inc()
	m.vendorRequestDuration.WithLabelValues(tenant, operation).Observe(durationMs)
}

// RecordFetchFailure counts a swallowed per-item failure.
func (m *Manager) RecordFetchFailure(tenant, operation string) {
	if !m.enabled {
		return
	}
	m.fetchFailures.WithLabelValues(tenant, operation).Inc()
}

// SetTenantAvailable records whether a tenant could authenticate.
func (m *Manager) SetTenantAvailable(tenant string, ok bool) {
	if !m.enabled {
		return
	}
	v := 0.0
	if ok {
		v = 1
	}
	m.tenantAvailable.WithLabelValues(tenant).Set(v)
}

// RecordTokenRefresh counts a token acquisition attempt.
func (m *Manager) RecordTokenRefresh(tenant, outcome string) {
	if !m.enabled {
		return
	}
	m.tokenRefreshes.WithLabelValues(tenant, outcome).Inc()
}

// RecordRateLimitWait records a suspension imposed by the rate limiter.
func (m *Manager) RecordRateLimitWait(tenant string, waitMs float64) {
	if !m.enabled {
		return
	}
	m.rateLimitWaits.WithLabelValues(tenant).Inc()
	m.rateLimitWaitMillis.WithLabelValues(tenant).Observe(waitMs)
}

// RecordDirectorySearch records the size of a search result and how many merges it took.
func (m *Manager) RecordDirectorySearch(found, merged int) {
	if !m.enabled {
		return
	}
	m.athletesFound.Set(float64(found))
	m.athletesMerged.Add(float64(merged))
}

// RecordCanonicalSet records the size of a canonical metric set.
func (m *Manager) RecordCanonicalSet(fields int) {
	if !m.enabled {
		return
	}
	m.canonicalFields.Observe(float64(fields))
}

// RecordAliasResolution counts an alias target filled from a candidate.
func (m *Manager) RecordAliasResolution(target string) {
	if !m.enabled {
		return
	}
	m.aliasResolutions.WithLabelValues(target).Inc()
}

// RecordComparison counts a comparative result by rating band.
func (m *Manager) RecordComparison(rating string, hasPercentile bool) {
	if !m.enabled {
		return
	}
	if !hasPercentile {
		m.percentileMissing.Inc()
		return
	}
	m.comparisonsByBand.WithLabelValues(rating).Inc()
}

// RecordTestsFetched adds to the number of test summaries fetched.
func (m *Manager) RecordTestsFetched(n int) {
	if !m.enabled {
		return
	}
	m.testsFetched.Add(float64(n))
}

// RecordTrialSetRetrieved counts a successful trial detail fetch.
func (m *Manager) RecordTrialSetRetrieved() {
	if !m.enabled {
		return
	}
	m.trialSetsRetrieved.Inc()
}

// UpdateQueue sets queue size and capacity.
func (m *Manager) UpdateQueue(size, capacity int) {
	if !m.enabled {
		return
	}
	m.queueSize.Set(float64(size))
	m.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError counts a rejected job.
func (m *Manager) RecordQueueEnqueueError() {
	if !m.enabled {
		return
	}
	m.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the number of running workers.
func (m *Manager) UpdateWorkerCount(count int) {
	if !m.enabled {
		return
	}
	m.workerCount.Set(float64(count))
}

// RecordWorkerJobLatency observes the time one job took.
func (m *Manager) RecordWorkerJobLatency(ms float64) {
	if !m.enabled {
		return
	}
	m.workerJobLatency.Observe(ms)
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint counts an HTTP error response.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !m.enabled {
		return
	}
	m.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystem sets process level gauges.
func (m *Manager) UpdateSystem(memoryBytes uint64, goroutines int, avgGCPauseMs float64) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(memoryBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
	if avgGCPauseMs > 0 {
		m.systemGCPauseTime.Observe(avgGCPauseMs)
	}
}

// Global returns the process-wide manager registered on GetRegistry.
func Global() *Manager {
	return globalManager
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
