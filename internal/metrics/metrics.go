package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type engineMetrics struct {
	cacheHitsTotal      prometheus.Counter
	cacheMissesTotal    prometheus.Counter
	cacheEvictionsTotal prometheus.Counter
	cacheReloadsTotal   prometheus.Counter
	cacheEntries        prometheus.Gauge

	fileOpTotal      *prometheus.CounterVec
	fileOpDuration   *prometheus.HistogramVec
	fileOpRetryTotal *prometheus.CounterVec

	loadDuration        prometheus.Histogram
	healthCheckDuration prometheus.Histogram
	healthCheckTotal    *prometheus.CounterVec

	indexEntries prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *engineMetrics
)

func getMetrics() *engineMetrics {
	metricsOnce.Do(func() {
		m := &engineMetrics{
			cacheHitsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "membank_cache_hits_total",
					Help: "Total cache hits.",
				},
			),
			cacheMissesTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "membank_cache_misses_total",
					Help: "Total cache misses.",
				},
			),
			cacheEvictionsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "membank_cache_evictions_total",
					Help: "Total cache entries evicted by LRU pressure or TTL sweep.",
				},
			),
			cacheReloadsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "membank_cache_reloads_total",
					Help: "Total stale cache entries reloaded from disk.",
				},
			),
			cacheEntries: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "membank_cache_entries",
					Help: "Current number of cache entries.",
				},
			),
			fileOpTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "membank_file_op_total",
					Help: "Total file operations by op and status.",
				},
				[]string{"op", "status"},
			),
			fileOpDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "membank_file_op_duration_seconds",
					Help:    "File operation duration in seconds by op.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"op"},
			),
			fileOpRetryTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "membank_file_op_retries_total",
					Help: "Total retries of transient file operation failures by op.",
				},
				[]string{"op"},
			),
			loadDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "membank_load_duration_seconds",
					Help:    "Full store load duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			healthCheckDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "membank_health_check_duration_seconds",
					Help:    "Health check duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			healthCheckTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "membank_health_checks_total",
					Help: "Total health checks by result.",
				},
				[]string{"result"},
			),
			indexEntries: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "membank_index_entries",
					Help: "Current number of metadata index entries.",
				},
			),
		}

		prometheus.MustRegister(
			m.cacheHitsTotal,
			m.cacheMissesTotal,
			m.cacheEvictionsTotal,
			m.cacheReloadsTotal,
			m.cacheEntries,
			m.fileOpTotal,
			m.fileOpDuration,
			m.fileOpRetryTotal,
			m.loadDuration,
			m.healthCheckDuration,
			m.healthCheckTotal,
			m.indexEntries,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// Handler exposes the metrics endpoint for the host to mount.
func Handler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordCacheHit() {
	getMetrics().cacheHitsTotal.Inc()
}

func RecordCacheMiss() {
	getMetrics().cacheMissesTotal.Inc()
}

func RecordCacheEviction() {
	getMetrics().cacheEvictionsTotal.Inc()
}

func RecordCacheReload() {
	getMetrics().cacheReloadsTotal.Inc()
}

func SetCacheEntries(count int) {
	getMetrics().cacheEntries.Set(float64(count))
}

func RecordFileOp(op string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.fileOpTotal.WithLabelValues(op, status).Inc()
	m.fileOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func RecordFileOpRetry(op string) {
	getMetrics().fileOpRetryTotal.WithLabelValues(op).Inc()
}

func RecordLoad(duration time.Duration) {
	getMetrics().loadDuration.Observe(duration.Seconds())
}

func RecordHealthCheck(duration time.Duration, healthy bool) {
	m := getMetrics()
	result := "unhealthy"
	if healthy {
		result = "healthy"
	}
	m.healthCheckDuration.Observe(duration.Seconds())
	m.healthCheckTotal.WithLabelValues(result).Inc()
}

func SetIndexEntries(count int) {
	getMetrics().indexEntries.Set(float64(count))
}
