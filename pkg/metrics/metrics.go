package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StoreMetrics records row store round-trips per table and operation.
type StoreMetrics struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewStoreMetrics registers the row store metrics on the provided registerer.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "row_store_call_duration_seconds",
		Help:    "Duration of backing row store calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"table", "op"})
	errors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "row_store_call_errors_total",
		Help: "Failed backing row store calls.",
	}, []string{"table", "op"})
	reg.MustRegister(duration, errors)
	return &StoreMetrics{duration: duration, errors: errors}
}

// ObserveCall records one store round-trip.
func (m *StoreMetrics) ObserveCall(table, op string, elapsed time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(table, op).Observe(elapsed.Seconds())
	if err != nil {
		m.errors.WithLabelValues(table, op).Inc()
	}
}

// CacheMetrics counts hits and misses per cache namespace.
type CacheMetrics struct {
	hits   *prometheus.CounterVec
	misses *prometheus.CounterVec
}

// NewCacheMetrics registers the cache metrics on the provided registerer.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	if reg == nil {
		return &CacheMetrics{}
	}
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Cache lookups served from redis.",
	}, []string{"namespace"})
	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Cache lookups that fell through to the row store.",
	}, []string{"namespace"})
	reg.MustRegister(hits, misses)
	return &CacheMetrics{hits: hits, misses: misses}
}

// Hit records a lookup served from cache.
func (m *CacheMetrics) Hit(namespace string) {
	if m == nil || m.hits == nil {
		return
	}
	m.hits.WithLabelValues(namespace).Inc()
}

// Miss records a lookup that fell through.
func (m *CacheMetrics) Miss(namespace string) {
	if m == nil || m.misses == nil {
		return
	}
	m.misses.WithLabelValues(namespace).Inc()
}

// Handler serves the registry at /metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
