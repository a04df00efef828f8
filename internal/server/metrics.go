package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/skintex/internal/cache"
)

// Metrics holds the Prometheus instrumentation for the preview server.
// Each instance owns its registry so tests can start several servers.
type Metrics struct {
	registry *prometheus.Registry

	// Bake metrics
	BakesTotal   prometheus.Counter
	BakesFailed  prometheus.Counter
	BakeDuration prometheus.Histogram

	// Cache metrics, mirrored from cache snapshots
	CacheEntries     prometheus.Gauge
	CacheMemoryBytes prometheus.Gauge
	CacheHitRate     prometheus.Gauge
}

// NewMetrics creates a Metrics instance with the given namespace.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		BakesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bakes_total",
			Help:      "Total number of texture set bakes",
		}),
		BakesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bakes_failed_total",
			Help:      "Total number of failed texture set bakes",
		}),
		BakeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bake_duration_seconds",
			Help:      "Texture set bake latency in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),

		CacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Current number of cached texture sets",
		}),
		CacheMemoryBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_memory_bytes",
			Help:      "Approximate memory held by cached texture sets",
		}),
		CacheHitRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_hit_rate_percent",
			Help:      "Cache hit rate since startup",
		}),
	}
}

// RecordBake records one bake attempt.
func (m *Metrics) RecordBake(success bool, duration time.Duration) {
	m.BakesTotal.Inc()
	m.BakeDuration.Observe(duration.Seconds())
	if !success {
		m.BakesFailed.Inc()
	}
}

// SyncCache mirrors a cache snapshot into the gauges.
func (m *Metrics) SyncCache(s cache.Stats) {
	m.CacheEntries.Set(float64(s.Entries))
	m.CacheMemoryBytes.Set(float64(s.ApproxMemoryBytes))
	m.CacheHitRate.Set(s.HitRatePercent)
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
