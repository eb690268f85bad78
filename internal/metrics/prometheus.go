// Package metrics exposes Prometheus instrumentation for the rule
// service: API traffic, compile/export activity, and import outcomes.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all stockade metrics.
type Registry struct {
	// API metrics
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec

	// Engine metrics
	CompilesTotal prometheus.Counter
	ExportsTotal  prometheus.Counter

	// Import metrics: outcome is "accepted" or "skipped"
	ImportRecords *prometheus.CounterVec

	// Store metrics
	RulesStored prometheus.Gauge
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = &Registry{
			APIRequests: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stockade",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "API requests by method, path pattern, and status code.",
			}, []string{"method", "path", "code"}),

			APILatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "stockade",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "API request latency.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "path"}),

			CompilesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "stockade",
				Name:      "compiles_total",
				Help:      "Number of firewall scripts compiled.",
			}),

			ExportsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "stockade",
				Name:      "exports_total",
				Help:      "Number of rule set exports.",
			}),

			ImportRecords: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stockade",
				Name:      "import_records_total",
				Help:      "Imported rule records by outcome.",
			}, []string{"outcome"}),

			RulesStored: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "stockade",
				Name:      "rules_stored",
				Help:      "Rules currently in the store.",
			}),
		}
	})
	return registry
}
