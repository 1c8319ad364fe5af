package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gobwas/variant"
)

var (
	Assignments = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "variant_assignments_total", Help: "Identifiers assigned to variants"},
		[]string{"algorithm", "distribution"},
	)
	Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "variant_requests_total", Help: "API requests by route and status code"},
		[]string{"route", "code"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "variant_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.ExponentialBuckets(50e-6, 4, 8),
		},
		[]string{"route"},
	)
)

// Register registers API metrics and cache gauges within r.
func Register(r prometheus.Registerer, cache *variant.Cache) {
	r.MustRegister(Assignments, Requests, RequestDuration)
	if cache == nil {
		return
	}
	r.MustRegister(
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: "variant_cache_hits_total", Help: "Assigner cache hits"},
			func() float64 { return float64(cache.Stats().Hits) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: "variant_cache_misses_total", Help: "Assigner cache misses"},
			func() float64 { return float64(cache.Stats().Misses) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: "variant_cache_assigners", Help: "Assigners held by the cache"},
			func() float64 { return float64(cache.Stats().Len) },
		),
	)
}
