// Package metrics exports service metrics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts processed HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibesense_requests_total",
			Help: "Total number of requests processed",
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestDuration observes HTTP request latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vibesense_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint", "method"},
	)

	// SamplesReceived counts raw heart-rate samples accepted at the edge.
	SamplesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vibesense_samples_received_total",
			Help: "Total number of heart-rate samples received",
		},
	)

	// ReadingsPublished counts stable readings that passed the hysteresis gates.
	ReadingsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vibesense_readings_published_total",
			Help: "Total number of stable readings published",
		},
	)

	// SamplesSuppressed counts suppressed samples by gate.
	SamplesSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibesense_samples_suppressed_total",
			Help: "Total number of samples suppressed, by reason",
		},
		[]string{"reason"},
	)

	// IngestLatency observes the in-process stabilizer decision latency.
	IngestLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vibesense_ingest_latency_seconds",
			Help:    "Latency of the stabilizer decision path",
			Buckets: []float64{.00001, .0001, .001, .01, .1},
		},
	)

	// SmoothedBPM tracks the most recently published smoothed rate.
	SmoothedBPM = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vibesense_smoothed_bpm",
			Help: "Smoothed BPM of the most recent published reading",
		},
	)

	// ActiveUsers tracks registry size.
	ActiveUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vibesense_active_users",
			Help: "Number of user contexts currently in the registry",
		},
	)

	// CacheHits counts successful Redis writes/reads.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vibesense_cache_hits_total",
			Help: "Total number of successful cache operations",
		},
	)

	// CacheMisses counts failed Redis operations.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vibesense_cache_misses_total",
			Help: "Total number of failed cache operations",
		},
	)

	// ActiveGoroutines tracks the goroutine count.
	ActiveGoroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vibesense_active_goroutines",
			Help: "Number of active goroutines",
		},
	)
)
