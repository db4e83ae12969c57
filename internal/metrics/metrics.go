// Package metrics holds the Prometheus collectors exported by the engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recs"

// Registry holds every collector served on /metrics.
var Registry = prometheus.NewRegistry()

var auto = promauto.With(Registry)

var (
	// Lookups counts recommendation lookups by strategy and where they were served from
	// (redis, store, computed).
	Lookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lookups_total",
		Help:      "Recommendation lookups by strategy and source of the result.",
	}, []string{"strategy", "source"})

	ComputeDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "compute_duration_seconds",
		Help:      "Time spent computing a fresh ranked list, explanations included.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"strategy"})

	Explanations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "explanations_total",
		Help:      "Explanations produced, by outcome (generated, fallback).",
	}, []string{"outcome"})

	StoreWriteErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_write_errors_total",
		Help:      "Recommendation upserts that failed.",
	})

	CircuitBreakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
	}, []string{"name"})

	CircuitBreakerTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_transitions_total",
		Help:      "Circuit breaker state transitions.",
	}, []string{"name", "from", "to"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
