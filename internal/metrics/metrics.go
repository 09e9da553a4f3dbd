// Package metrics defines the Prometheus collectors for the orchestration
// service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the service-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	poolTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tokengate",
			Subsystem: "pool",
			Name:      "entries_total",
			Help:      "Current number of pooled custody handles.",
		},
	)

	poolActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tokengate",
			Subsystem: "pool",
			Name:      "entries_active",
			Help:      "Pooled custody handles currently in use.",
		},
	)

	poolEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tokengate",
			Subsystem: "pool",
			Name:      "evictions_total",
			Help:      "Pool entries removed, by reason.",
		},
		[]string{"reason"},
	)

	signingOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tokengate",
			Subsystem: "signing",
			Name:      "operations_total",
			Help:      "Custody signing operations by terminal status.",
		},
		[]string{"status"},
	)

	signingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tokengate",
			Subsystem: "signing",
			Name:      "duration_seconds",
			Help:      "Wall time from submission to terminal state.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~34m
		},
	)

	powAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tokengate",
			Subsystem: "pow",
			Name:      "attempts_total",
			Help:      "Total nonces hashed by the proof-of-work solver.",
		},
	)

	powSolved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tokengate",
			Subsystem: "pow",
			Name:      "solutions_total",
			Help:      "Challenges solved.",
		},
	)

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tokengate",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Outbound requests to external collaborators.",
		},
		[]string{"service", "outcome"},
	)
)

func init() {
	Registry.MustRegister(
		poolTotal,
		poolActive,
		poolEvictions,
		signingOps,
		signingDuration,
		powAttempts,
		powSolved,
		apiRequests,
	)
}

// SetPoolSize records the current pool totals.
func SetPoolSize(total, active int) {
	poolTotal.Set(float64(total))
	poolActive.Set(float64(active))
}

// RecordEviction counts a pool eviction ("capacity", "idle" or "shutdown").
func RecordEviction(reason string) {
	poolEvictions.WithLabelValues(reason).Inc()
}

// RecordSigning counts a terminal signing outcome and its duration.
func RecordSigning(status string, elapsed time.Duration) {
	signingOps.WithLabelValues(status).Inc()
	signingDuration.Observe(elapsed.Seconds())
}

// AddPowAttempts adds to the hashed-nonce counter.
func AddPowAttempts(n uint64) {
	powAttempts.Add(float64(n))
}

// RecordPowSolution counts a solved challenge.
func RecordPowSolution() {
	powSolved.Inc()
}

// RecordAPIRequest counts an outbound request by collaborator and outcome.
func RecordAPIRequest(service, outcome string) {
	apiRequests.WithLabelValues(service, outcome).Inc()
}

// Handler returns the HTTP handler exposing the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
