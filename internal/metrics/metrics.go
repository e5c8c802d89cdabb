package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "parkus"

var (
	once sync.Once

	claims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_claims_total",
			Help:      "Booking claim attempts by outcome.",
		},
		[]string{"outcome"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Accepted booking status transitions by target status.",
		},
		[]string{"status"},
	)

	windowsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_created_total",
			Help:      "Availability windows published.",
		},
	)

	publishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Booking events that could not be published after retries.",
		},
	)

	claimDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "booking_claim_duration_seconds",
			Help:      "Time spent inside the claim transaction.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers metrics with the default registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(claims, transitions, windowsCreated, publishFailures, claimDuration)
	})
}

// Claim outcomes.
const (
	OutcomeBooked   = "booked"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

func ObserveClaim(outcome string, seconds float64) {
	claims.WithLabelValues(outcome).Inc()
	claimDuration.Observe(seconds)
}

func IncTransition(status string) {
	transitions.WithLabelValues(status).Inc()
}

func IncWindowCreated() {
	windowsCreated.Inc()
}

func IncPublishFailure() {
	publishFailures.Inc()
}
