package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	applicationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "applications_total",
			Help:      "Public applications by outcome.",
		},
		[]string{"outcome"},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "uploads_total",
			Help:      "File uploads by result.",
		},
		[]string{"result"},
	)

	statusChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "status_changes_total",
			Help:      "Candidate status changes by target status.",
		},
		[]string{"status"},
	)
)

// Outcome labels for ObserveApplication.
const (
	OutcomeAccepted = "accepted"
	OutcomeInvalid  = "invalid"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

func ObserveApplication(outcome string) {
	applicationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveUpload counts one upload; result is "stored", "dropped", "infected" or "too_large".
func ObserveUpload(result string) {
	uploadsTotal.WithLabelValues(result).Inc()
}

func ObserveStatusChange(status string) {
	statusChangesTotal.WithLabelValues(status).Inc()
}
