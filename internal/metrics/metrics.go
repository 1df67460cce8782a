package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auto alpha run outcomes.
const (
	OutcomeTooEarly  = "too_early"
	OutcomeCompleted = "completed"
	OutcomeBusy      = "busy"
	OutcomeFailed    = "failed"
)

var (
	// AutoAlphaRuns counts reconciler invocations by outcome.
	AutoAlphaRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sipkl",
		Name:      "auto_alpha_runs_total",
		Help:      "Auto alpha reconciler runs by outcome.",
	}, []string{"outcome"})

	// AutoAlphaMarked counts students marked Alpha by the reconciler.
	AutoAlphaMarked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sipkl",
		Name:      "auto_alpha_marked_total",
		Help:      "Students marked Alpha by the reconciler.",
	})

	// CheckIns counts student self check-ins by status.
	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sipkl",
		Name:      "checkins_total",
		Help:      "Student check-ins by status.",
	}, []string{"status"})
)
