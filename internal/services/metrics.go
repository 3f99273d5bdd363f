package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	assignOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "case_router",
			Name:      "assignments_total",
			Help:      "Assignment attempts by outcome.",
		},
		[]string{"outcome"},
	)
	reassignOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "case_router",
			Name:      "reassignments_total",
			Help:      "Reassignments triggered by rejections, by outcome.",
		},
		[]string{"outcome"},
	)
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "case_router",
			Name:      "assignment_transitions_total",
			Help:      "Lifecycle transitions by target status and result.",
		},
		[]string{"to", "result"},
	)
	storageConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "case_router",
			Name:      "storage_conflicts_total",
			Help:      "Write conflicts detected and retried.",
		},
	)
	notifierFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "case_router",
			Name:      "notifier_failures_total",
			Help:      "Assignment notifications that failed to deliver.",
		},
	)
)

func init() {
	prometheus.MustRegister(assignOutcomes, reassignOutcomes, transitionsTotal, storageConflicts, notifierFailures)
}

// outcomeLabel maps an Assign/assign result to a small, fixed label set.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "assigned"
	case errors.Is(err, ErrNoLawyerAvailable):
		return "no_lawyer"
	case errors.Is(err, ErrCaseAlreadyAssigned):
		return "already_assigned"
	case errors.Is(err, ErrStorageConflict):
		return "conflict"
	case errors.Is(err, ErrCaseNotFound), errors.Is(err, ErrCaseClosed), errors.Is(err, ErrInvalidPriority):
		return "rejected_input"
	default:
		return "error"
	}
}

func transitionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrStaleTransition):
		return "stale"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid"
	case errors.Is(err, ErrStorageConflict):
		return "conflict"
	default:
		return "error"
	}
}
