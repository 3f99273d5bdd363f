package jobs

import "github.com/prometheus/client_golang/prometheus"

var (
	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "case_router",
			Name:      "job_runs_total",
			Help:      "Background job runs by job and result.",
		},
		[]string{"job", "result"},
	)
	sweepCases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "case_router",
			Name:      "sweep_cases_total",
			Help:      "Cases visited by the unassigned-case sweep, by outcome.",
		},
		[]string{"outcome"},
	)
	pendingOverSLA = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "case_router",
			Name:      "pending_assignments_over_sla",
			Help:      "Pending assignments older than the configured SLA at the last report.",
		},
	)
)

func init() {
	prometheus.MustRegister(jobRuns, sweepCases, pendingOverSLA)
}
