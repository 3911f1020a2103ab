package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAuditMetrics() {
	r.AuditsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "difraccion_audits_total",
			Help: "Total number of completed audits by verdict and confidence",
		},
		[]string{"verdict", "confidence"},
	)

	r.AuditDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "difraccion_audit_duration_seconds",
			Help:    "End-to-end audit duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)

	r.StageDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "difraccion_stage_duration_seconds",
			Help:    "Duration of each audit stage in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		},
		[]string{"stage"},
	)

	r.AuditAbortsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "difraccion_audit_aborts_total",
			Help: "Total number of audits aborted by a fatal condition, by exit code",
		},
		[]string{"code"},
	)

	r.RefineTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "difraccion_refine_total",
			Help: "Total number of refine passes by outcome",
		},
		[]string{"outcome"},
	)

	r.DriftSuspectsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "difraccion_drift_suspects_total",
			Help: "Total number of drift suspects reported, by reason",
		},
		[]string{"reason"},
	)

	r.SynthesisTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "difraccion_synthesis_total",
			Help: "Total number of synthesis searches by outcome",
		},
		[]string{"outcome"},
	)

	r.CandidatesConsidered = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "difraccion_candidates_considered",
			Help:    "Number of candidates scored per pass",
			Buckets: []float64{1, 5, 10, 20, 40, 80, 160},
		},
	)
}

func (r *Registry) initPPRMetrics() {
	r.PPRRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "difraccion_ppr_runs_total",
			Help: "Total number of personalized PageRank runs by seed role",
		},
		[]string{"role"},
	)

	r.PPRIterations = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "difraccion_ppr_iterations",
			Help:    "Power iterations per PPR run",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 300},
		},
		[]string{"role"},
	)

	r.PPRNonConvergedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "difraccion_ppr_nonconverged_total",
			Help: "Total number of PPR runs that hit the iteration cap",
		},
		[]string{"role"},
	)

	r.PPRDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "difraccion_ppr_duration_seconds",
			Help:    "PPR run duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		},
		[]string{"role"},
	)
}
