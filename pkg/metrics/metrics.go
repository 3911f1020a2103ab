package metrics

import (
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Refine and synthesis outcome labels
const (
	OutcomeRecovered   = "recovered"
	OutcomeKept        = "kept"
	OutcomeSkipped     = "skipped"
	OutcomeFound       = "found"
	OutcomeNone        = "none"
	OutcomeNotStable   = "not_stable"
	OutcomeNoAuditable = "no_auditable"
)

// RecordAudit records a completed audit
func (r *Registry) RecordAudit(verdict, confidence string, duration time.Duration) {
	r.AuditsTotal.WithLabelValues(verdict, confidence).Inc()
	r.AuditDuration.Observe(duration.Seconds())
}

// RecordAbort records an audit stopped by a fatal condition
func (r *Registry) RecordAbort(exitCode int) {
	r.AuditAbortsTotal.WithLabelValues(strconv.Itoa(exitCode)).Inc()
}

// RecordStage records the duration of one audit stage
func (r *Registry) RecordStage(stage string, duration time.Duration) {
	r.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordPPR records a personalized PageRank run for the given seed role
func (r *Registry) RecordPPR(role string, iterations int, converged bool, duration time.Duration) {
	r.PPRRunsTotal.WithLabelValues(role).Inc()
	r.PPRIterations.WithLabelValues(role).Observe(float64(iterations))
	r.PPRDuration.WithLabelValues(role).Observe(duration.Seconds())
	if !converged {
		r.PPRNonConvergedTotal.WithLabelValues(role).Inc()
	}
}

// RecordCandidates records the size of a scored candidate pool
func (r *Registry) RecordCandidates(n int) {
	r.CandidatesConsidered.Observe(float64(n))
}

// RecordRefine records a refine pass outcome
func (r *Registry) RecordRefine(outcome string) {
	r.RefineTotal.WithLabelValues(outcome).Inc()
}

// RecordDrift records drift suspects by reason
func (r *Registry) RecordDrift(reasons ...string) {
	for _, reason := range reasons {
		r.DriftSuspectsTotal.WithLabelValues(reason).Inc()
	}
}

// RecordSynthesis records a synthesis search outcome
func (r *Registry) RecordSynthesis(outcome string) {
	r.SynthesisTotal.WithLabelValues(outcome).Inc()
}

// UpdateGraphMetrics sets the size gauges of the loaded graph and the audited view
func (r *Registry) UpdateGraphMetrics(mode string, nodes, edges, axes, viewNodes, viewEdges int) {
	r.GraphNodesTotal.Set(float64(nodes))
	r.GraphEdgesTotal.Set(float64(edges))
	r.GraphAxesTotal.Set(float64(axes))
	r.ViewNodesTotal.WithLabelValues(mode).Set(float64(viewNodes))
	r.ViewEdgesTotal.WithLabelValues(mode).Set(float64(viewEdges))
}

// UpdateSystemMetrics samples runtime statistics
func (r *Registry) UpdateSystemMetrics() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.UptimeSeconds.Set(time.Since(r.started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
}

// WriteTextfile writes every metric in the Prometheus text format to path,
// for pickup by a node exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	r.UpdateSystemMetrics()
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
