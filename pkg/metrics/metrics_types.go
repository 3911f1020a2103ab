package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the audit engine
type Registry struct {
	// Audit Metrics
	AuditsTotal          *prometheus.CounterVec
	AuditDuration        prometheus.Histogram
	StageDuration        *prometheus.HistogramVec
	AuditAbortsTotal     *prometheus.CounterVec
	RefineTotal          *prometheus.CounterVec
	DriftSuspectsTotal   *prometheus.CounterVec
	SynthesisTotal       *prometheus.CounterVec
	CandidatesConsidered prometheus.Histogram

	// PPR Metrics
	PPRRunsTotal         *prometheus.CounterVec
	PPRIterations        *prometheus.HistogramVec
	PPRNonConvergedTotal *prometheus.CounterVec
	PPRDuration          *prometheus.HistogramVec

	// Graph Metrics
	GraphNodesTotal prometheus.Gauge
	GraphEdgesTotal prometheus.Gauge
	GraphAxesTotal  prometheus.Gauge
	ViewNodesTotal  *prometheus.GaugeVec
	ViewEdgesTotal  *prometheus.GaugeVec

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge

	registry *prometheus.Registry
	started  time.Time
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		started:  time.Now(),
	}

	r.initAuditMetrics()
	r.initPPRMetrics()
	r.initGraphMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
