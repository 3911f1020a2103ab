package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.AuditsTotal == nil {
		t.Error("AuditsTotal not initialized")
	}
	if r.PPRIterations == nil {
		t.Error("PPRIterations not initialized")
	}
	if r.GraphNodesTotal == nil {
		t.Error("GraphNodesTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordAudit(t *testing.T) {
	r := NewRegistry()

	r.RecordAudit("STABLE", "HIGH", 10*time.Millisecond)
	r.RecordAudit("STABLE", "HIGH", 20*time.Millisecond)
	r.RecordAudit("UNSTABLE", "LOW", 5*time.Millisecond)

	stable, err := r.AuditsTotal.GetMetricWithLabelValues("STABLE", "HIGH")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if got := counterValue(t, stable); got != 2 {
		t.Errorf("STABLE/HIGH counter = %v, want 2", got)
	}

	var metric dto.Metric
	if err := r.AuditDuration.Write(&metric); err != nil {
		t.Fatalf("Failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 3 {
		t.Errorf("Sample count = %v, want 3", metric.Histogram.GetSampleCount())
	}
}

func TestRecordPPR(t *testing.T) {
	r := NewRegistry()

	r.RecordPPR("pole_a", 42, true, time.Millisecond)
	r.RecordPPR("pole_b", 300, false, time.Millisecond)

	nonConverged, _ := r.PPRNonConvergedTotal.GetMetricWithLabelValues("pole_b")
	if got := counterValue(t, nonConverged); got != 1 {
		t.Errorf("non-converged pole_b = %v, want 1", got)
	}
	converged, _ := r.PPRNonConvergedTotal.GetMetricWithLabelValues("pole_a")
	if got := counterValue(t, converged); got != 0 {
		t.Errorf("non-converged pole_a = %v, want 0", got)
	}

	histogram, err := r.PPRIterations.GetMetricWithLabelValues("pole_b")
	if err != nil {
		t.Fatalf("Failed to get histogram: %v", err)
	}
	var metric dto.Metric
	if err := histogram.(prometheus.Histogram).Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleSum() != 300 {
		t.Errorf("iteration sum = %v, want 300", metric.Histogram.GetSampleSum())
	}
}

func TestRecordOutcomes(t *testing.T) {
	r := NewRegistry()

	r.RecordRefine(OutcomeRecovered)
	r.RecordSynthesis(OutcomeNone)
	r.RecordSynthesis(OutcomeNone)
	r.RecordDrift("no_axis_overlap", "meta_node", "no_axis_overlap")
	r.RecordAbort(2)

	refine, _ := r.RefineTotal.GetMetricWithLabelValues(OutcomeRecovered)
	if got := counterValue(t, refine); got != 1 {
		t.Errorf("refine recovered = %v, want 1", got)
	}
	synthesis, _ := r.SynthesisTotal.GetMetricWithLabelValues(OutcomeNone)
	if got := counterValue(t, synthesis); got != 2 {
		t.Errorf("synthesis none = %v, want 2", got)
	}
	drift, _ := r.DriftSuspectsTotal.GetMetricWithLabelValues("no_axis_overlap")
	if got := counterValue(t, drift); got != 2 {
		t.Errorf("drift no_axis_overlap = %v, want 2", got)
	}
	aborts, _ := r.AuditAbortsTotal.GetMetricWithLabelValues("2")
	if got := counterValue(t, aborts); got != 1 {
		t.Errorf("aborts code 2 = %v, want 1", got)
	}
}

func TestGaugeMetrics(t *testing.T) {
	r := NewRegistry()

	r.UpdateGraphMetrics("structure", 12, 30, 5, 10, 24)

	var metric dto.Metric
	if err := r.GraphNodesTotal.Write(&metric); err != nil {
		t.Fatalf("Failed to write gauge: %v", err)
	}
	if metric.Gauge.GetValue() != 12 {
		t.Errorf("GraphNodesTotal = %v, want 12", metric.Gauge.GetValue())
	}

	viewEdges, err := r.ViewEdgesTotal.GetMetricWithLabelValues("structure")
	if err != nil {
		t.Fatalf("Failed to get gauge: %v", err)
	}
	if err := viewEdges.Write(&metric); err != nil {
		t.Fatalf("Failed to write gauge: %v", err)
	}
	if metric.Gauge.GetValue() != 24 {
		t.Errorf("ViewEdgesTotal = %v, want 24", metric.Gauge.GetValue())
	}
}

func TestSystemMetrics(t *testing.T) {
	r := NewRegistry()
	r.UpdateSystemMetrics()

	var metric dto.Metric
	if err := r.GoRoutines.Write(&metric); err != nil {
		t.Fatalf("Failed to write gauge: %v", err)
	}
	if metric.Gauge.GetValue() < 1 {
		t.Errorf("GoRoutines = %v, want >= 1", metric.Gauge.GetValue())
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.RecordPPR("pole_a", 10, true, time.Microsecond)
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	runs, err := r.PPRRunsTotal.GetMetricWithLabelValues("pole_a")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if got := counterValue(t, runs); got != 1000 {
		t.Errorf("Counter = %v, want 1000", got)
	}
}

func TestGetPrometheusRegistry(t *testing.T) {
	r := NewRegistry()
	promRegistry := r.GetPrometheusRegistry()

	metrics, err := promRegistry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	expectedMetrics := []string{
		"difraccion_graph_nodes",
		"difraccion_audit_duration_seconds",
		"difraccion_uptime_seconds",
	}

	metricNames := make(map[string]bool)
	for _, m := range metrics {
		metricNames[m.GetName()] = true
		if !strings.HasPrefix(m.GetName(), "difraccion_") {
			t.Errorf("Metric %s does not have difraccion_ prefix", m.GetName())
		}
	}

	for _, expected := range expectedMetrics {
		if !metricNames[expected] {
			t.Errorf("Expected metric %s not found", expected)
		}
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRegistry()
	r.RecordAudit("STABLE", "HIGH", time.Millisecond)

	path := filepath.Join(t.TempDir(), "difraccion.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `difraccion_audits_total{confidence="HIGH",verdict="STABLE"} 1`) {
		t.Errorf("textfile missing audit counter:\n%s", data)
	}

	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")); err == nil {
		t.Error("expected error for unwritable path")
	}
}

func BenchmarkRecordPPR(b *testing.B) {
	r := NewRegistry()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.RecordPPR("pole_a", 50, true, time.Millisecond)
	}
}
