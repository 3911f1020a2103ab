package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "difraccion_graph_nodes",
			Help: "Number of nodes in the loaded graph",
		},
	)

	r.GraphEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "difraccion_graph_edges",
			Help: "Number of edges in the loaded graph",
		},
	)

	r.GraphAxesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "difraccion_graph_axes",
			Help: "Number of distinct axes in the loaded graph",
		},
	)

	r.ViewNodesTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "difraccion_view_nodes",
			Help: "Number of nodes included in the audited view, by mode",
		},
		[]string{"mode"},
	)

	r.ViewEdgesTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "difraccion_view_edges",
			Help: "Number of edges in the audited view, by mode",
		},
		[]string{"mode"},
	)
}
