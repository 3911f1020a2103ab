package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dd0wney/cluso-diffraction/pkg/semgraph"
)

// Document is the on-disk graph format
type Document struct {
	Nodes     []NodeDoc    `json:"nodes" validate:"required,min=1,dive"`
	Edges     []EdgeDoc    `json:"edges,omitempty" validate:"dive"`
	Links     []EdgeDoc    `json:"links,omitempty" validate:"dive"` // node-link alias of Edges
	Dualities []DualityDoc `json:"dualities,omitempty" validate:"dive"`
}

// NodeDoc describes one concept
type NodeDoc struct {
	ID         string         `json:"id" validate:"required,max=200"`
	Label      string         `json:"label,omitempty"`
	Kind       string         `json:"kind,omitempty"`
	Tipo       string         `json:"tipo,omitempty"`
	TipoGlobal string         `json:"tipo_global,omitempty"` // legacy; wins over Tipo
	Axes       []string       `json:"axes,omitempty" validate:"max=64,dive,axis"`
	Roles      map[string]any `json:"roles,omitempty" validate:"dive,keys,axis,endkeys"`
	Meta       bool           `json:"meta,omitempty"`
	Skeleton   bool           `json:"skeleton,omitempty"`
}

// EdgeDoc describes one directed edge
type EdgeDoc struct {
	Source   string   `json:"source" validate:"required"`
	Target   string   `json:"target" validate:"required,nefield=Source"`
	Kind     string   `json:"kind,omitempty"`
	Tipo     string   `json:"tipo,omitempty"`
	Weight   *float64 `json:"weight,omitempty" validate:"omitempty,gte=0"`
	Relation string   `json:"relation,omitempty"`
	Axis     string   `json:"axis,omitempty" validate:"omitempty,axis"`
}

// DualityDoc pairs the two poles of an axis
type DualityDoc struct {
	Axis  string   `json:"axis" validate:"required,axis"`
	Poles []string `json:"poles" validate:"len=2,dive,required"`
}

// axes merges the explicit axis list with the keys of the roles map
func (n NodeDoc) axes() []string {
	out := append([]string(nil), n.Axes...)
	if len(n.Roles) == 0 {
		return out
	}
	keys := make([]string, 0, len(n.Roles))
	for k := range n.Roles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return append(out, keys...)
}

func (n NodeDoc) kind() string {
	switch {
	case n.Kind != "":
		return n.Kind
	case n.TipoGlobal != "":
		return n.TipoGlobal
	}
	return n.Tipo
}

// edgeKind resolves the edge type. Untyped legacy links stay untyped so
// that structure mode can drop them.
func (e EdgeDoc) edgeKind(legacy bool) semgraph.EdgeKind {
	switch {
	case e.Kind != "":
		return semgraph.ParseEdgeKind(e.Kind)
	case e.Tipo != "":
		return semgraph.ParseEdgeKind(e.Tipo)
	case legacy:
		return semgraph.EdgeUntyped
	}
	return semgraph.EdgeStructural
}

func (e EdgeDoc) weight() float64 {
	if e.Weight == nil {
		return 1
	}
	return *e.Weight
}

func (e EdgeDoc) relation() string {
	if e.Relation != "" {
		return e.Relation
	}
	// legacy documents label dualities through the edge type
	if semgraph.IsDualityRelation(e.Tipo) {
		return strings.ToLower(e.Tipo)
	}
	return ""
}

// Graph converts the document into an immutable semantic graph.
func (d *Document) Graph(opts semgraph.GraphOptions) (*semgraph.Graph, error) {
	specs := make([]semgraph.NodeSpec, len(d.Nodes))
	for i, n := range d.Nodes {
		specs[i] = semgraph.NodeSpec{
			ID:       n.ID,
			Label:    n.Label,
			Kind:     n.kind(),
			Axes:     n.axes(),
			Meta:     n.Meta,
			Skeleton: n.Skeleton,
		}
	}

	links := append(append([]EdgeDoc(nil), d.Edges...), d.Links...)
	edges := make([]semgraph.Edge, len(links))
	for i, e := range links {
		edges[i] = semgraph.Edge{
			From:     e.Source,
			To:       e.Target,
			Kind:     e.edgeKind(i >= len(d.Edges)),
			Weight:   e.weight(),
			Relation: e.relation(),
			Axis:     e.Axis,
		}
	}

	dualities := make([]semgraph.Duality, len(d.Dualities))
	for i, du := range d.Dualities {
		if len(du.Poles) != 2 {
			return nil, fmt.Errorf("duality on %q: want 2 poles, got %d", du.Axis, len(du.Poles))
		}
		dualities[i] = semgraph.Duality{Axis: du.Axis, Poles: [2]string{du.Poles[0], du.Poles[1]}}
	}

	return semgraph.NewGraph(specs, edges, dualities, opts)
}
