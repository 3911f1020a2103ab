package semgraph

import (
	"math"
	"sort"
	"strings"
)

// Graph is an immutable semantic graph. Nodes are indexed densely in
// lexical id order so every traversal is deterministic.
type Graph struct {
	nodes     []*Node
	index     map[string]int
	folded    map[string]int
	edges     []Edge
	axes      *AxisRegistry
	dualities []Duality
}

// NewGraph validates and assembles a graph. Edges with a duality relation
// and a non-empty axis also register a Duality.
func NewGraph(specs []NodeSpec, edges []Edge, dualities []Duality, opts GraphOptions) (*Graph, error) {
	const op = "NewGraph"

	normalized := make([][]string, len(specs))
	var allAxes []string
	for i, s := range specs {
		axes := normalizeAxes(s.Axes, opts.ExcludeAutoDuality)
		normalized[i] = axes
		allAxes = append(allAxes, axes...)
	}
	for _, d := range dualities {
		allAxes = append(allAxes, d.Axis)
	}
	for _, e := range edges {
		if e.Axis != "" {
			allAxes = append(allAxes, e.Axis)
		}
	}
	registry := NewAxisRegistry(allAxes)

	g := &Graph{
		nodes:  make([]*Node, 0, len(specs)),
		index:  make(map[string]int, len(specs)),
		folded: make(map[string]int, len(specs)),
		axes:   registry,
	}

	order := make([]int, len(specs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return specs[order[i]].ID < specs[order[j]].ID })

	for _, i := range order {
		s := specs[i]
		if s.ID == "" {
			return nil, &GraphError{Op: op, Entity: "node", Cause: ErrNodeNotFound}
		}
		if _, dup := g.index[s.ID]; dup {
			return nil, &GraphError{Op: op, Entity: "node", ID: s.ID, Cause: ErrDuplicateNode}
		}
		kind := strings.ToLower(strings.TrimSpace(s.Kind))
		if kind == "" {
			kind = KindConcept
		}
		label := s.Label
		if label == "" {
			label = s.ID
		}
		n := &Node{
			ID:       s.ID,
			Label:    label,
			Kind:     kind,
			Axes:     registry.Set(normalized[i]...),
			Meta:     s.Meta,
			Skeleton: s.Skeleton,
		}
		g.index[s.ID] = len(g.nodes)
		key := strings.ToLower(s.ID)
		if _, ok := g.folded[key]; !ok {
			g.folded[key] = len(g.nodes)
		}
		g.nodes = append(g.nodes, n)
	}

	dualities = append([]Duality(nil), dualities...)
	g.edges = make([]Edge, 0, len(edges))
	for _, e := range edges {
		if _, ok := g.index[e.From]; !ok {
			return nil, &GraphError{Op: op, Entity: "edge", ID: e.From, Cause: ErrNodeNotFound}
		}
		if _, ok := g.index[e.To]; !ok {
			return nil, &GraphError{Op: op, Entity: "edge", ID: e.To, Cause: ErrNodeNotFound}
		}
		if e.From == e.To {
			return nil, &GraphError{Op: op, Entity: "edge", ID: e.From, Cause: ErrSelfLoop}
		}
		if e.Weight < 0 || math.IsNaN(e.Weight) {
			return nil, &GraphError{Op: op, Entity: "edge", ID: e.From + "->" + e.To, Cause: ErrNegativeWeight}
		}
		if e.Kind == "" {
			e.Kind = EdgeStructural
		}
		g.edges = append(g.edges, e)
		if IsDualityRelation(e.Relation) && e.Axis != "" {
			dualities = append(dualities, Duality{Axis: e.Axis, Poles: [2]string{e.From, e.To}})
		}
	}

	for _, d := range dualities {
		for _, p := range d.Poles {
			if _, ok := g.index[p]; !ok {
				return nil, &GraphError{Op: op, Entity: "duality", ID: p, Cause: ErrNodeNotFound}
			}
		}
		g.dualities = append(g.dualities, d)
	}

	return g, nil
}

func normalizeAxes(axes []string, excludeAuto bool) []string {
	out := make([]string, 0, len(axes))
	for _, a := range axes {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if excludeAuto && strings.HasPrefix(a, AutoDualityPrefix) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Node returns the node with the given id
func (g *Graph) Node(id string) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// NodeAt returns the node at dense index i
func (g *Graph) NodeAt(i int) *Node {
	return g.nodes[i]
}

// Index returns the dense index of a node id
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Nodes returns all nodes in index order. The slice must not be modified.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Edges returns all edges in document order. The slice must not be modified.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// Axes returns the axis registry
func (g *Graph) Axes() *AxisRegistry {
	return g.axes
}

// Dualities returns every registered duality
func (g *Graph) Dualities() []Duality {
	return g.dualities
}

// AxesOf returns the axis set of a node, or an empty set if it is unknown
func (g *Graph) AxesOf(id string) AxisSet {
	if n, ok := g.Node(id); ok {
		return n.Axes
	}
	return g.axes.Set()
}

// AxisNames returns the sorted axis names of a node
func (g *Graph) AxisNames(id string) []string {
	return g.axes.Names(g.AxesOf(id))
}

// Resolve finds a node by exact id, falling back to a case-insensitive match.
func (g *Graph) Resolve(name string) (string, bool) {
	if _, ok := g.index[name]; ok {
		return name, true
	}
	if i, ok := g.folded[strings.ToLower(name)]; ok {
		return g.nodes[i].ID, true
	}
	return name, false
}

// Require returns a GraphLoadError for the first id that is not in the graph.
func (g *Graph) Require(ids ...string) error {
	for _, id := range ids {
		if _, ok := g.index[id]; !ok {
			return &GraphLoadError{Op: "Require", NodeID: id, Cause: ErrNodeNotFound}
		}
	}
	return nil
}
