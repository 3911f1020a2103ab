package semgraph

import (
	"fmt"
	"sort"
	"strings"
)

// Mode selects which edges take part in propagation
type Mode string

const (
	// ModeStructure keeps structural edges only
	ModeStructure Mode = "structure"
	// ModeMixed keeps structural edges plus capped embedding edges
	ModeMixed Mode = "mixed"
	// ModeAll keeps every edge unmodified
	ModeAll Mode = "all"
)

// ParseMode accepts both the English names and the CLI's Spanish aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "structure", "estructura", "":
		return ModeStructure, nil
	case "mixed", "mixto":
		return ModeMixed, nil
	case "all", "todo":
		return ModeAll, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Defaults for view construction
const (
	DefaultEmbeddingWeightCap    = 0.2
	DefaultMaxEmbeddingOutDegree = 0 // unlimited
	DefaultMinWeight             = 0.05
	DefaultMaxWeight             = 5.0
)

// ViewOptions configures BuildView
type ViewOptions struct {
	Mode Mode

	// Exclude lists node ids removed together with their incident edges.
	Exclude []string
	// IncludeMeta keeps meta nodes, which are excluded by default.
	IncludeMeta bool
	// ExcludeSkeleton removes skeleton nodes as well.
	ExcludeSkeleton bool

	// Mixed-mode embedding caps. Zero disables the respective cap.
	EmbeddingWeightCap    float64
	MinEmbeddingWeight    float64
	MaxEmbeddingOutDegree int

	// UseWeights false propagates every edge with weight 1.
	UseWeights bool
	// Edge weights are clamped into [MinWeight, MaxWeight] when MaxWeight > 0.
	MinWeight float64
	MaxWeight float64
}

// DefaultViewOptions returns the structure-mode defaults
func DefaultViewOptions() ViewOptions {
	return ViewOptions{
		Mode:                  ModeStructure,
		EmbeddingWeightCap:    DefaultEmbeddingWeightCap,
		MaxEmbeddingOutDegree: DefaultMaxEmbeddingOutDegree,
		UseWeights:            true,
		MinWeight:             DefaultMinWeight,
		MaxWeight:             DefaultMaxWeight,
	}
}

// View is a read-only, mode-restricted adjacency over a Graph, stored in
// compressed sparse row form. Node indices match the Graph's.
type View struct {
	graph    *Graph
	mode     Mode
	included []bool
	offsets  []int
	targets  []int
	weights  []float64
	outSum   []float64
}

type viewEdge struct {
	to     int
	weight float64
}

// BuildView derives the propagation view. The base graph is not modified.
func BuildView(g *Graph, opts ViewOptions) (*View, error) {
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}

	n := g.Len()
	v := &View{
		graph:    g,
		mode:     mode,
		included: make([]bool, n),
		offsets:  make([]int, n+1),
		outSum:   make([]float64, n),
	}

	excluded := make(map[string]struct{}, len(opts.Exclude))
	for _, id := range opts.Exclude {
		excluded[id] = struct{}{}
	}
	for i, node := range g.nodes {
		_, drop := excluded[node.ID]
		if node.Meta && !opts.IncludeMeta {
			drop = true
		}
		if node.Skeleton && opts.ExcludeSkeleton {
			drop = true
		}
		v.included[i] = !drop
	}

	rows := make([][]viewEdge, n)
	embeddings := make([][]viewEdge, n)
	for _, e := range g.edges {
		from, to := g.index[e.From], g.index[e.To]
		if !v.included[from] || !v.included[to] {
			continue
		}
		w := e.Weight
		switch e.Kind {
		case EdgeUntyped:
			if mode == ModeStructure {
				continue
			}
		case EdgeEmbedding:
			switch mode {
			case ModeStructure:
				continue
			case ModeMixed:
				if w < opts.MinEmbeddingWeight {
					continue
				}
				embeddings[from] = append(embeddings[from], viewEdge{to: to, weight: w})
				continue
			}
		}
		rows[from] = append(rows[from], viewEdge{to: to, weight: w})
	}

	if mode == ModeMixed {
		for from, cands := range embeddings {
			sort.SliceStable(cands, func(i, j int) bool {
				if cands[i].weight != cands[j].weight {
					return cands[i].weight > cands[j].weight
				}
				return cands[i].to < cands[j].to
			})
			if opts.MaxEmbeddingOutDegree > 0 && len(cands) > opts.MaxEmbeddingOutDegree {
				cands = cands[:opts.MaxEmbeddingOutDegree]
			}
			for _, c := range cands {
				if opts.EmbeddingWeightCap > 0 && c.weight > opts.EmbeddingWeightCap {
					c.weight = opts.EmbeddingWeightCap
				}
				rows[from] = append(rows[from], c)
			}
		}
	}

	for i, row := range rows {
		sort.SliceStable(row, func(a, b int) bool { return row[a].to < row[b].to })
		v.offsets[i+1] = v.offsets[i] + len(row)
		for _, e := range row {
			w := e.weight
			if !opts.UseWeights {
				w = 1
			} else if opts.MaxWeight > 0 {
				w = max(opts.MinWeight, min(opts.MaxWeight, w))
			}
			v.targets = append(v.targets, e.to)
			v.weights = append(v.weights, w)
			v.outSum[i] += w
		}
	}

	return v, nil
}

// Graph returns the base graph
func (v *View) Graph() *Graph {
	return v.graph
}

// Mode returns the propagation mode of the view
func (v *View) Mode() Mode {
	return v.mode
}

// Len returns the number of node slots (equal to the base graph's node count)
func (v *View) Len() int {
	return len(v.included)
}

// EdgeCount returns the number of edges kept
func (v *View) EdgeCount() int {
	return len(v.targets)
}

// Included reports whether the node at index i survived exclusion
func (v *View) Included(i int) bool {
	return v.included[i]
}

// Contains reports whether a node id is part of the view
func (v *View) Contains(id string) bool {
	i, ok := v.graph.index[id]
	return ok && v.included[i]
}

// Out returns the targets and weights of node i's outgoing edges.
// The slices alias internal storage and must not be modified.
func (v *View) Out(i int) ([]int, []float64) {
	lo, hi := v.offsets[i], v.offsets[i+1]
	return v.targets[lo:hi], v.weights[lo:hi]
}

// OutWeight returns the total outgoing weight of node i
func (v *View) OutWeight(i int) float64 {
	return v.outSum[i]
}

// RequireNodes fails with a GraphLoadError for the first id missing from the view.
func (v *View) RequireNodes(ids ...string) error {
	for _, id := range ids {
		if _, ok := v.graph.index[id]; !ok {
			return &GraphLoadError{Op: "RequireNodes", NodeID: id, Cause: ErrNodeNotFound}
		}
		if !v.Contains(id) {
			return &GraphLoadError{Op: "RequireNodes", NodeID: id, Mode: v.mode, Cause: ErrNodeNotFound}
		}
	}
	return nil
}
