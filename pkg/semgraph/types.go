package semgraph

import "strings"

// EdgeKind classifies how an edge was produced
type EdgeKind string

const (
	// EdgeStructural is a curated relation between concepts
	EdgeStructural EdgeKind = "structural"
	// EdgeEmbedding is a similarity link derived from vector proximity
	EdgeEmbedding EdgeKind = "embedding"
	// EdgeUntyped is a legacy link with no type; structure mode drops it
	EdgeUntyped EdgeKind = "untyped"
)

// Node kinds with special meaning for the audit. Any other kind is an
// ordinary concept.
const (
	KindConcept     = "concepto"
	KindEquilibrium = "equilibrio"
	KindSynthesis   = "sintesis"
	KindEmergent    = "emergente"
)

// RelationDuality marks an edge joining the two poles of a duality axis.
const RelationDuality = "duality"

// AutoDualityPrefix prefixes machine-generated duality axes.
const AutoDualityPrefix = "eje:dualidad_auto:"

// ParseEdgeKind maps a document edge type onto an EdgeKind. Anything that is
// not an embedding is treated as structural.
func ParseEdgeKind(s string) EdgeKind {
	if strings.EqualFold(strings.TrimSpace(s), string(EdgeEmbedding)) {
		return EdgeEmbedding
	}
	return EdgeStructural
}

// IsDualityRelation reports whether a relation label denotes a duality.
func IsDualityRelation(rel string) bool {
	switch strings.ToLower(strings.TrimSpace(rel)) {
	case RelationDuality, "dualidad":
		return true
	}
	return false
}

// Node is a concept in the semantic graph
type Node struct {
	ID       string
	Label    string
	Kind     string
	Axes     AxisSet
	Meta     bool // internal bookkeeping concept
	Skeleton bool // canonical structural primitive (spatial/temporal directions)
}

// NodeSpec describes a node before the axis registry exists
type NodeSpec struct {
	ID       string
	Label    string
	Kind     string
	Axes     []string
	Meta     bool
	Skeleton bool
}

// Edge is a directed, weighted link between two nodes
type Edge struct {
	From     string
	To       string
	Kind     EdgeKind
	Weight   float64
	Relation string
	Axis     string
}

// Duality records the two opposing poles of an axis
type Duality struct {
	Axis  string
	Poles [2]string
}

// Has reports whether id is one of the duality's poles
func (d Duality) Has(id string) bool {
	return d.Poles[0] == id || d.Poles[1] == id
}

// GraphOptions controls how documents are turned into a Graph
type GraphOptions struct {
	// ExcludeAutoDuality drops axes generated by automatic duality detection.
	ExcludeAutoDuality bool
}
