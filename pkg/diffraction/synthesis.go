package diffraction

import (
	"fmt"

	"github.com/dd0wney/cluso-diffraction/pkg/algorithms"
	"github.com/dd0wney/cluso-diffraction/pkg/semgraph"
)

// SynthesisContext is what a DualityPredicate may inspect
type SynthesisContext struct {
	Graph *semgraph.Graph
	A, B  string
	EQ    string
	Scope semgraph.AxisSet
}

// DualityPredicate decides whether a synthesis candidate is merely a pole
// of a duality the audited poles already represent.
type DualityPredicate interface {
	Match(ctx SynthesisContext, id string) (reason string, matched bool)
}

// DualityPredicateFunc adapts a function to DualityPredicate
type DualityPredicateFunc func(ctx SynthesisContext, id string) (string, bool)

// Match implements DualityPredicate.
func (f DualityPredicateFunc) Match(ctx SynthesisContext, id string) (string, bool) {
	return f(ctx, id)
}

// ExplicitDualityPredicate matches poles of registered dualities whose axis
// lies in the synthesis scope, or of any duality when the scope is empty.
type ExplicitDualityPredicate struct{}

// Match implements DualityPredicate.
func (ExplicitDualityPredicate) Match(ctx SynthesisContext, id string) (string, bool) {
	for _, d := range ctx.Graph.Dualities() {
		if !d.Has(id) {
			continue
		}
		if ctx.Scope.IsEmpty() {
			return "duality pole on " + d.Axis, true
		}
		if bit, ok := ctx.Graph.Axes().Lookup(d.Axis); ok && ctx.Scope.Has(bit) {
			return "duality pole on " + d.Axis, true
		}
	}
	return "", false
}

// PoleDualityPredicate matches nodes that form a registered duality with A
// or B, on any axis.
type PoleDualityPredicate struct{}

// Match implements DualityPredicate.
func (PoleDualityPredicate) Match(ctx SynthesisContext, id string) (string, bool) {
	for _, d := range ctx.Graph.Dualities() {
		if !d.Has(id) {
			continue
		}
		for _, pole := range [2]string{ctx.A, ctx.B} {
			if pole != id && d.Has(pole) {
				return fmt.Sprintf("dual of pole %s on %s", pole, d.Axis), true
			}
		}
	}
	return "", false
}

// SkeletonAxisPredicate matches skeleton nodes sharing an axis with A or B.
type SkeletonAxisPredicate struct{}

// Match implements DualityPredicate.
func (SkeletonAxisPredicate) Match(ctx SynthesisContext, id string) (string, bool) {
	n, ok := ctx.Graph.Node(id)
	if !ok || !n.Skeleton {
		return "", false
	}
	shared := n.Axes.And(ctx.Graph.AxesOf(ctx.A).Or(ctx.Graph.AxesOf(ctx.B)))
	if shared.IsEmpty() {
		return "", false
	}
	return fmt.Sprintf("skeleton node on pole axes %v", ctx.Graph.Axes().Names(shared)), true
}

type anyPredicate []DualityPredicate

func (ps anyPredicate) Match(ctx SynthesisContext, id string) (string, bool) {
	for _, p := range ps {
		if reason, ok := p.Match(ctx, id); ok {
			return reason, true
		}
	}
	return "", false
}

// AnyPredicate matches when any of ps matches, reporting the first reason.
func AnyPredicate(ps ...DualityPredicate) DualityPredicate {
	return anyPredicate(ps)
}

// DefaultDualityPredicate combines explicit duality metadata, duals of the
// poles and the skeleton-axis heuristic.
func DefaultDualityPredicate() DualityPredicate {
	return AnyPredicate(ExplicitDualityPredicate{}, PoleDualityPredicate{}, SkeletonAxisPredicate{})
}

// SynthesisScope derives the synthesis scope: the axis family of eq when
// axisOnly is set, else axes(A) ∩ axes(B), else axes(eq), else no
// restriction.
func SynthesisScope(g *semgraph.Graph, a, b, eq, axisOnly string) Scope {
	if axisOnly != "" {
		return FamilyScope(g, a, b, eq, axisOnly)
	}
	if shared := SharedScope(g, a, b); !shared.Empty() {
		return shared
	}
	if eqAxes := g.AxesOf(eq); !eqAxes.IsEmpty() {
		return ExplicitScope(g, PolicyShared, eqAxes)
	}
	return UnrestrictedScope()
}

// SelectSynthesis walks the triple-field ranking and returns the first
// in-scope candidate the predicate does not reject. A, B and EQ are never
// selected. When nothing survives, Node is nil.
func SelectSynthesis(ctx SynthesisContext, ranked []algorithms.Candidate, scope Scope, pred DualityPredicate) SynthesisResult {
	if pred == nil {
		pred = DefaultDualityPredicate()
	}
	ctx.Scope = scope.set

	cands, scope := FilterCandidates(ctx.Graph, ranked, scope)
	result := SynthesisResult{Attempted: true, Scope: scope, Ranked: cands}

	for i := range cands {
		c := cands[i]
		if c.NodeID == ctx.A || c.NodeID == ctx.B || c.NodeID == ctx.EQ {
			continue
		}
		if !c.InScope {
			continue
		}
		if reason, rejected := pred.Match(ctx, c.NodeID); rejected {
			result.Rejected = append(result.Rejected, Rejection{NodeID: c.NodeID, Reason: reason})
			continue
		}
		result.Node = &c
		break
	}
	return result
}
