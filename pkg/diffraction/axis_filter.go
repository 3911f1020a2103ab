package diffraction

import (
	"strings"

	"github.com/dd0wney/cluso-diffraction/pkg/algorithms"
	"github.com/dd0wney/cluso-diffraction/pkg/semgraph"
)

// SharedScope is axes(A) ∩ axes(B).
func SharedScope(g *semgraph.Graph, a, b string) Scope {
	set := g.AxesOf(a).And(g.AxesOf(b))
	return Scope{Policy: PolicyShared, Axes: g.Axes().Names(set), set: set}
}

// AxisOnlyScope restricts candidates to one named axis. An axis unknown to
// the graph yields a scope that admits nothing.
func AxisOnlyScope(g *semgraph.Graph, axis string) Scope {
	return Scope{Policy: PolicyAxisOnly, Axes: []string{axis}, set: g.Axes().Set(axis)}
}

// UnrestrictedScope disables axis filtering.
func UnrestrictedScope() Scope {
	return Scope{Policy: PolicyNone, Status: ScopeUnrestricted}
}

// ExplicitScope filters against a given axis set, keeping the policy that
// produced it.
func ExplicitScope(g *semgraph.Graph, policy AxisPolicy, set semgraph.AxisSet) Scope {
	return Scope{Policy: policy, Axes: g.Axes().Names(set), set: set}
}

// InitialScope derives the first-pass scope for the configured policy.
func InitialScope(g *semgraph.Graph, a, b string, policy AxisPolicy, axisOnly string) Scope {
	switch {
	case policy == PolicyNone:
		return UnrestrictedScope()
	case policy == PolicyAxisOnly || axisOnly != "":
		return AxisOnlyScope(g, axisOnly)
	default:
		return SharedScope(g, a, b)
	}
}

// FamilyScope derives a scope from an equilibrium node. Without axisOnly
// it is axes(eq). With axisOnly it is the axes of eq whose names mention
// both eq and one of the poles, falling back to axes(eq), then to
// {axisOnly}.
func FamilyScope(g *semgraph.Graph, a, b, eq string, axisOnly string) Scope {
	eqAxes := g.AxesOf(eq)
	if axisOnly == "" {
		return ExplicitScope(g, PolicyShared, eqAxes)
	}

	if family := axisFamily(g, a, b, eq); len(family) > 0 {
		set := g.Axes().Set(family...)
		return Scope{Policy: PolicyAxisOnly, Axes: g.Axes().Names(set), set: set}
	}
	if !eqAxes.IsEmpty() {
		return ExplicitScope(g, PolicyAxisOnly, eqAxes)
	}
	return AxisOnlyScope(g, axisOnly)
}

func axisFamily(g *semgraph.Graph, a, b, eq string) []string {
	aLow, bLow, eqLow := strings.ToLower(a), strings.ToLower(b), strings.ToLower(eq)

	var family []string
	for _, axis := range g.AxisNames(eq) {
		low := strings.ToLower(axis)
		if strings.Contains(low, eqLow) && (strings.Contains(low, aLow) || strings.Contains(low, bLow)) {
			family = append(family, axis)
		}
	}
	return family
}

// FilterCandidates annotates ranked candidates with their relation to the
// scope and resolves the scope status. The ranking order is preserved.
func FilterCandidates(g *semgraph.Graph, ranked []algorithms.Candidate, scope Scope) ([]Candidate, Scope) {
	out := make([]Candidate, len(ranked))
	inScope := 0
	for i, rc := range ranked {
		c := annotate(g, rc)
		switch {
		case scope.Policy == PolicyNone:
			c.InScope = true
		case !scope.set.IsEmpty():
			shared := g.AxesOf(rc.NodeID).And(scope.set)
			if !shared.IsEmpty() {
				c.InScope = true
				c.SharedAxes = g.Axes().Names(shared)
			}
		}
		if c.InScope {
			inScope++
		}
		out[i] = c
	}

	switch {
	case scope.Policy == PolicyNone:
		scope.Status = ScopeUnrestricted
	case scope.set.IsEmpty() && len(scope.Axes) == 0:
		scope.Status = ScopeUnconstrained
	case inScope == 0:
		scope.Status = ScopeExhausted
	default:
		scope.Status = ScopeScoped
	}
	return out, scope
}

// Admitted returns the candidates that take part in the stability test.
// An unconstrained scope admits everything; an exhausted one admits nothing.
func Admitted(cands []Candidate, status ScopeStatus) []Candidate {
	switch status {
	case ScopeUnrestricted, ScopeUnconstrained:
		return cands
	case ScopeExhausted:
		return nil
	}

	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.InScope {
			out = append(out, c)
		}
	}
	return out
}

func annotate(g *semgraph.Graph, rc algorithms.Candidate) Candidate {
	c := Candidate{Candidate: rc}
	if n, ok := g.Node(rc.NodeID); ok {
		c.Kind = n.Kind
		c.Meta = n.Meta
	}
	return c
}
