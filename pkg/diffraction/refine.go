package diffraction

import (
	"github.com/dd0wney/cluso-diffraction/pkg/algorithms"
	"github.com/dd0wney/cluso-diffraction/pkg/semgraph"
)

// Refine outcomes
const (
	RefineOutcomeRecovered = "recovered"
	RefineOutcomeUnstable  = "not_stable"
	RefineOutcomeExhausted = "exhausted"
	RefineOutcomeNoSource  = "no_provisional_equilibrium"
)

// refineMachine enforces Initial → Refining → Final with at most one
// refining transition per audit.
type refineMachine struct {
	state RefineState
}

func newRefineMachine() *refineMachine {
	return &refineMachine{state: RefineInitial}
}

// Begin moves to Refining. It reports false when a refine already ran.
func (m *refineMachine) Begin() bool {
	if m.state != RefineInitial {
		return false
	}
	m.state = RefineRefining
	return true
}

// Finish moves to Final
func (m *refineMachine) Finish() {
	m.state = RefineFinal
}

// State returns the current state
func (m *refineMachine) State() RefineState {
	return m.state
}

// shouldRefine reports whether a first pass warrants a refine attempt.
func shouldRefine(p Pass) bool {
	switch {
	case p.Stability.Verdict == VerdictUnstable:
		return true
	case p.Scope.Status == ScopeUnconstrained, p.Scope.Status == ScopeExhausted:
		return true
	}
	return false
}

// provisional picks the equilibrium the refine scope is derived from: the
// top admitted candidate, or the top of the unfiltered ranking when the
// first pass admitted nothing.
func provisional(p Pass) *Candidate {
	if p.Stability.Top != nil {
		return p.Stability.Top
	}
	if len(p.Candidates) > 0 {
		c := p.Candidates[0]
		return &c
	}
	return nil
}

// runRefine performs the second pass over the same ranking, scoped to the
// axes of the provisional equilibrium.
func runRefine(g *semgraph.Graph, ranked []algorithms.Candidate, first Pass, a, b, axisOnly string, opts StabilityOptions) (Pass, RefineRecord) {
	rec := RefineRecord{Attempted: true, Trigger: first.Stability.Verdict}
	if first.Scope.Status == ScopeUnconstrained || first.Scope.Status == ScopeExhausted {
		rec.Trigger = VerdictUnconstrained
	}

	eq0 := provisional(first)
	if eq0 == nil {
		rec.Outcome = RefineOutcomeNoSource
		return Pass{Number: 2}, rec
	}
	rec.Provisional = eq0.NodeID

	scope := FamilyScope(g, a, b, eq0.NodeID, axisOnly)
	cands, scope := FilterCandidates(g, ranked, scope)
	rec.Scope = scope.Axes

	second := Pass{Number: 2, Scope: scope, Candidates: cands}
	if scope.Status != ScopeScoped {
		second.Stability = AnalyzeStability(nil, opts)
		rec.Outcome = RefineOutcomeExhausted
		return second, rec
	}

	second.Stability = AnalyzeStability(Admitted(cands, scope.Status), opts)
	if second.Stability.Verdict == VerdictStable {
		rec.Recovered = true
		rec.Outcome = RefineOutcomeRecovered
	} else {
		rec.Outcome = RefineOutcomeUnstable
	}
	return second, rec
}
