package diffraction

import (
	"time"

	"github.com/dd0wney/cluso-diffraction/pkg/algorithms"
	"github.com/dd0wney/cluso-diffraction/pkg/semgraph"
)

// Verdict is the stability classification of an audit
type Verdict string

const (
	VerdictStable        Verdict = "STABLE"
	VerdictUnstable      Verdict = "UNSTABLE"
	VerdictIndeterminate Verdict = "INDETERMINATE"
	VerdictUnconstrained Verdict = "UNCONSTRAINED"
)

// Confidence qualifies a verdict. Any non-fatal condition yields LOW.
type Confidence string

const (
	ConfidenceHigh Confidence = "HIGH"
	ConfidenceLow  Confidence = "LOW"
)

// ScopeStatus describes how the axis scope constrained the candidates
type ScopeStatus string

const (
	// ScopeScoped means a non-empty scope admitted at least one candidate
	ScopeScoped ScopeStatus = "SCOPED"
	// ScopeUnrestricted means axis filtering was disabled
	ScopeUnrestricted ScopeStatus = "UNRESTRICTED"
	// ScopeUnconstrained means the poles share no axis
	ScopeUnconstrained ScopeStatus = "UNCONSTRAINED"
	// ScopeExhausted means a non-empty scope admitted no candidate
	ScopeExhausted ScopeStatus = "EXHAUSTED"
)

// AxisPolicy selects how the candidate scope is derived
type AxisPolicy string

const (
	PolicyShared   AxisPolicy = "shared"
	PolicyAxisOnly AxisPolicy = "axis_only"
	PolicyNone     AxisPolicy = "none"
)

// Candidate is a scored node annotated with its axis relation to the scope
type Candidate struct {
	algorithms.Candidate
	Kind       string
	Meta       bool
	InScope    bool
	SharedAxes []string
}

// Scope is the set of axes candidates are filtered against
type Scope struct {
	Policy AxisPolicy
	Axes   []string
	Status ScopeStatus

	set semgraph.AxisSet
}

// Set returns the scope as a bitset
func (s Scope) Set() semgraph.AxisSet {
	return s.set
}

// Empty reports whether the scope has no resolvable axis
func (s Scope) Empty() bool {
	return s.set.IsEmpty()
}

// StabilityReport holds the outcome of the dominance and balance tests
type StabilityReport struct {
	Verdict  Verdict
	Top      *Candidate
	RunnerUp *Candidate
	Ratio    float64 // top/runner-up, +Inf when the runner-up score is not positive
	Balance  float64 // |pa−pb|/(pa+pb) of the top candidate
	Admitted int
	Reasons  []string
}

// Pass is one filtering and stability round
type Pass struct {
	Number     int
	Scope      Scope
	Candidates []Candidate
	Stability  StabilityReport
}

// RefineState is the state of the refine state machine
type RefineState string

const (
	RefineInitial  RefineState = "initial"
	RefineRefining RefineState = "refining"
	RefineFinal    RefineState = "final"
)

// RefineRecord describes the refine pass of an audit
type RefineRecord struct {
	Attempted   bool
	Trigger     Verdict
	Provisional string // top candidate of the failed pass
	Scope       []string
	Recovered   bool // pass 2 reached a stable verdict
	Adopted     bool // pass 2 replaced the first pass in the result
	Outcome     string
}

// DriftReason explains why a node is a drift suspect
type DriftReason string

const (
	DriftNoAxisOverlap DriftReason = "no_axis_overlap"
	DriftMetaNode      DriftReason = "meta_node"
)

// DriftSuspect is a node attracting score mass without axis justification
type DriftSuspect struct {
	NodeID string
	Kind   string
	Score  float64
	Axes   []string
	Reason DriftReason
}

// Rejection records a synthesis candidate discarded by the duality predicate
type Rejection struct {
	NodeID string
	Reason string
}

// SynthesisResult is the outcome of the synthesis search
type SynthesisResult struct {
	Attempted bool
	Skipped   string // why the search did not run
	Node      *Candidate
	Scope     Scope
	Rejected  []Rejection
	Ranked    []Candidate
}

// AuditResult is the complete outcome of one audit
type AuditResult struct {
	RunID       string
	PoleA       string
	PoleB       string
	Mode        semgraph.Mode
	Equilibrium *Candidate
	Verdict     Verdict
	Confidence  Confidence
	ScopeStatus ScopeStatus
	ScopeAxes   []string
	Stability   StabilityReport
	Passes      []Pass
	Refine      RefineRecord
	Drift       []DriftSuspect
	Synthesis   SynthesisResult
	Warnings    []string
	Converged   bool
	StartedAt   time.Time
	FinishedAt  time.Time
}
