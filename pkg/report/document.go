package report

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-diffraction/pkg/diffraction"
)

// Float is a float64 that encodes infinities as strings
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(v):
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"Infinity"`:
		*f = Float(math.Inf(1))
		return nil
	case `"-Infinity"`:
		*f = Float(math.Inf(-1))
		return nil
	case "null":
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Document is the serialized form of an audit result
type Document struct {
	RunID       string         `json:"run_id"`
	PoleA       string         `json:"pole_a"`
	PoleB       string         `json:"pole_b"`
	Mode        string         `json:"mode"`
	Verdict     string         `json:"verdict"`
	Confidence  string         `json:"confidence"`
	Equilibrium *CandidateDoc  `json:"equilibrium"`
	Scope       ScopeDoc       `json:"scope"`
	Stability   StabilityDoc   `json:"stability"`
	Candidates  []CandidateDoc `json:"candidates"`
	Refine      *RefineDoc     `json:"refine,omitempty"`
	Drift       []DriftDoc     `json:"drift"`
	Synthesis   *SynthesisDoc  `json:"synthesis,omitempty"`
	Warnings    []string       `json:"warnings"`
	Converged   bool           `json:"converged"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	DurationMS  int64          `json:"duration_ms"`
}

// CandidateDoc is one ranked node
type CandidateDoc struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind,omitempty"`
	PA         Float    `json:"pa"`
	PB         Float    `json:"pb"`
	PE         Float    `json:"pe,omitempty"`
	Score      Float    `json:"score"`
	Balance    Float    `json:"balance"`
	InScope    bool     `json:"in_scope"`
	SharedAxes []string `json:"shared_axes,omitempty"`
}

// ScopeDoc describes the axis scope of the reported pass
type ScopeDoc struct {
	Status string   `json:"status"`
	Axes   []string `json:"axes"`
}

// StabilityDoc holds the dominance and balance measures
type StabilityDoc struct {
	Ratio    Float    `json:"ratio"`
	Balance  Float    `json:"balance"`
	Admitted int      `json:"admitted"`
	RunnerUp string   `json:"runner_up,omitempty"`
	Reasons  []string `json:"reasons"`
}

// RefineDoc records the refine pass
type RefineDoc struct {
	Trigger     string   `json:"trigger"`
	Provisional string   `json:"provisional,omitempty"`
	Scope       []string `json:"scope"`
	Recovered   bool     `json:"recovered"`
	Adopted     bool     `json:"adopted"`
	Outcome     string   `json:"outcome"`
}

// DriftDoc is one drift suspect
type DriftDoc struct {
	ID     string   `json:"id"`
	Kind   string   `json:"kind"`
	Score  Float    `json:"score"`
	Axes   []string `json:"axes"`
	Reason string   `json:"reason"`
}

// SynthesisDoc is the synthesis outcome
type SynthesisDoc struct {
	Node     *CandidateDoc  `json:"node"`
	Skipped  string         `json:"skipped,omitempty"`
	Scope    []string       `json:"scope"`
	Rejected []RejectionDoc `json:"rejected"`
}

// RejectionDoc is a synthesis candidate discarded as a duality pole
type RejectionDoc struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// NewDocument flattens an audit result. At most top candidates of the
// reported pass are included; top <= 0 includes all of them.
func NewDocument(res *diffraction.AuditResult, top int) *Document {
	doc := &Document{
		RunID:      res.RunID,
		PoleA:      res.PoleA,
		PoleB:      res.PoleB,
		Mode:       string(res.Mode),
		Verdict:    string(res.Verdict),
		Confidence: string(res.Confidence),
		Scope:      ScopeDoc{Status: string(res.ScopeStatus), Axes: nonNil(res.ScopeAxes)},
		Stability: StabilityDoc{
			Ratio:    Float(res.Stability.Ratio),
			Balance:  Float(res.Stability.Balance),
			Admitted: res.Stability.Admitted,
			Reasons:  nonNil(res.Stability.Reasons),
		},
		Candidates: []CandidateDoc{},
		Drift:      []DriftDoc{},
		Warnings:   nonNil(res.Warnings),
		Converged:  res.Converged,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		DurationMS: res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	}
	if res.Equilibrium != nil {
		c := candidateDoc(*res.Equilibrium)
		doc.Equilibrium = &c
	}
	if res.Stability.RunnerUp != nil {
		doc.Stability.RunnerUp = res.Stability.RunnerUp.NodeID
	}

	if len(res.Passes) > 0 {
		final := finalPass(res)
		for i, c := range final.Candidates {
			if top > 0 && i >= top {
				break
			}
			doc.Candidates = append(doc.Candidates, candidateDoc(c))
		}
	}

	if res.Refine.Attempted {
		doc.Refine = &RefineDoc{
			Trigger:     string(res.Refine.Trigger),
			Provisional: res.Refine.Provisional,
			Scope:       nonNil(res.Refine.Scope),
			Recovered:   res.Refine.Recovered,
			Adopted:     res.Refine.Adopted,
			Outcome:     res.Refine.Outcome,
		}
	}

	for _, s := range res.Drift {
		doc.Drift = append(doc.Drift, DriftDoc{
			ID:     s.NodeID,
			Kind:   s.Kind,
			Score:  Float(s.Score),
			Axes:   nonNil(s.Axes),
			Reason: string(s.Reason),
		})
	}

	if syn := res.Synthesis; syn.Attempted || syn.Skipped != "" {
		sd := &SynthesisDoc{
			Skipped:  syn.Skipped,
			Scope:    nonNil(syn.Scope.Axes),
			Rejected: []RejectionDoc{},
		}
		if syn.Node != nil {
			c := candidateDoc(*syn.Node)
			sd.Node = &c
		}
		for _, r := range syn.Rejected {
			sd.Rejected = append(sd.Rejected, RejectionDoc{ID: r.NodeID, Reason: r.Reason})
		}
		doc.Synthesis = sd
	}
	return doc
}

// finalPass returns the pass whose scope the result reports
func finalPass(res *diffraction.AuditResult) diffraction.Pass {
	if res.Refine.Adopted && len(res.Passes) > 1 {
		return res.Passes[len(res.Passes)-1]
	}
	return res.Passes[0]
}

func candidateDoc(c diffraction.Candidate) CandidateDoc {
	return CandidateDoc{
		ID:         c.NodeID,
		Kind:       c.Kind,
		PA:         Float(c.PA),
		PB:         Float(c.PB),
		PE:         Float(c.PE),
		Score:      Float(c.Score),
		Balance:    Float(c.Balance()),
		InScope:    c.InScope,
		SharedAxes: c.SharedAxes,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
