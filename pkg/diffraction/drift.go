package diffraction

import (
	"github.com/dd0wney/cluso-diffraction/pkg/semgraph"
)

// Drift defaults
const (
	DefaultDriftTopN      = 20
	DefaultDriftThreshold = 1e-4
)

// DriftOptions bounds which candidates are inspected
type DriftOptions struct {
	TopN      int     // inspect at most this many ranked candidates
	Threshold float64 // minimum visible score
}

// DefaultDriftOptions returns the default drift bounds
func DefaultDriftOptions() DriftOptions {
	return DriftOptions{TopN: DefaultDriftTopN, Threshold: DefaultDriftThreshold}
}

// DetectDrift flags ranked candidates that draw score mass without axis
// justification. Meta nodes are always flagged. Other nodes are flagged
// when they share no axis with either pole, unless they are the
// equilibrium or of a reconciling kind. The result keeps ranking order and
// never influences the verdict.
func DetectDrift(g *semgraph.Graph, ranked []Candidate, a, b, eq string, opts DriftOptions) []DriftSuspect {
	poleAxes := g.AxesOf(a).Or(g.AxesOf(b))

	var suspects []DriftSuspect
	for i, c := range ranked {
		if opts.TopN > 0 && i >= opts.TopN {
			break
		}
		if c.Score < opts.Threshold {
			continue
		}

		var reason DriftReason
		switch {
		case c.Meta:
			reason = DriftMetaNode
		case c.NodeID == eq || reconcilingKind(c.Kind):
			continue
		case !g.AxesOf(c.NodeID).Intersects(poleAxes):
			reason = DriftNoAxisOverlap
		default:
			continue
		}

		suspects = append(suspects, DriftSuspect{
			NodeID: c.NodeID,
			Kind:   c.Kind,
			Score:  c.Score,
			Axes:   g.AxisNames(c.NodeID),
			Reason: reason,
		})
	}
	return suspects
}

func reconcilingKind(kind string) bool {
	switch kind {
	case semgraph.KindEquilibrium, semgraph.KindSynthesis, semgraph.KindEmergent:
		return true
	}
	return false
}
