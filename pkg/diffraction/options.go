package diffraction

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-diffraction/pkg/algorithms"
	"github.com/dd0wney/cluso-diffraction/pkg/semgraph"
	"github.com/dd0wney/cluso-diffraction/pkg/validation"
)

// DefaultWorkers is the number of PPR fields computed concurrently
const DefaultWorkers = 3

// Options configures an Auditor
type Options struct {
	View            semgraph.ViewOptions
	PPR             algorithms.PPROptions
	Lambda          float64 // pairwise imbalance penalty
	SynthesisLambda float64 // triple imbalance penalty
	TripleWeights   algorithms.TripleWeights
	TopK            int // candidate pool depth per field
	Stability       StabilityOptions
	Drift           DriftOptions
	Policy          AxisPolicy
	AxisOnly        string
	Refine          bool // permit one refine pass
	StrictAxis      bool // empty or unrecoverable scopes are fatal
	Synthesis       bool
	ExcludeKinds    []string // kinds never proposed as equilibrium
	Workers         int
}

// DefaultOptions returns the default audit configuration
func DefaultOptions() Options {
	return Options{
		View:            semgraph.DefaultViewOptions(),
		PPR:             algorithms.DefaultPPROptions(),
		Lambda:          algorithms.DefaultLambda,
		SynthesisLambda: algorithms.DefaultSynthesisLambda,
		TripleWeights:   algorithms.DefaultTripleWeights(),
		TopK:            algorithms.DefaultTopK,
		Stability:       DefaultStabilityOptions(),
		Drift:           DefaultDriftOptions(),
		Policy:          PolicyShared,
		ExcludeKinds:    []string{semgraph.KindEmergent, semgraph.KindSynthesis},
		Workers:         DefaultWorkers,
	}
}

// Validate checks every tunable and reports all violations at once.
func (o *Options) Validate() error {
	return validation.NewConfigValidator("diffraction.Options").
		OpenUnit("PPR.DampingFactor", o.PPR.DampingFactor).
		PositiveFloat("PPR.Tolerance", o.PPR.Tolerance).
		Positive("PPR.MaxIterations", o.PPR.MaxIterations).
		NonNegativeFloat("Lambda", o.Lambda).
		NonNegativeFloat("SynthesisLambda", o.SynthesisLambda).
		NonNegativeFloat("TripleWeights.A", o.TripleWeights.A).
		NonNegativeFloat("TripleWeights.B", o.TripleWeights.B).
		NonNegativeFloat("TripleWeights.E", o.TripleWeights.E).
		Positive("TopK", o.TopK).
		Custom("Stability.RatioMin", func() error {
			if !(o.Stability.RatioMin > 1) {
				return fmt.Errorf("value %g must exceed 1", o.Stability.RatioMin)
			}
			return nil
		}).
		RangeFloat("Stability.BalanceMax", o.Stability.BalanceMax, 0, 1).
		NonNegative("Drift.TopN", o.Drift.TopN).
		NonNegativeFloat("Drift.Threshold", o.Drift.Threshold).
		OneOf("Policy", string(o.Policy), []string{string(PolicyShared), string(PolicyAxisOnly), string(PolicyNone)}).
		When(o.Policy == PolicyAxisOnly, func(cv *validation.ConfigValidator) {
			cv.Custom("AxisOnly", func() error {
				if o.AxisOnly == "" {
					return errors.New("required when Policy is axis_only")
				}
				return nil
			})
		}).
		NonNegative("View.MaxEmbeddingOutDegree", o.View.MaxEmbeddingOutDegree).
		NonNegativeFloat("View.EmbeddingWeightCap", o.View.EmbeddingWeightCap).
		Custom("View.MinWeight", func() error {
			if o.View.UseWeights && o.View.MaxWeight > 0 && o.View.MinWeight > o.View.MaxWeight {
				return fmt.Errorf("min weight %g exceeds max weight %g", o.View.MinWeight, o.View.MaxWeight)
			}
			return nil
		}).
		Validate()
}

func (o *Options) excludedKind(kind string) bool {
	for _, k := range o.ExcludeKinds {
		if k == kind {
			return true
		}
	}
	return false
}
