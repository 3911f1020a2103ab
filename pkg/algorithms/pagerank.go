package algorithms

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dd0wney/cluso-diffraction/pkg/pools"
	"github.com/dd0wney/cluso-diffraction/pkg/semgraph"
)

// PPR configuration defaults
const (
	// DefaultDampingFactor is the probability of following an edge rather
	// than teleporting back to the seeds.
	DefaultDampingFactor = 0.85

	// DefaultTolerance bounds the L1 change between iterations at convergence.
	DefaultTolerance = 1e-8

	// DefaultMaxIterations caps power iteration.
	DefaultMaxIterations = 300
)

var (
	// ErrConvergence matches every ConvergenceError
	ErrConvergence = errors.New("personalized pagerank did not converge")
	// ErrNoSeeds is returned when the seed set is empty or has no positive weight
	ErrNoSeeds = errors.New("seed set is empty")
)

// PPROptions configures personalized PageRank
type PPROptions struct {
	DampingFactor float64 // Probability of following an edge, in (0, 1)
	Tolerance     float64 // L1 convergence threshold
	MaxIterations int
}

// DefaultPPROptions returns default PPR configuration
func DefaultPPROptions() PPROptions {
	return PPROptions{
		DampingFactor: DefaultDampingFactor,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
	}
}

// Validate applies defaults for out-of-range values.
func (o *PPROptions) Validate() {
	if o.DampingFactor <= 0 || o.DampingFactor >= 1 || math.IsNaN(o.DampingFactor) {
		o.DampingFactor = DefaultDampingFactor
	}
	if o.Tolerance <= 0 || math.IsNaN(o.Tolerance) {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
}

// ConvergenceError reports that the iteration cap was reached before the
// tolerance was met. The accompanying result holds the last iterate.
type ConvergenceError struct {
	Seeds      []string
	Iterations int
	Delta      float64
	Tolerance  float64
}

// Error implements the error interface.
func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("ppr from %v: no convergence after %d iterations (delta %.3g > tolerance %.3g)",
		e.Seeds, e.Iterations, e.Delta, e.Tolerance)
}

// Is matches ErrConvergence.
func (e *ConvergenceError) Is(target error) bool {
	return target == ErrConvergence
}

// Vector is a probability mass per node, indexed like the view's graph
type Vector []float64

// Sum returns the total mass
func (v Vector) Sum() float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}

// PPRResult holds a personalized PageRank distribution
type PPRResult struct {
	Seeds      map[string]float64 // Normalized teleport weights
	Scores     Vector
	Iterations int
	Converged  bool
	Delta      float64 // Final L1 change

	view *semgraph.View
}

// Get returns the mass of a node, 0 when unknown
func (r *PPRResult) Get(id string) float64 {
	i, ok := r.view.Graph().Index(id)
	if !ok {
		return 0
	}
	return r.Scores[i]
}

// View returns the view the distribution was computed over
func (r *PPRResult) View() *semgraph.View {
	return r.view
}

// SeedIDs returns the seed ids in lexical order
func (r *PPRResult) SeedIDs() []string {
	ids := make([]string, 0, len(r.Seeds))
	for id := range r.Seeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type seed struct {
	index  int
	weight float64
}

// PersonalizedPageRank computes a PPR distribution over a view by power iteration.
//
// At each step mass = d·(transition·mass) + (1−d)·teleport, where the
// transition is the row-normalized weighted adjacency of the view. Mass on
// dangling nodes is routed through the teleport vector so the total stays 1.
// Iteration stops once the L1 change drops below the tolerance.
//
// When the cap is reached first, the last iterate is returned together with
// a *ConvergenceError; callers should treat it as lower confidence.
//
// Complexity: O(k × E) where k = iterations.
func PersonalizedPageRank(view *semgraph.View, seeds map[string]float64, opts PPROptions) (*PPRResult, error) {
	opts.Validate()

	teleport, normalized, err := buildTeleport(view, seeds)
	if err != nil {
		return nil, err
	}

	n := view.Len()
	d := opts.DampingFactor
	scores := make(Vector, n)
	next := Vector(pools.GetFloat64s(n))
	for _, s := range teleport {
		scores[s.index] = s.weight
	}

	var (
		iterations int
		converged  bool
		delta      float64
	)
	for iterations < opts.MaxIterations {
		iterations++

		clear(next)
		dangling := 0.0
		for i := 0; i < n; i++ {
			mass := scores[i]
			if mass == 0 {
				continue
			}
			out := view.OutWeight(i)
			if out == 0 {
				dangling += mass
				continue
			}
			targets, weights := view.Out(i)
			share := d * mass / out
			for k, j := range targets {
				next[j] += share * weights[k]
			}
		}

		restart := d*dangling + (1 - d)
		for _, s := range teleport {
			next[s.index] += restart * s.weight
		}

		delta = 0
		for i := range next {
			delta += math.Abs(next[i] - scores[i])
		}
		scores, next = next, scores

		if delta < opts.Tolerance {
			converged = true
			break
		}
	}
	// next is the scratch buffer after the final swap
	pools.PutFloat64s(next)

	result := &PPRResult{
		Seeds:      normalized,
		Scores:     scores,
		Iterations: iterations,
		Converged:  converged,
		Delta:      delta,
		view:       view,
	}
	if !converged {
		return result, &ConvergenceError{
			Seeds:      result.SeedIDs(),
			Iterations: iterations,
			Delta:      delta,
			Tolerance:  opts.Tolerance,
		}
	}
	return result, nil
}

// SingleSource computes PPR seeded on one node
func SingleSource(view *semgraph.View, id string, opts PPROptions) (*PPRResult, error) {
	return PersonalizedPageRank(view, map[string]float64{id: 1}, opts)
}

func buildTeleport(view *semgraph.View, seeds map[string]float64) ([]seed, map[string]float64, error) {
	total := 0.0
	for id, w := range seeds {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, nil, fmt.Errorf("seed %q: invalid teleport weight %v", id, w)
		}
		if err := view.RequireNodes(id); err != nil {
			return nil, nil, err
		}
		total += w
	}
	if total == 0 {
		return nil, nil, ErrNoSeeds
	}

	ids := make([]string, 0, len(seeds))
	for id := range seeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	teleport := make([]seed, 0, len(ids))
	normalized := make(map[string]float64, len(ids))
	for _, id := range ids {
		w := seeds[id] / total
		if w == 0 {
			continue
		}
		i, _ := view.Graph().Index(id)
		teleport = append(teleport, seed{index: i, weight: w})
		normalized[id] = w
	}
	return teleport, normalized, nil
}
