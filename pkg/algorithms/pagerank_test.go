package algorithms

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/dd0wney/cluso-diffraction/pkg/semgraph"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// setupPPRTestView builds a structure-mode view over the given nodes and
// unit-weight structural edges ("from>to").
func setupPPRTestView(t testing.TB, ids []string, links ...[2]string) *semgraph.View {
	t.Helper()

	specs := make([]semgraph.NodeSpec, len(ids))
	for i, id := range ids {
		specs[i] = semgraph.NodeSpec{ID: id}
	}
	edges := make([]semgraph.Edge, len(links))
	for i, l := range links {
		edges[i] = semgraph.Edge{From: l[0], To: l[1], Kind: semgraph.EdgeStructural, Weight: 1}
	}

	g, err := semgraph.NewGraph(specs, edges, nil, semgraph.GraphOptions{})
	if err != nil {
		t.Fatalf("Failed to create graph: %v", err)
	}
	v, err := semgraph.BuildView(g, semgraph.DefaultViewOptions())
	if err != nil {
		t.Fatalf("Failed to build view: %v", err)
	}
	return v
}

// TestPPR_SingleNode tests PPR on a single dangling node
func TestPPR_SingleNode(t *testing.T) {
	v := setupPPRTestView(t, []string{"a"})

	result, err := SingleSource(v, "a", DefaultPPROptions())
	if err != nil {
		t.Fatalf("PPR failed: %v", err)
	}

	if math.Abs(result.Get("a")-1.0) > 1e-9 {
		t.Errorf("Expected all mass on the seed, got %f", result.Get("a"))
	}
	if !result.Converged {
		t.Error("Expected convergence for single node")
	}
}

// TestPPR_LinearChain tests PPR on chain A->B->C seeded at A
func TestPPR_LinearChain(t *testing.T) {
	v := setupPPRTestView(t, []string{"a", "b", "c"}, [2]string{"a", "b"}, [2]string{"b", "c"})

	result, err := SingleSource(v, "a", DefaultPPROptions())
	if err != nil {
		t.Fatalf("PPR failed: %v", err)
	}

	// C is dangling and teleports back to A:
	// A = 0.15 + 0.85·C, B = 0.85·A, C = 0.85·B
	wantA := 0.15 / (1 - math.Pow(0.85, 3))
	if math.Abs(result.Get("a")-wantA) > 1e-6 {
		t.Errorf("A = %f, want %f", result.Get("a"), wantA)
	}
	if math.Abs(result.Get("b")-0.85*wantA) > 1e-6 {
		t.Errorf("B = %f, want %f", result.Get("b"), 0.85*wantA)
	}
	if math.Abs(result.Scores.Sum()-1.0) > 1e-9 {
		t.Errorf("Expected scores to sum to 1.0, got %f", result.Scores.Sum())
	}
}

// TestPPR_SymmetricPoles tests that mirrored seeds produce mirrored fields
func TestPPR_SymmetricPoles(t *testing.T) {
	v := setupPPRTestView(t, []string{"a", "b", "mid", "x", "y"},
		[2]string{"a", "mid"}, [2]string{"b", "mid"},
		[2]string{"mid", "a"}, [2]string{"mid", "b"},
		[2]string{"a", "x"}, [2]string{"x", "a"},
		[2]string{"b", "y"}, [2]string{"y", "b"},
	)

	pa, err := SingleSource(v, "a", DefaultPPROptions())
	if err != nil {
		t.Fatal(err)
	}
	pb, err := SingleSource(v, "b", DefaultPPROptions())
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(pa.Get("mid")-pb.Get("mid")) > 1e-9 {
		t.Errorf("mid should be balanced: pa=%f pb=%f", pa.Get("mid"), pb.Get("mid"))
	}
	if math.Abs(pa.Get("x")-pb.Get("y")) > 1e-9 {
		t.Errorf("x under A should mirror y under B: %f vs %f", pa.Get("x"), pb.Get("y"))
	}
	if pa.Get("x") <= pa.Get("y") {
		t.Error("A's private neighbour should outrank B's under PA")
	}
}

// TestPPR_MultiSeed tests teleport weight normalization
func TestPPR_MultiSeed(t *testing.T) {
	v := setupPPRTestView(t, []string{"a", "b", "c"})

	result, err := PersonalizedPageRank(v, map[string]float64{"a": 3, "b": 1}, DefaultPPROptions())
	if err != nil {
		t.Fatalf("PPR failed: %v", err)
	}

	if math.Abs(result.Seeds["a"]-0.75) > 1e-12 || math.Abs(result.Seeds["b"]-0.25) > 1e-12 {
		t.Errorf("Seeds not normalized: %v", result.Seeds)
	}
	// No edges: every node is dangling, so the distribution equals the teleport vector
	if math.Abs(result.Get("a")-0.75) > 1e-9 || result.Get("c") != 0 {
		t.Errorf("Unexpected distribution: a=%f c=%f", result.Get("a"), result.Get("c"))
	}
}

// TestPPR_MaxIterations tests the non-fatal convergence failure
func TestPPR_MaxIterations(t *testing.T) {
	v := setupPPRTestView(t, []string{"a", "b", "c"},
		[2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"})

	opts := DefaultPPROptions()
	opts.MaxIterations = 2
	result, err := SingleSource(v, "a", opts)

	if !errors.Is(err, ErrConvergence) {
		t.Fatalf("Expected ErrConvergence, got %v", err)
	}
	var ce *ConvergenceError
	if !errors.As(err, &ce) || ce.Iterations != 2 {
		t.Errorf("Unexpected convergence error: %v", err)
	}
	if result == nil {
		t.Fatal("Last iterate must be returned alongside the error")
	}
	if result.Converged || result.Iterations != 2 {
		t.Errorf("Expected 2 unconverged iterations, got %d (converged=%v)", result.Iterations, result.Converged)
	}
	if math.Abs(result.Scores.Sum()-1.0) > 1e-9 {
		t.Errorf("Mass must be preserved on every iterate, got %f", result.Scores.Sum())
	}
}

// TestPPR_SeedErrors tests rejection of invalid seed sets
func TestPPR_SeedErrors(t *testing.T) {
	v := setupPPRTestView(t, []string{"a", "b"})

	if _, err := PersonalizedPageRank(v, nil, DefaultPPROptions()); !errors.Is(err, ErrNoSeeds) {
		t.Errorf("nil seeds: got %v", err)
	}
	if _, err := PersonalizedPageRank(v, map[string]float64{"a": 0}, DefaultPPROptions()); !errors.Is(err, ErrNoSeeds) {
		t.Errorf("zero weight seeds: got %v", err)
	}
	if _, err := SingleSource(v, "ghost", DefaultPPROptions()); !errors.Is(err, semgraph.ErrGraphLoad) {
		t.Errorf("missing seed: got %v", err)
	}
	if _, err := PersonalizedPageRank(v, map[string]float64{"a": -1}, DefaultPPROptions()); err == nil {
		t.Error("negative weight should fail")
	}
}

// TestPPR_ExcludedNodesHoldNoMass tests that view exclusions are respected
func TestPPR_ExcludedNodesHoldNoMass(t *testing.T) {
	specs := []semgraph.NodeSpec{{ID: "a"}, {ID: "b"}, {ID: "m", Meta: true}}
	edges := []semgraph.Edge{
		{From: "a", To: "m", Kind: semgraph.EdgeStructural, Weight: 1},
		{From: "m", To: "b", Kind: semgraph.EdgeStructural, Weight: 1},
		{From: "a", To: "b", Kind: semgraph.EdgeStructural, Weight: 1},
	}
	g, err := semgraph.NewGraph(specs, edges, nil, semgraph.GraphOptions{})
	if err != nil {
		t.Fatal(err)
	}
	v, err := semgraph.BuildView(g, semgraph.DefaultViewOptions())
	if err != nil {
		t.Fatal(err)
	}

	result, err := SingleSource(v, "a", DefaultPPROptions())
	if err != nil {
		t.Fatal(err)
	}
	if result.Get("m") != 0 {
		t.Errorf("excluded meta node received mass %f", result.Get("m"))
	}
}

// TestDefaultPPROptions tests defaults and validation fallbacks
func TestDefaultPPROptions(t *testing.T) {
	opts := DefaultPPROptions()
	if opts.DampingFactor != 0.85 || opts.Tolerance != DefaultTolerance || opts.MaxIterations != DefaultMaxIterations {
		t.Errorf("Unexpected defaults: %+v", opts)
	}

	bad := PPROptions{DampingFactor: 1.5, Tolerance: -1, MaxIterations: 0}
	bad.Validate()
	if bad != DefaultPPROptions() {
		t.Errorf("Validate should restore defaults, got %+v", bad)
	}
}

// TestPPR_MassInvariant checks the probability mass invariant on random graphs
func TestPPR_MassInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("mass sums to one and is non-negative", prop.ForAll(
		func(n int, raw []uint8, damping float64, seedCount int) bool {
			ids := make([]string, n)
			for i := range ids {
				ids[i] = fmt.Sprintf("n%02d", i)
			}
			var links [][2]string
			for k := 0; k+1 < len(raw); k += 2 {
				from, to := int(raw[k])%n, int(raw[k+1])%n
				if from != to {
					links = append(links, [2]string{ids[from], ids[to]})
				}
			}
			v := setupPPRTestView(t, ids, links...)

			seeds := make(map[string]float64)
			for i := 0; i < seedCount && i < n; i++ {
				seeds[ids[i]] = float64(i + 1)
			}

			opts := DefaultPPROptions()
			opts.DampingFactor = damping
			result, err := PersonalizedPageRank(v, seeds, opts)
			if err != nil && !errors.Is(err, ErrConvergence) {
				return false
			}
			for _, x := range result.Scores {
				if x < 0 {
					return false
				}
			}
			return math.Abs(result.Scores.Sum()-1.0) < 1e-9
		},
		gen.IntRange(1, 12),
		gen.SliceOf(gen.UInt8()),
		gen.Float64Range(0.05, 0.95),
		gen.IntRange(1, 3),
	))

	properties.TestingRun(t)
}
