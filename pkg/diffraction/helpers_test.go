package diffraction

import (
	"testing"

	"github.com/dd0wney/cluso-diffraction/pkg/algorithms"
	"github.com/dd0wney/cluso-diffraction/pkg/semgraph"
)

// demoGraph has two disconnected components: a temperature duality
// reconciled by tibio and a space/time pair reconciled by relatividad.
func demoGraph(t testing.TB) *semgraph.Graph {
	t.Helper()

	temp := []string{"eje:temperatura"}
	specs := []semgraph.NodeSpec{
		{ID: "frío", Axes: temp},
		{ID: "calor", Axes: temp},
		{ID: "tibio", Kind: semgraph.KindEquilibrium, Axes: temp},
		{ID: "temperatura", Kind: semgraph.KindSynthesis, Axes: temp},
		{ID: "hielo", Axes: temp},
		{ID: "fuego", Axes: temp},

		{ID: "espacio", Axes: []string{"eje:fisica", "eje:dimension"}},
		{ID: "tiempo", Axes: []string{"eje:fisica", "eje:dimension"}},
		{ID: "relatividad", Kind: semgraph.KindEquilibrium, Axes: []string{"eje:fisica"}},
		{ID: "arriba", Skeleton: true, Axes: []string{"eje:dimension", "eje:espacial"}},
		{ID: "pasado", Skeleton: true, Axes: []string{"eje:dimension", "eje:temporal"}},

		{ID: "ia_m", Meta: true, Axes: []string{"eje:meta"}},
	}

	links := []struct {
		from, to string
		w        float64
	}{
		{"frío", "tibio", 1}, {"frío", "temperatura", 1}, {"frío", "hielo", 0.5},
		{"calor", "tibio", 1}, {"calor", "temperatura", 1}, {"calor", "fuego", 0.5},
		{"tibio", "frío", 1}, {"tibio", "calor", 1}, {"tibio", "temperatura", 1},
		{"temperatura", "frío", 1}, {"temperatura", "calor", 1}, {"temperatura", "tibio", 1},
		{"hielo", "frío", 1}, {"fuego", "calor", 1},

		{"espacio", "relatividad", 1}, {"espacio", "arriba", 1},
		{"tiempo", "relatividad", 1}, {"tiempo", "pasado", 1},
		{"relatividad", "espacio", 1}, {"relatividad", "tiempo", 1},
		{"arriba", "espacio", 1}, {"pasado", "tiempo", 1},

		{"ia_m", "espacio", 1}, {"ia_m", "calor", 1}, {"espacio", "ia_m", 1},
	}
	edges := make([]semgraph.Edge, len(links))
	for i, l := range links {
		edges[i] = semgraph.Edge{From: l.from, To: l.to, Kind: semgraph.EdgeStructural, Weight: l.w}
	}

	dualities := []semgraph.Duality{{Axis: "eje:temperatura", Poles: [2]string{"frío", "calor"}}}

	g, err := semgraph.NewGraph(specs, edges, dualities, semgraph.GraphOptions{})
	if err != nil {
		t.Fatalf("Failed to build demo graph: %v", err)
	}
	return g
}

// cand builds an annotated candidate for stability tests.
func cand(id string, pa, pb float64) Candidate {
	c := algorithms.Candidate{NodeID: id, PA: pa, PB: pb}
	c.Score = algorithms.DiffractionScore(pa, pb, algorithms.DefaultLambda)
	if pa > pb {
		c.Imbalance = pa - pb
	} else {
		c.Imbalance = pb - pa
	}
	return Candidate{Candidate: c, InScope: true}
}

func ids(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.NodeID
	}
	return out
}
