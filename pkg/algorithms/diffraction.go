package algorithms

import (
	"container/heap"
	"math"
	"sort"
)

// Scoring defaults
const (
	DefaultLambda          = 0.6
	DefaultSynthesisLambda = 0.5
	DefaultTopK            = 40
)

// Candidate is a node scored against two (or three) PPR fields
type Candidate struct {
	NodeID    string
	PA        float64
	PB        float64
	PE        float64 // third field, synthesis only
	Score     float64
	Imbalance float64 // |PA−PB|, or the sum of pairwise gaps for triples
}

// Balance returns |PA−PB| / (PA+PB), or 1 when the candidate holds no mass
func (c Candidate) Balance() float64 {
	total := c.PA + c.PB
	if total <= 0 {
		return 1
	}
	return math.Abs(c.PA-c.PB) / total
}

// TripleWeights scales each field's contribution in ScoreTriple
type TripleWeights struct {
	A, B, E float64
}

// DefaultTripleWeights weighs the three fields equally
func DefaultTripleWeights() TripleWeights {
	return TripleWeights{A: 1, B: 1, E: 1}
}

// DiffractionScore computes S = (pa+pb) − λ·|pa−pb|
func DiffractionScore(pa, pb, lambda float64) float64 {
	return (pa + pb) - lambda*math.Abs(pa-pb)
}

// TripleScore generalizes DiffractionScore to three fields, penalizing every
// pairwise gap.
func TripleScore(pa, pb, pe float64, w TripleWeights, lambda float64) float64 {
	return (w.A*pa + w.B*pb + w.E*pe) - lambda*tripleGap(pa, pb, pe)
}

func tripleGap(pa, pb, pe float64) float64 {
	return math.Abs(pa-pb) + math.Abs(pa-pe) + math.Abs(pb-pe)
}

// ScorePair scores ids against PA and PB and returns them ranked.
func ScorePair(pa, pb *PPRResult, ids []string, lambda float64) []Candidate {
	out := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		a, b := pa.Get(id), pb.Get(id)
		out = append(out, Candidate{
			NodeID:    id,
			PA:        a,
			PB:        b,
			Score:     DiffractionScore(a, b, lambda),
			Imbalance: math.Abs(a - b),
		})
	}
	SortCandidates(out)
	return out
}

// ScoreTriple scores ids against three fields and returns them ranked.
func ScoreTriple(pa, pb, pe *PPRResult, ids []string, w TripleWeights, lambda float64) []Candidate {
	out := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		a, b, e := pa.Get(id), pb.Get(id), pe.Get(id)
		out = append(out, Candidate{
			NodeID:    id,
			PA:        a,
			PB:        b,
			PE:        e,
			Score:     TripleScore(a, b, e, w, lambda),
			Imbalance: tripleGap(a, b, e),
		})
	}
	SortCandidates(out)
	return out
}

// SortCandidates ranks by score descending, then by smaller imbalance, then
// by identifier, so the order never depends on the input order.
func SortCandidates(c []Candidate) {
	sort.Slice(c, func(i, j int) bool { return candidateLess(c[i], c[j]) })
}

func candidateLess(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Imbalance != b.Imbalance {
		return a.Imbalance < b.Imbalance
	}
	return a.NodeID < b.NodeID
}

// rankedNode is a heap entry for top-k selection
type rankedNode struct {
	id    string
	score float64
}

// rankedNodeHeap implements a min-heap of rankedNode by score.
// We keep at most k elements; the weakest sits at the root and is evicted
// when a stronger element arrives. Equal scores keep the smaller id.
type rankedNodeHeap []rankedNode

func (h rankedNodeHeap) Len() int { return len(h) }
func (h rankedNodeHeap) Less(i, j int) bool { return rankedLess(h[i], h[j]) }
func (h rankedNodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *rankedNodeHeap) Push(x any) {
	*h = append(*h, x.(rankedNode))
}

func (h *rankedNodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// TopK returns the ids of the k nodes with the most mass in r, strongest
// first. Nodes without mass or rejected by skip are ignored.
// Time complexity: O(n log k)
func TopK(r *PPRResult, k int, skip func(id string) bool) []string {
	if k <= 0 {
		return nil
	}

	h := make(rankedNodeHeap, 0, k)
	heap.Init(&h)

	g := r.view.Graph()
	for i, score := range r.Scores {
		if score <= 0 {
			continue
		}
		id := g.NodeAt(i).ID
		if skip != nil && skip(id) {
			continue
		}
		rn := rankedNode{id: id, score: score}
		if h.Len() < k {
			heap.Push(&h, rn)
		} else if rankedLess(h[0], rn) {
			heap.Pop(&h)
			heap.Push(&h, rn)
		}
	}

	result := make([]string, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(rankedNode).id
	}
	return result
}

// rankedLess reports whether a ranks below b
func rankedLess(a, b rankedNode) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.id > b.id
}

// CandidatePool is the union of the top-k nodes of every field, sorted by id.
func CandidatePool(k int, skip func(id string) bool, fields ...*PPRResult) []string {
	seen := make(map[string]struct{})
	for _, f := range fields {
		for _, id := range TopK(f, k, skip) {
			seen[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
