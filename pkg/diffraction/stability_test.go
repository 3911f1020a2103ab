package diffraction

import (
	"math"
	"strings"
	"testing"
)

func TestAnalyzeStability(t *testing.T) {
	opts := DefaultStabilityOptions()

	tests := []struct {
		name    string
		ranked  []Candidate
		verdict Verdict
		reason  string
	}{
		{
			name:    "empty",
			verdict: VerdictIndeterminate,
			reason:  "no candidates in scope",
		},
		{
			name:    "single candidate",
			ranked:  []Candidate{cand("tibio", 0.2, 0.2)},
			verdict: VerdictIndeterminate,
			reason:  "single candidate in scope",
		},
		{
			name:    "dominant and balanced",
			ranked:  []Candidate{cand("tibio", 0.223905, 0.223905), cand("hielo", 0.055020, 0.025213)},
			verdict: VerdictStable,
		},
		{
			name:    "low ratio",
			ranked:  []Candidate{cand("a", 0.2, 0.2), cand("b", 0.18, 0.18)},
			verdict: VerdictUnstable,
			reason:  "low top1/top2 ratio",
		},
		{
			name:    "one-sided winner",
			ranked:  []Candidate{cand("a", 0.9, 0), cand("b", 0.01, 0.01)},
			verdict: VerdictUnstable,
			reason:  "high pa/pb imbalance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := AnalyzeStability(tt.ranked, opts)
			if r.Verdict != tt.verdict {
				t.Fatalf("verdict = %s, want %s (reasons %v)", r.Verdict, tt.verdict, r.Reasons)
			}
			if tt.reason == "" {
				if len(r.Reasons) != 0 {
					t.Errorf("unexpected reasons %v", r.Reasons)
				}
				return
			}
			found := false
			for _, reason := range r.Reasons {
				if strings.Contains(reason, tt.reason) {
					found = true
				}
			}
			if !found {
				t.Errorf("reasons %v do not mention %q", r.Reasons, tt.reason)
			}
		})
	}
}

func TestAnalyzeStability_Measures(t *testing.T) {
	r := AnalyzeStability([]Candidate{cand("a", 0.3, 0.1), cand("b", 0, 0)}, DefaultStabilityOptions())
	if !math.IsInf(r.Ratio, 1) {
		t.Errorf("ratio with a zero runner-up = %v, want +Inf", r.Ratio)
	}
	if math.Abs(r.Balance-0.5) > 1e-12 {
		t.Errorf("balance = %v, want 0.5", r.Balance)
	}
	if r.Top.NodeID != "a" || r.RunnerUp.NodeID != "b" || r.Admitted != 2 {
		t.Errorf("unexpected report %+v", r)
	}
	if r.Verdict != VerdictStable {
		t.Errorf("verdict = %s", r.Verdict)
	}

	lone := AnalyzeStability([]Candidate{cand("a", 0.5, 0)}, DefaultStabilityOptions())
	if lone.Balance != 1 || len(lone.Reasons) != 2 {
		t.Errorf("a lone one-sided candidate should report its imbalance: %+v", lone)
	}
}

func TestAnalyzeStability_Thresholds(t *testing.T) {
	ranked := []Candidate{cand("a", 0.2, 0.2), cand("b", 0.13, 0.13)}

	if r := AnalyzeStability(ranked, StabilityOptions{RatioMin: 1.35, BalanceMax: 0.8}); r.Verdict != VerdictStable {
		t.Errorf("ratio 1.54 should pass 1.35, got %s", r.Verdict)
	}
	if r := AnalyzeStability(ranked, StabilityOptions{RatioMin: 2, BalanceMax: 0.8}); r.Verdict != VerdictUnstable {
		t.Errorf("ratio 1.54 should fail 2, got %s", r.Verdict)
	}
}
