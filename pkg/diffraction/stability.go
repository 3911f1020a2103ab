package diffraction

import (
	"fmt"
	"math"
)

// Stability defaults
const (
	DefaultRatioMin   = 1.35
	DefaultBalanceMax = 0.80
)

// StabilityOptions holds the acceptance thresholds
type StabilityOptions struct {
	RatioMin   float64 // R > 1
	BalanceMax float64 // τ in [0, 1]
}

// DefaultStabilityOptions returns the default thresholds
func DefaultStabilityOptions() StabilityOptions {
	return StabilityOptions{RatioMin: DefaultRatioMin, BalanceMax: DefaultBalanceMax}
}

// AnalyzeStability applies the dominance and balance tests to ranked,
// admitted candidates.
//
// STABLE requires top/runner-up ≥ RatioMin and a top balance ≤ BalanceMax.
// With fewer than two candidates the verdict is INDETERMINATE: dominance is
// not tested, but the balance of a lone candidate is still reported.
func AnalyzeStability(ranked []Candidate, opts StabilityOptions) StabilityReport {
	report := StabilityReport{Admitted: len(ranked)}

	if len(ranked) == 0 {
		report.Verdict = VerdictIndeterminate
		report.Balance = 1
		report.Reasons = []string{"no candidates in scope"}
		return report
	}

	top := ranked[0]
	report.Top = &top
	report.Balance = top.Balance()

	if len(ranked) < 2 {
		report.Verdict = VerdictIndeterminate
		report.Reasons = []string{"single candidate in scope, dominance not tested"}
		if report.Balance > opts.BalanceMax {
			report.Reasons = append(report.Reasons, balanceReason(report.Balance, opts.BalanceMax))
		}
		return report
	}

	runnerUp := ranked[1]
	report.RunnerUp = &runnerUp
	if runnerUp.Score > 0 {
		report.Ratio = top.Score / runnerUp.Score
	} else {
		report.Ratio = math.Inf(1)
	}

	if report.Ratio < opts.RatioMin {
		report.Reasons = append(report.Reasons,
			fmt.Sprintf("low top1/top2 ratio (%.2f < %.2f)", report.Ratio, opts.RatioMin))
	}
	if report.Balance > opts.BalanceMax {
		report.Reasons = append(report.Reasons, balanceReason(report.Balance, opts.BalanceMax))
	}

	if len(report.Reasons) == 0 {
		report.Verdict = VerdictStable
	} else {
		report.Verdict = VerdictUnstable
	}
	return report
}

func balanceReason(balance, max float64) string {
	return fmt.Sprintf("high pa/pb imbalance (%.2f > %.2f)", balance, max)
}
