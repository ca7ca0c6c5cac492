// Package derive computes percent change and the rank orderings used to lay
// out subjects in charts.
package derive

import (
	"errors"
	"math"

	"trialviz/pkg/domain"
)

// ErrZeroBaseline signals that percent change is undefined for a zero baseline.
var ErrZeroBaseline = errors.New("derive: zero baseline")

// PercentChange returns post/baseline - 1. A zero baseline yields
// ErrZeroBaseline together with +Inf or -Inf (following the sign of post), or
// NaN when post is also zero.
func PercentChange(baseline, post float64) (float64, error) {
	if baseline == 0 {
		switch {
		case post > 0:
			return math.Inf(1), ErrZeroBaseline
		case post < 0:
			return math.Inf(-1), ErrZeroBaseline
		default:
			return math.NaN(), ErrZeroBaseline
		}
	}
	return post/baseline - 1, nil
}

// Report summarises a derivation pass.
type Report struct {
	// ZeroBaseline lists subject IDs whose percent change is non-finite.
	ZeroBaseline []int
}

// Apply fills the derived columns of t in place. Zero baselines do not abort
// the pass; their IDs are collected in the report.
func Apply(t *domain.WideTable) Report {
	var rep Report
	pc := make([]float64, len(t.Subjects))
	for i, s := range t.Subjects {
		v, err := PercentChange(s.Baseline, s.Post)
		if err != nil {
			rep.ZeroBaseline = append(rep.ZeroBaseline, s.ID)
		}
		pc[i] = v
	}
	t.PercentChange = pc
	t.RankByChange = RankByChange(pc)
	t.RankByGroupThenChange = RankByGroupThenChange(t.GroupColumn(), pc)
	return rep
}
