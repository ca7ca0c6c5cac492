// Package stats computes the descriptive summaries and linear models printed
// next to the charts.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"trialviz/pkg/domain"
)

// DefaultLevel is the confidence level used for intervals.
const DefaultLevel = 0.95

// Summary describes one sample.
type Summary struct {
	N     int     `json:"n"`
	Mean  float64 `json:"mean"`
	SD    float64 `json:"sd"`
	SE    float64 `json:"se"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Describe returns the mean, sample standard deviation, standard error and a
// t-based confidence interval at the given level. Non-finite values are
// ignored. With fewer than two values SD, SE and the interval are NaN.
func Describe(values []float64, level float64) Summary {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	s := Summary{N: len(finite), Mean: math.NaN(), SD: math.NaN(), SE: math.NaN(), Lower: math.NaN(), Upper: math.NaN()}
	switch len(finite) {
	case 0:
		return s
	case 1:
		s.Mean = finite[0]
		return s
	}
	s.Mean, s.SD = stat.MeanStdDev(finite, nil)
	s.SE = s.SD / math.Sqrt(float64(s.N))
	q := tQuantile(0.5+level/2, float64(s.N-1))
	s.Lower = s.Mean - q*s.SE
	s.Upper = s.Mean + q*s.SE
	return s
}

func tQuantile(p, df float64) float64 {
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile(p)
}

// Cell is the summary of one (group, time) cell of the long table.
type Cell struct {
	Group domain.Group     `json:"group"`
	Time  domain.TimePoint `json:"time"`
	Summary
}

// Summarize returns one cell per group and time label in canonical order.
// Cells without observations are omitted.
func Summarize(long domain.LongTable) []Cell {
	type key struct {
		g domain.Group
		t domain.TimePoint
	}
	buckets := make(map[key][]float64)
	for _, o := range long.Observations {
		k := key{o.Group, o.Time}
		buckets[k] = append(buckets[k], o.Value)
	}
	labels := long.TimeLabels
	if len(labels) == 0 {
		labels = domain.TimePoints
	}
	var cells []Cell
	for _, g := range domain.Groups {
		for _, tp := range labels {
			values, ok := buckets[key{g, tp}]
			if !ok {
				continue
			}
			cells = append(cells, Cell{Group: g, Time: tp, Summary: Describe(values, DefaultLevel)})
		}
	}
	return cells
}
