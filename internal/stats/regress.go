package stats

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"trialviz/pkg/domain"
)

// ErrUnknownTerm is returned for a response or predictor the wide table does not carry.
var ErrUnknownTerm = errors.New("stats: unknown term")

// Term is one estimated coefficient.
type Term struct {
	Name     string  `json:"name"`
	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_err"`
	T        float64 `json:"t"`
	P        float64 `json:"p"`
}

// Model is an ordinary least squares fit.
type Model struct {
	Formula    string  `json:"formula"`
	Terms      []Term  `json:"terms"`
	N          int     `json:"n"`
	DF         int     `json:"df"`
	RSquared   float64 `json:"r_squared"`
	AdjRSq     float64 `json:"adj_r_squared"`
	ResidualSE float64 `json:"residual_se"`
	Dropped    int     `json:"dropped"`
}

// Term returns the named coefficient.
func (m Model) Term(name string) (Term, bool) {
	for _, t := range m.Terms {
		if t.Name == name {
			return t, true
		}
	}
	return Term{}, false
}

// Reference models printed alongside the charts.
var (
	PostOnBaselineAndGroup = []string{domain.ColumnBaseline, domain.ColumnGroup}
	ChangeOnGroup          = []string{domain.ColumnGroup}
)

// GroupTerm names the treatment-coded indicator for group g.
func GroupTerm(g domain.Group) string { return "group" + string(g) }

func numericColumn(t domain.WideTable, name string) ([]float64, error) {
	out := make([]float64, t.Len())
	switch name {
	case domain.ColumnBaseline, domain.ColumnPost:
		for i, s := range t.Subjects {
			out[i], _ = s.Measurement(name)
		}
	case domain.ColumnPercentChange:
		if len(t.PercentChange) != t.Len() {
			return nil, fmt.Errorf("stats: %s not derived", name)
		}
		copy(out, t.PercentChange)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTerm, name)
	}
	return out, nil
}

// Regress fits response ~ 1 + predictors on the wide table. The group
// predictor is treatment coded with the first canonical group as reference.
// Rows with a non-finite response or predictor are dropped.
func Regress(t domain.WideTable, response string, predictors ...string) (Model, error) {
	y, err := numericColumn(t, response)
	if err != nil {
		return Model{}, err
	}
	names := []string{"(Intercept)"}
	columns := [][]float64{nil}
	for _, p := range predictors {
		if p == domain.ColumnGroup {
			for _, g := range domain.Groups[1:] {
				ind := make([]float64, t.Len())
				for i, s := range t.Subjects {
					if s.Group == g {
						ind[i] = 1
					}
				}
				names = append(names, GroupTerm(g))
				columns = append(columns, ind)
			}
			continue
		}
		col, err := numericColumn(t, p)
		if err != nil {
			return Model{}, err
		}
		names = append(names, p)
		columns = append(columns, col)
	}

	var rows []int
	for i := range y {
		ok := finite(y[i])
		for _, col := range columns[1:] {
			ok = ok && finite(col[i])
		}
		if ok {
			rows = append(rows, i)
		}
	}
	n, p := len(rows), len(names)
	if n <= p {
		return Model{}, fmt.Errorf("stats: %d usable rows for %d coefficients", n, p)
	}

	x := mat.NewDense(n, p, nil)
	yv := mat.NewVecDense(n, nil)
	for r, i := range rows {
		x.Set(r, 0, 1)
		for c := 1; c < p; c++ {
			x.Set(r, c, columns[c][i])
		}
		yv.SetVec(r, y[i])
	}

	var beta mat.VecDense
	if err := beta.SolveVec(x, yv); err != nil {
		return Model{}, fmt.Errorf("stats: solve: %w", err)
	}
	var fitted, resid mat.VecDense
	fitted.MulVec(x, &beta)
	resid.SubVec(yv, &fitted)

	df := n - p
	ssr := mat.Dot(&resid, &resid)
	mean := mat.Sum(yv) / float64(n)
	var sst float64
	for r := 0; r < n; r++ {
		d := yv.AtVec(r) - mean
		sst += d * d
	}
	sigma2 := ssr / float64(df)

	var xtx, cov mat.Dense
	xtx.Mul(x.T(), x)
	if err := cov.Inverse(&xtx); err != nil {
		return Model{}, fmt.Errorf("stats: singular design: %w", err)
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	terms := make([]Term, p)
	for c := range terms {
		est := beta.AtVec(c)
		se := math.Sqrt(sigma2 * cov.At(c, c))
		tv := est / se
		terms[c] = Term{
			Name:     names[c],
			Estimate: est,
			StdErr:   se,
			T:        tv,
			P:        2 * dist.Survival(math.Abs(tv)),
		}
	}

	r2 := math.NaN()
	adj := math.NaN()
	if sst > 0 {
		r2 = 1 - ssr/sst
		adj = 1 - (1-r2)*float64(n-1)/float64(df)
	}
	return Model{
		Formula:    response + " ~ " + strings.Join(predictors, " + "),
		Terms:      terms,
		N:          n,
		DF:         df,
		RSquared:   r2,
		AdjRSq:     adj,
		ResidualSE: math.Sqrt(sigma2),
		Dropped:    t.Len() - n,
	}, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
