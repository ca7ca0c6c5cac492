package stats

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"trialviz/internal/derive"
	"trialviz/internal/reshape"
	"trialviz/internal/simulate"
	"trialviz/pkg/domain"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestDescribe(t *testing.T) {
	s := Describe([]float64{1, 2, 3, 4, 5, math.NaN(), math.Inf(1)}, DefaultLevel)
	if s.N != 5 || !near(s.Mean, 3, 1e-12) {
		t.Fatalf("unexpected summary %+v", s)
	}
	if !near(s.SD, math.Sqrt(2.5), 1e-12) || !near(s.SE, math.Sqrt(0.5), 1e-12) {
		t.Fatalf("unexpected spread %+v", s)
	}
	// t(0.975, 4) = 2.776445
	if !near(s.Upper-s.Mean, 2.776445*math.Sqrt(0.5), 1e-5) || !near(s.Mean-s.Lower, s.Upper-s.Mean, 1e-12) {
		t.Fatalf("unexpected interval %+v", s)
	}

	single := Describe([]float64{7}, DefaultLevel)
	if single.Mean != 7 || !math.IsNaN(single.SD) || !math.IsNaN(single.Lower) {
		t.Fatalf("single value summary %+v", single)
	}
	if empty := Describe(nil, DefaultLevel); empty.N != 0 || !math.IsNaN(empty.Mean) {
		t.Fatalf("empty summary %+v", empty)
	}
}

func TestSummarizeCellsInCanonicalOrder(t *testing.T) {
	wide, err := simulate.Generate(simulate.DefaultConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	long, err := reshape.ToLongDefault(wide)
	if err != nil {
		t.Fatalf("ToLong: %v", err)
	}
	cells := Summarize(long)
	if len(cells) != 4 {
		t.Fatalf("expected 4 cells, got %d", len(cells))
	}
	wantOrder := []struct {
		g  domain.Group
		tp domain.TimePoint
	}{{domain.GroupA, 0}, {domain.GroupA, 1}, {domain.GroupB, 0}, {domain.GroupB, 1}}
	for i, c := range cells {
		if c.Group != wantOrder[i].g || c.Time != wantOrder[i].tp || c.N != 35 {
			t.Fatalf("cell %d: %+v", i, c)
		}
		if !(c.Lower < c.Mean && c.Mean < c.Upper) {
			t.Fatalf("cell %d interval does not bracket mean: %+v", i, c)
		}
	}
	var sum float64
	for _, s := range wide.Subjects[:35] {
		sum += s.Baseline
	}
	if !near(cells[0].Mean, sum/35, 1e-9) {
		t.Fatalf("group A baseline mean %v want %v", cells[0].Mean, sum/35)
	}
}

func TestRegressSimpleLine(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{2, 4, 5, 4, 5}
	var table domain.WideTable
	for i := range xs {
		table.Subjects = append(table.Subjects, domain.Subject{ID: i + 1, Group: domain.GroupA, Baseline: xs[i], Post: ys[i]})
	}
	m, err := Regress(table, domain.ColumnPost, domain.ColumnBaseline)
	if err != nil {
		t.Fatalf("Regress: %v", err)
	}
	intercept, _ := m.Term("(Intercept)")
	slope, ok := m.Term(domain.ColumnBaseline)
	if !ok || !near(intercept.Estimate, 2.2, 1e-9) || !near(slope.Estimate, 0.6, 1e-9) {
		t.Fatalf("unexpected coefficients %+v", m.Terms)
	}
	if m.N != 5 || m.DF != 3 || !near(m.RSquared, 0.6, 1e-9) {
		t.Fatalf("unexpected fit %+v", m)
	}
	// sigma^2 = 2.4/3, se(slope) = sqrt(sigma^2 / Sxx) with Sxx = 10
	if !near(slope.StdErr, math.Sqrt(0.8/10), 1e-9) {
		t.Fatalf("slope se %v", slope.StdErr)
	}
	if slope.P <= 0 || slope.P >= 1 {
		t.Fatalf("slope p %v", slope.P)
	}
}

func TestRegressGroupEffectMatchesMeans(t *testing.T) {
	wide, err := simulate.Generate(simulate.DefaultConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	derive.Apply(&wide)
	m, err := Regress(wide, domain.ColumnPercentChange, ChangeOnGroup...)
	if err != nil {
		t.Fatalf("Regress: %v", err)
	}
	a := Describe(wide.PercentChange[:35], DefaultLevel)
	b := Describe(wide.PercentChange[35:], DefaultLevel)
	intercept, _ := m.Term("(Intercept)")
	effect, ok := m.Term(GroupTerm(domain.GroupB))
	if !ok || !near(intercept.Estimate, a.Mean, 1e-9) || !near(effect.Estimate, b.Mean-a.Mean, 1e-9) {
		t.Fatalf("group model %+v does not match means %v %v", m.Terms, a.Mean, b.Mean)
	}

	full, err := Regress(wide, domain.ColumnPost, PostOnBaselineAndGroup...)
	if err != nil {
		t.Fatalf("Regress: %v", err)
	}
	if len(full.Terms) != 3 || full.DF != 67 {
		t.Fatalf("unexpected full model %+v", full)
	}
	var buf bytes.Buffer
	if err := WriteTable(&buf, full, m); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"post ~ baseline + group", "percent_change ~ group", "groupB", "(Intercept)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRegressDropsNonFiniteRows(t *testing.T) {
	table := domain.WideTable{Subjects: []domain.Subject{
		{ID: 1, Group: domain.GroupA, Baseline: 10, Post: 11},
		{ID: 2, Group: domain.GroupA, Baseline: 0, Post: 3},
		{ID: 3, Group: domain.GroupA, Baseline: 20, Post: 21},
		{ID: 4, Group: domain.GroupB, Baseline: 10, Post: 14},
		{ID: 5, Group: domain.GroupB, Baseline: 20, Post: 23},
	}}
	derive.Apply(&table)
	m, err := Regress(table, domain.ColumnPercentChange, ChangeOnGroup...)
	if err != nil {
		t.Fatalf("Regress: %v", err)
	}
	if m.Dropped != 1 || m.N != 4 {
		t.Fatalf("expected one dropped row, got %+v", m)
	}
}

func TestRegressErrors(t *testing.T) {
	table := domain.WideTable{Subjects: []domain.Subject{{ID: 1, Group: domain.GroupA, Baseline: 1, Post: 2}}}
	if _, err := Regress(table, "weight"); !errors.Is(err, ErrUnknownTerm) {
		t.Fatalf("expected ErrUnknownTerm, got %v", err)
	}
	if _, err := Regress(table, domain.ColumnPercentChange); err == nil {
		t.Fatalf("expected error for underived column")
	}
	if _, err := Regress(table, domain.ColumnPost, domain.ColumnBaseline); err == nil {
		t.Fatalf("expected error for too few rows")
	}
}

func TestWriteCells(t *testing.T) {
	var buf bytes.Buffer
	cells := []Cell{{Group: domain.GroupA, Time: domain.TimePost, Summary: Describe([]float64{1, 2, 3}, DefaultLevel)}}
	if err := WriteCells(&buf, cells); err != nil {
		t.Fatalf("WriteCells: %v", err)
	}
	if !strings.Contains(buf.String(), "mean") || !strings.Contains(buf.String(), "2.000") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}
