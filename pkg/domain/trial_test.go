package domain

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestGroupIndexAndParse(t *testing.T) {
	if GroupA.Index() != 0 || GroupB.Index() != 1 || Group("C").Index() != -1 {
		t.Fatalf("unexpected group indices")
	}
	g, err := ParseGroup(" B ")
	if err != nil || g != GroupB {
		t.Fatalf("ParseGroup(B) = %q, %v", g, err)
	}
	if _, err := ParseGroup("placebo"); err == nil {
		t.Fatalf("expected error for unknown group")
	}
}

func TestSubjectMeasurement(t *testing.T) {
	s := Subject{ID: 1, Group: GroupA, Baseline: 10, Post: 12}
	if v, ok := s.Measurement(ColumnPost); !ok || v != 12 {
		t.Fatalf("post = %v, %v", v, ok)
	}
	if _, ok := s.Measurement(ColumnGroup); ok {
		t.Fatalf("group is not a measurement")
	}
	if !s.SetMeasurement(ColumnBaseline, 11) || s.Baseline != 11 {
		t.Fatalf("SetMeasurement did not assign baseline")
	}
	if s.SetMeasurement("weight", 1) {
		t.Fatalf("unknown column accepted")
	}
}

func TestWideTableDerivedAndClone(t *testing.T) {
	wide := WideTable{Subjects: []Subject{
		{ID: 1, Group: GroupA, Baseline: 10, Post: 15},
		{ID: 2, Group: GroupB, Baseline: 20, Post: 10},
	}}
	if wide.Derived() {
		t.Fatalf("fresh table reported as derived")
	}
	wide.PercentChange = []float64{0.5, -0.5}
	wide.RankByChange = []int{1, 0}
	wide.RankByGroupThenChange = []int{0, 1}
	if !wide.Derived() {
		t.Fatalf("derived columns not detected")
	}
	clone := wide.Clone()
	clone.Subjects[0].Post = 99
	clone.PercentChange[0] = 9
	if wide.Subjects[0].Post != 15 || wide.PercentChange[0] != 0.5 {
		t.Fatalf("clone shares storage with the original")
	}
	if diff := cmp.Diff(map[Group]int{GroupA: 1, GroupB: 1}, wide.CountByGroup()); diff != "" {
		t.Fatalf("CountByGroup mismatch (-want +got):\n%s", diff)
	}
}

func TestTableConversion(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	wide := WideTable{
		Subjects:              []Subject{{ID: 1, Group: GroupA, Baseline: 0, Post: 5}},
		PercentChange:         []float64{math.Inf(1)},
		RankByChange:          []int{0},
		RankByGroupThenChange: []int{0},
	}
	tbl := wide.Table(now)
	if tbl.Name != TableSubjects || len(tbl.Schema) != 7 {
		t.Fatalf("unexpected wide table: %s with %d columns", tbl.Name, len(tbl.Schema))
	}
	if !tbl.GeneratedAt.Equal(now) || tbl.GeneratedAt.Location() != time.UTC {
		t.Fatalf("GeneratedAt not normalised to UTC: %v", tbl.GeneratedAt)
	}
	if v := tbl.Rows[0][ColumnPercentChange].(float64); !math.IsInf(v, 1) {
		t.Fatalf("percent change = %v", v)
	}

	underived := WideTable{Subjects: wide.Subjects}.Table(now)
	if underived.HasColumn(ColumnPercentChange) {
		t.Fatalf("underived table exposes percent_change")
	}

	long := LongTable{
		Observations: []Observation{{ID: 1, Group: GroupA, Time: TimeBaseline, Value: 0}, {ID: 1, Group: GroupA, Time: TimePost, Value: 5}},
		ValueColumns: MeasurementColumns,
		TimeLabels:   TimePoints,
	}
	lt := long.Table(now)
	if diff := cmp.Diff([]string{ColumnID, ColumnGroup, ColumnTime, ColumnValue}, lt.ColumnNames()); diff != "" {
		t.Fatalf("long columns mismatch (-want +got):\n%s", diff)
	}
	if lt.Rows[1][ColumnTime] != 1 {
		t.Fatalf("time column = %v", lt.Rows[1][ColumnTime])
	}
	if col, ok := long.ColumnFor(TimePost); !ok || col != ColumnPost {
		t.Fatalf("ColumnFor(post) = %q, %v", col, ok)
	}
}
