// Package domain defines the subject, observation and table types shared by
// the trialviz pipeline.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Group identifies the trial arm a subject was assigned to.
type Group string

// Trial arms in canonical order.
const (
	GroupA Group = "A"
	GroupB Group = "B"
)

// Groups lists every arm in canonical order. Ranking by group uses this order.
var Groups = []Group{GroupA, GroupB}

// Index returns the canonical position of the group, or -1 when unknown.
func (g Group) Index() int {
	for i, candidate := range Groups {
		if candidate == g {
			return i
		}
	}
	return -1
}

// Valid reports whether g is a known arm.
func (g Group) Valid() bool { return g.Index() >= 0 }

// ParseGroup validates an arm label.
func ParseGroup(s string) (Group, error) {
	g := Group(strings.TrimSpace(s))
	if !g.Valid() {
		return "", fmt.Errorf("unknown group %q", s)
	}
	return g, nil
}

// TimePoint identifies a measurement occasion.
type TimePoint int

// Measurement occasions.
const (
	TimeBaseline TimePoint = 0
	TimePost     TimePoint = 1
)

// TimePoints lists the occasions in order.
var TimePoints = []TimePoint{TimeBaseline, TimePost}

func (t TimePoint) String() string { return strconv.Itoa(int(t)) }

// Valid reports whether t is a known occasion.
func (t TimePoint) Valid() bool { return t == TimeBaseline || t == TimePost }

// Column names of the tabular contract.
const (
	ColumnID                    = "id"
	ColumnGroup                 = "group"
	ColumnBaseline              = "baseline"
	ColumnPost                  = "post"
	ColumnPercentChange         = "percent_change"
	ColumnRankByChange          = "rank_by_change"
	ColumnRankByGroupThenChange = "rank_by_group_then_change"
	ColumnTime                  = "time"
	ColumnValue                 = "value"
)

// MeasurementColumns lists the wide-format measurement columns in time order.
var MeasurementColumns = []string{ColumnBaseline, ColumnPost}

// Subject is the wide record: one row per subject.
type Subject struct {
	ID       int     `json:"id"`
	Group    Group   `json:"group"`
	Baseline float64 `json:"baseline"`
	Post     float64 `json:"post"`
}

// Measurement returns the named measurement column.
func (s Subject) Measurement(column string) (float64, bool) {
	switch column {
	case ColumnBaseline:
		return s.Baseline, true
	case ColumnPost:
		return s.Post, true
	default:
		return 0, false
	}
}

// SetMeasurement assigns the named measurement column.
func (s *Subject) SetMeasurement(column string, value float64) bool {
	switch column {
	case ColumnBaseline:
		s.Baseline = value
	case ColumnPost:
		s.Post = value
	default:
		return false
	}
	return true
}

// Observation is the long record: one row per subject per occasion.
type Observation struct {
	ID    int       `json:"id"`
	Group Group     `json:"group"`
	Time  TimePoint `json:"time"`
	Value float64   `json:"value"`
}

// WideTable holds subjects plus derived columns. Derived columns are stored
// column-wise, index-aligned with Subjects, and stay nil until derived.
type WideTable struct {
	Subjects              []Subject `json:"subjects"`
	PercentChange         []float64 `json:"percent_change,omitempty"`
	RankByChange          []int     `json:"rank_by_change,omitempty"`
	RankByGroupThenChange []int     `json:"rank_by_group_then_change,omitempty"`
}

// Len returns the number of subjects.
func (t WideTable) Len() int { return len(t.Subjects) }

// Derived reports whether every derived column is populated.
func (t WideTable) Derived() bool {
	n := len(t.Subjects)
	return n > 0 && len(t.PercentChange) == n && len(t.RankByChange) == n && len(t.RankByGroupThenChange) == n
}

// GroupColumn returns the group of every subject in row order.
func (t WideTable) GroupColumn() []Group {
	out := make([]Group, len(t.Subjects))
	for i, s := range t.Subjects {
		out[i] = s.Group
	}
	return out
}

// CountByGroup tallies subjects per arm.
func (t WideTable) CountByGroup() map[Group]int {
	counts := make(map[Group]int, len(Groups))
	for _, s := range t.Subjects {
		counts[s.Group]++
	}
	return counts
}

// Clone returns a deep copy.
func (t WideTable) Clone() WideTable {
	return WideTable{
		Subjects:              append([]Subject(nil), t.Subjects...),
		PercentChange:         append([]float64(nil), t.PercentChange...),
		RankByChange:          append([]int(nil), t.RankByChange...),
		RankByGroupThenChange: append([]int(nil), t.RankByGroupThenChange...),
	}
}

// LongTable holds observations along with the measurement columns and time
// labels that produced them, so the reshape can be inverted.
type LongTable struct {
	Observations []Observation `json:"observations"`
	ValueColumns []string      `json:"value_columns"`
	TimeLabels   []TimePoint   `json:"time_labels"`
}

// Len returns the number of observations.
func (t LongTable) Len() int { return len(t.Observations) }

// ColumnFor returns the measurement column that maps to the time label.
func (t LongTable) ColumnFor(time TimePoint) (string, bool) {
	for i, label := range t.TimeLabels {
		if label == time && i < len(t.ValueColumns) {
			return t.ValueColumns[i], true
		}
	}
	return "", false
}
