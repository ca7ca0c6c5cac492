package chart

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"trialviz/pkg/domain"
)

// ErrUnknownColumn is returned when a mapping names a column the frame lacks.
var ErrUnknownColumn = errors.New("chart: unknown column")

// Frame is read-only column access over a table.
type Frame interface {
	Len() int
	Has(column string) bool
	// Number returns the numeric value of a cell, NaN for non-numeric cells.
	Number(column string, i int) float64
	// Label returns the categorical value of a cell.
	Label(column string, i int) string
}

// LongFrame adapts a long table.
type LongFrame struct{ Table domain.LongTable }

func (f LongFrame) Len() int { return f.Table.Len() }

func (f LongFrame) Has(column string) bool {
	switch column {
	case domain.ColumnID, domain.ColumnGroup, domain.ColumnTime, domain.ColumnValue:
		return true
	}
	return false
}

func (f LongFrame) Number(column string, i int) float64 {
	o := f.Table.Observations[i]
	switch column {
	case domain.ColumnID:
		return float64(o.ID)
	case domain.ColumnTime:
		return float64(o.Time)
	case domain.ColumnValue:
		return o.Value
	}
	return math.NaN()
}

func (f LongFrame) Label(column string, i int) string {
	o := f.Table.Observations[i]
	switch column {
	case domain.ColumnID:
		return strconv.Itoa(o.ID)
	case domain.ColumnGroup:
		return string(o.Group)
	case domain.ColumnTime:
		return o.Time.String()
	case domain.ColumnValue:
		return strconv.FormatFloat(o.Value, 'g', -1, 64)
	}
	return ""
}

// WideFrame adapts a wide table. Derived columns are available once the
// table has been derived.
type WideFrame struct{ Table domain.WideTable }

func (f WideFrame) Len() int { return f.Table.Len() }

func (f WideFrame) Has(column string) bool {
	switch column {
	case domain.ColumnID, domain.ColumnGroup, domain.ColumnBaseline, domain.ColumnPost:
		return true
	case domain.ColumnPercentChange, domain.ColumnRankByChange, domain.ColumnRankByGroupThenChange:
		return f.Table.Derived()
	}
	return false
}

func (f WideFrame) Number(column string, i int) float64 {
	s := f.Table.Subjects[i]
	switch column {
	case domain.ColumnID:
		return float64(s.ID)
	case domain.ColumnBaseline:
		return s.Baseline
	case domain.ColumnPost:
		return s.Post
	case domain.ColumnPercentChange:
		return f.Table.PercentChange[i]
	case domain.ColumnRankByChange:
		return float64(f.Table.RankByChange[i])
	case domain.ColumnRankByGroupThenChange:
		return float64(f.Table.RankByGroupThenChange[i])
	}
	return math.NaN()
}

func (f WideFrame) Label(column string, i int) string {
	if column == domain.ColumnGroup {
		return string(f.Table.Subjects[i].Group)
	}
	if column == domain.ColumnID {
		return strconv.Itoa(f.Table.Subjects[i].ID)
	}
	return strconv.FormatFloat(f.Number(column, i), 'g', -1, 64)
}

func checkColumns(f Frame, m Mapping) error {
	if m.X == "" || m.Y == "" {
		return errors.New("chart: mapping needs x and y")
	}
	for _, c := range []string{m.X, m.Y, m.Color, m.Group, m.Facet} {
		if c != "" && !f.Has(c) {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
	}
	return nil
}
