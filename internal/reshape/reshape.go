// Package reshape converts the trial dataset between wide (one row per
// subject) and long (one row per subject per occasion) layouts.
package reshape

import (
	"errors"
	"fmt"

	"trialviz/pkg/domain"
)

var (
	// ErrMissingTime is returned when a subject lacks an observation for a time label.
	ErrMissingTime = errors.New("reshape: missing observation")
	// ErrDuplicateTime is returned when a subject has two observations for one time label.
	ErrDuplicateTime = errors.New("reshape: duplicate observation")
)

// PivotError describes which subject and occasion broke a pivot.
type PivotError struct {
	ID   int
	Time domain.TimePoint
	Err  error
}

func (e *PivotError) Error() string {
	return fmt.Sprintf("%v for subject %d at time %s", e.Err, e.ID, e.Time)
}

func (e *PivotError) Unwrap() error { return e.Err }

// ToLong melts the wide table: valueColumns[i] becomes the observation at
// timeLabels[i]. Rows are emitted in subject order, then label order, and id
// and group are copied onto every row.
func ToLong(wide domain.WideTable, valueColumns []string, timeLabels []domain.TimePoint) (domain.LongTable, error) {
	if len(valueColumns) == 0 {
		return domain.LongTable{}, errors.New("reshape: no value columns")
	}
	if len(valueColumns) != len(timeLabels) {
		return domain.LongTable{}, fmt.Errorf("reshape: %d value columns but %d time labels", len(valueColumns), len(timeLabels))
	}
	seenLabel := make(map[domain.TimePoint]struct{}, len(timeLabels))
	for _, label := range timeLabels {
		if _, dup := seenLabel[label]; dup {
			return domain.LongTable{}, fmt.Errorf("reshape: time label %s listed twice", label)
		}
		seenLabel[label] = struct{}{}
	}
	seenColumn := make(map[string]struct{}, len(valueColumns))
	for _, column := range valueColumns {
		if _, ok := (domain.Subject{}).Measurement(column); !ok {
			return domain.LongTable{}, fmt.Errorf("reshape: %q is not a measurement column", column)
		}
		if _, dup := seenColumn[column]; dup {
			return domain.LongTable{}, fmt.Errorf("reshape: value column %q listed twice", column)
		}
		seenColumn[column] = struct{}{}
	}

	out := make([]domain.Observation, 0, len(wide.Subjects)*len(valueColumns))
	for _, s := range wide.Subjects {
		for i, column := range valueColumns {
			value, _ := s.Measurement(column)
			out = append(out, domain.Observation{
				ID:    s.ID,
				Group: s.Group,
				Time:  timeLabels[i],
				Value: value,
			})
		}
	}
	return domain.LongTable{
		Observations: out,
		ValueColumns: append([]string(nil), valueColumns...),
		TimeLabels:   append([]domain.TimePoint(nil), timeLabels...),
	}, nil
}

// ToLongDefault melts baseline/post into times 0/1.
func ToLongDefault(wide domain.WideTable) (domain.LongTable, error) {
	return ToLong(wide, domain.MeasurementColumns, domain.TimePoints)
}

// ToWide pivots the long table back by id and time. Subjects appear in order
// of first appearance. Stored values are copied without transformation, so a
// wide -> long -> wide round trip is exact.
func ToWide(long domain.LongTable) (domain.WideTable, error) {
	if len(long.ValueColumns) == 0 || len(long.ValueColumns) != len(long.TimeLabels) {
		return domain.WideTable{}, errors.New("reshape: long table lacks a column/time mapping")
	}

	index := make(map[int]int)
	filled := make(map[int]map[domain.TimePoint]bool)
	var subjects []domain.Subject
	for _, o := range long.Observations {
		column, ok := long.ColumnFor(o.Time)
		if !ok {
			return domain.WideTable{}, fmt.Errorf("reshape: time %s has no value column", o.Time)
		}
		pos, seen := index[o.ID]
		if !seen {
			pos = len(subjects)
			index[o.ID] = pos
			filled[o.ID] = make(map[domain.TimePoint]bool, len(long.TimeLabels))
			subjects = append(subjects, domain.Subject{ID: o.ID, Group: o.Group})
		}
		if subjects[pos].Group != o.Group {
			return domain.WideTable{}, fmt.Errorf("reshape: subject %d has groups %s and %s", o.ID, subjects[pos].Group, o.Group)
		}
		if filled[o.ID][o.Time] {
			return domain.WideTable{}, &PivotError{ID: o.ID, Time: o.Time, Err: ErrDuplicateTime}
		}
		filled[o.ID][o.Time] = true
		subjects[pos].SetMeasurement(column, o.Value)
	}

	for _, s := range subjects {
		for _, label := range long.TimeLabels {
			if !filled[s.ID][label] {
				return domain.WideTable{}, &PivotError{ID: s.ID, Time: label, Err: ErrMissingTime}
			}
		}
	}
	return domain.WideTable{Subjects: subjects}, nil
}
