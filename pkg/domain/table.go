package domain

import (
	"time"

	"trialviz/pkg/datasetapi"
)

// Table names used when exporting.
const (
	TableSubjects     = "subjects"
	TableMeasurements = "measurements"
)

// WideSchema returns the columns of the wide table. Derived columns are
// included only when requested.
func WideSchema(derived bool) []datasetapi.Column {
	cols := []datasetapi.Column{
		{Name: ColumnID, Type: "integer", Description: "subject identifier"},
		{Name: ColumnGroup, Type: "string", Description: "trial arm"},
		{Name: ColumnBaseline, Type: "number", Description: "measurement at time 0"},
		{Name: ColumnPost, Type: "number", Description: "measurement at time 1"},
	}
	if derived {
		cols = append(cols,
			datasetapi.Column{Name: ColumnPercentChange, Type: "number", Unit: "ratio", Description: "post/baseline - 1"},
			datasetapi.Column{Name: ColumnRankByChange, Type: "integer", Description: "dense rank by percent change"},
			datasetapi.Column{Name: ColumnRankByGroupThenChange, Type: "integer", Description: "dense rank by group then percent change"},
		)
	}
	return cols
}

// LongSchema returns the columns of the long table.
func LongSchema() []datasetapi.Column {
	return []datasetapi.Column{
		{Name: ColumnID, Type: "integer", Description: "subject identifier"},
		{Name: ColumnGroup, Type: "string", Description: "trial arm"},
		{Name: ColumnTime, Type: "integer", Description: "measurement occasion"},
		{Name: ColumnValue, Type: "number", Description: "measurement value"},
	}
}

// Table converts the wide table into the tabular contract.
func (t WideTable) Table(now time.Time) datasetapi.Table {
	derived := t.Derived()
	rows := make([]map[string]any, len(t.Subjects))
	for i, s := range t.Subjects {
		row := map[string]any{
			ColumnID:       s.ID,
			ColumnGroup:    string(s.Group),
			ColumnBaseline: s.Baseline,
			ColumnPost:     s.Post,
		}
		if derived {
			row[ColumnPercentChange] = t.PercentChange[i]
			row[ColumnRankByChange] = t.RankByChange[i]
			row[ColumnRankByGroupThenChange] = t.RankByGroupThenChange[i]
		}
		rows[i] = row
	}
	return datasetapi.Table{
		Name:        TableSubjects,
		Schema:      WideSchema(derived),
		Rows:        rows,
		Metadata:    map[string]any{"subjects": len(t.Subjects), "derived": derived},
		GeneratedAt: now.UTC(),
	}
}

// Table converts the long table into the tabular contract.
func (t LongTable) Table(now time.Time) datasetapi.Table {
	rows := make([]map[string]any, len(t.Observations))
	for i, o := range t.Observations {
		rows[i] = map[string]any{
			ColumnID:    o.ID,
			ColumnGroup: string(o.Group),
			ColumnTime:  int(o.Time),
			ColumnValue: o.Value,
		}
	}
	return datasetapi.Table{
		Name:        TableMeasurements,
		Schema:      LongSchema(),
		Rows:        rows,
		Metadata:    map[string]any{"observations": len(t.Observations), "value_columns": append([]string(nil), t.ValueColumns...)},
		GeneratedAt: now.UTC(),
	}
}
