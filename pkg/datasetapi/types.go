// Package datasetapi defines the in-memory tabular contract shared by the
// pipeline, the exporters and the archive sinks.
package datasetapi

import (
	"fmt"
	"math"
	"time"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatXLSX Format = "xlsx"
	FormatPNG  Format = "png"
	FormatSVG  Format = "svg"
)

// Extension returns the file extension used when storing an artifact.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	case FormatHTML:
		return "text/html"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPNG:
		return "image/png"
	case FormatSVG:
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatCSV, FormatHTML, FormatXLSX, FormatPNG, FormatSVG:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Unit        string `json:"unit,omitempty"`
	Description string `json:"description,omitempty"`
}

// Table is a named, schema-described set of rows. Row values are keyed by
// column name.
type Table struct {
	Name        string           `json:"name"`
	Schema      []Column         `json:"schema"`
	Rows        []map[string]any `json:"rows"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// ColumnNames returns the schema column names in order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Schema))
	for i, column := range t.Schema {
		names[i] = column.Name
	}
	return names
}

// HasColumn reports whether the schema declares the named column.
func (t Table) HasColumn(name string) bool {
	for _, column := range t.Schema {
		if column.Name == name {
			return true
		}
	}
	return false
}

// FormatValue renders a cell for text outputs. Non-finite floats render as
// "NA" so that CSV and HTML consumers can treat them as missing.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	case float32:
		return formatFloat(float64(v))
	case float64:
		return formatFloat(v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NA"
	}
	return fmt.Sprintf("%g", v)
}

// JSONSafe replaces non-finite floats, which encoding/json rejects, with nil.
func JSONSafe(value any) any {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil
		}
	}
	return value
}
