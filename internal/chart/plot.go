// Package chart maps table columns onto visual channels and renders the
// trial figures with go-chart.
package chart

import (
	"fmt"

	"trialviz/pkg/datasetapi"
	"trialviz/pkg/domain"
)

// Geom is the geometric representation of a plot.
type Geom string

const (
	GeomPointRange Geom = "point_range"
	GeomLine       Geom = "line"
	GeomBar        Geom = "bar"
)

// Stat is the summary applied to y before drawing.
type Stat string

const (
	StatIdentity Stat = "identity"
	StatMeanCI   Stat = "mean_ci"
)

// Layout names the table shape a plot reads from.
type Layout string

const (
	LayoutLong Layout = "long"
	LayoutWide Layout = "wide"
)

// Mapping binds table columns to channels. Empty channels are unused.
type Mapping struct {
	X     string `json:"x"`
	Y     string `json:"y"`
	Color string `json:"color,omitempty"`
	Group string `json:"group,omitempty"`
	Facet string `json:"facet,omitempty"`
}

// Default canvas size.
const (
	DefaultWidth  = 960
	DefaultHeight = 600
)

// Plot declares one figure.
type Plot struct {
	Name    string
	Title   string
	XLabel  string
	YLabel  string
	Layout  Layout
	Mapping Mapping
	Geom    Geom
	Stat    Stat
	Width   int
	Height  int
	Format  datasetapi.Format
}

// Figure is a rendered plot.
type Figure struct {
	Name        string
	Format      datasetapi.Format
	ContentType string
	Width       int
	Height      int
	Data        []byte
}

// FileName is the figure name with the format extension.
func (f Figure) FileName() string { return f.Name + f.Format.Extension() }

func (p Plot) withDefaults() Plot {
	if p.Width <= 0 {
		p.Width = DefaultWidth
	}
	if p.Height <= 0 {
		p.Height = DefaultHeight
	}
	if p.Format == "" {
		p.Format = datasetapi.FormatPNG
	}
	if p.Stat == "" {
		p.Stat = StatIdentity
	}
	if p.Layout == "" {
		p.Layout = LayoutLong
	}
	return p
}

func (p Plot) validate() error {
	if p.Name == "" {
		return fmt.Errorf("chart: plot name required")
	}
	if p.Format != datasetapi.FormatPNG && p.Format != datasetapi.FormatSVG {
		return fmt.Errorf("chart: %s: unsupported format %q", p.Name, p.Format)
	}
	if p.Mapping.Facet != "" && p.Format != datasetapi.FormatPNG {
		return fmt.Errorf("chart: %s: faceted plots render to png only", p.Name)
	}
	switch p.Geom {
	case GeomLine:
	case GeomPointRange:
		if p.Stat != StatMeanCI {
			return fmt.Errorf("chart: %s: point_range needs the mean_ci stat", p.Name)
		}
	case GeomBar:
		if p.Stat != StatIdentity {
			return fmt.Errorf("chart: %s: bar supports the identity stat only", p.Name)
		}
		if p.Mapping.Facet != "" {
			return fmt.Errorf("chart: %s: bar cannot be faceted", p.Name)
		}
	default:
		return fmt.Errorf("chart: %s: unsupported geometry %q", p.Name, p.Geom)
	}
	if p.Stat != StatIdentity && p.Stat != StatMeanCI {
		return fmt.Errorf("chart: %s: unsupported stat %q", p.Name, p.Stat)
	}
	return nil
}

// Preset names.
const (
	PresetSummaryPointRange = "summary_point_range"
	PresetConnectedMeans    = "connected_means"
	PresetSpaghetti         = "spaghetti"
	PresetFaceted           = "faceted"
	PresetOrderedBar        = "ordered_bar"
)

// Catalog returns the five teaching figures.
func Catalog() []Plot {
	return []Plot{
		{
			Name:    PresetSummaryPointRange,
			Title:   "Mean and 95% CI by group",
			XLabel:  "time",
			YLabel:  "value",
			Layout:  LayoutLong,
			Mapping: Mapping{X: domain.ColumnTime, Y: domain.ColumnValue, Color: domain.ColumnGroup},
			Geom:    GeomPointRange,
			Stat:    StatMeanCI,
		},
		{
			Name:    PresetConnectedMeans,
			Title:   "Group means over time",
			XLabel:  "time",
			YLabel:  "mean value",
			Layout:  LayoutLong,
			Mapping: Mapping{X: domain.ColumnTime, Y: domain.ColumnValue, Color: domain.ColumnGroup},
			Geom:    GeomLine,
			Stat:    StatMeanCI,
		},
		{
			Name:    PresetSpaghetti,
			Title:   "Individual trajectories",
			XLabel:  "time",
			YLabel:  "value",
			Layout:  LayoutLong,
			Mapping: Mapping{X: domain.ColumnTime, Y: domain.ColumnValue, Color: domain.ColumnGroup, Group: domain.ColumnID},
			Geom:    GeomLine,
			Stat:    StatIdentity,
		},
		{
			Name:    PresetFaceted,
			Title:   "Individual trajectories by group",
			XLabel:  "time",
			YLabel:  "value",
			Layout:  LayoutLong,
			Mapping: Mapping{X: domain.ColumnTime, Y: domain.ColumnValue, Color: domain.ColumnGroup, Group: domain.ColumnID, Facet: domain.ColumnGroup},
			Geom:    GeomLine,
			Stat:    StatIdentity,
		},
		{
			Name:    PresetOrderedBar,
			Title:   "Percent change per subject",
			XLabel:  "subject (ordered by group, then change)",
			YLabel:  "percent change",
			Layout:  LayoutWide,
			Mapping: Mapping{X: domain.ColumnRankByGroupThenChange, Y: domain.ColumnPercentChange, Color: domain.ColumnGroup},
			Geom:    GeomBar,
			Stat:    StatIdentity,
		},
	}
}

// Lookup returns the catalog preset with the given name.
func Lookup(name string) (Plot, bool) {
	for _, p := range Catalog() {
		if p.Name == name {
			return p, true
		}
	}
	return Plot{}, false
}
