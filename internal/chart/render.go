package chart

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	chart "github.com/wcharczuk/go-chart/v2"

	"trialviz/internal/stats"
	"trialviz/pkg/datasetapi"
	"trialviz/pkg/domain"
)

// Render draws plot from frame. It is a pure function of its inputs.
func Render(frame Frame, plot Plot) (Figure, error) {
	plot = plot.withDefaults()
	if err := plot.validate(); err != nil {
		return Figure{}, err
	}
	if frame == nil || frame.Len() == 0 {
		return Figure{}, fmt.Errorf("chart: %s: empty frame", plot.Name)
	}
	if err := checkColumns(frame, plot.Mapping); err != nil {
		return Figure{}, fmt.Errorf("chart: %s: %w", plot.Name, err)
	}

	rows := make([]int, frame.Len())
	for i := range rows {
		rows[i] = i
	}

	var (
		data []byte
		err  error
	)
	switch {
	case plot.Mapping.Facet != "":
		data, err = renderFacets(frame, rows, plot)
	case plot.Geom == GeomBar:
		data, err = renderBars(frame, rows, plot)
	default:
		var l layers
		l, err = buildLayers(frame, rows, levels(frame, plot.Mapping.Color, rows), plot)
		if err == nil {
			data, err = renderXY(l, plot, plot.Title, plot.Width, plot.Height, nil)
		}
	}
	if err != nil {
		return Figure{}, fmt.Errorf("chart: %s: %w", plot.Name, err)
	}
	return Figure{
		Name:        plot.Name,
		Format:      plot.Format,
		ContentType: plot.Format.ContentType(),
		Width:       plot.Width,
		Height:      plot.Height,
		Data:        data,
	}, nil
}

// RenderCatalog renders each plot from the wide or long table according to
// its layout.
func RenderCatalog(wide domain.WideTable, long domain.LongTable, plots []Plot) ([]Figure, error) {
	figures := make([]Figure, 0, len(plots))
	for _, p := range plots {
		var frame Frame = LongFrame{Table: long}
		if p.Layout == LayoutWide {
			frame = WideFrame{Table: wide}
		}
		fig, err := Render(frame, p)
		if err != nil {
			return nil, err
		}
		figures = append(figures, fig)
	}
	return figures, nil
}

func rendererFor(f datasetapi.Format) chart.RendererProvider {
	if f == datasetapi.FormatSVG {
		return chart.SVG
	}
	return chart.PNG
}

// layers holds the series of an x/y chart along with the data extents.
type layers struct {
	series []chart.Series
	xs     []float64
	x, y   extent
	named  bool
}

// buildLayers builds the series for rows. colors fixes the color order so
// that facet panels agree on the palette.
func buildLayers(f Frame, rows []int, colors []string, p Plot) (layers, error) {
	var l layers
	switch {
	case p.Geom == GeomLine && p.Stat == StatIdentity:
		l = lineLayers(f, rows, colors, p.Mapping)
	case p.Geom == GeomLine && p.Stat == StatMeanCI:
		l = meanLayers(f, rows, colors, p.Mapping, false)
	case p.Geom == GeomPointRange:
		l = meanLayers(f, rows, colors, p.Mapping, true)
	default:
		return l, fmt.Errorf("unsupported geometry %q", p.Geom)
	}
	if len(l.series) == 0 {
		return l, errors.New("no finite values to draw")
	}
	return l, nil
}

type point struct{ x, y float64 }

// lineLayers draws one line per (color, group) combination. Only the first
// line of each color is named so the legend lists colors once.
func lineLayers(f Frame, rows []int, colors []string, m Mapping) layers {
	colorIndex := make(map[string]int, len(colors))
	for i, c := range colors {
		colorIndex[c] = i
	}
	type key struct{ color, group string }
	var order []key
	points := make(map[key][]point)
	for _, i := range rows {
		k := key{labelOf(f, m.Color, i), labelOf(f, m.Group, i)}
		x, y := f.Number(m.X, i), f.Number(m.Y, i)
		if !finite(x) || !finite(y) {
			continue
		}
		if _, ok := points[k]; !ok {
			order = append(order, k)
		}
		points[k] = append(points[k], point{x, y})
	}

	var l layers
	l.x, l.y = newExtent(), newExtent()
	many := len(order) > len(colors)
	named := make(map[string]bool)
	for _, k := range order {
		pts := points[k]
		sort.SliceStable(pts, func(a, b int) bool { return pts[a].x < pts[b].x })
		xs, ys := make([]float64, len(pts)), make([]float64, len(pts))
		for j, pt := range pts {
			xs[j], ys[j] = pt.x, pt.y
		}
		col := colorAt(colorIndex[k.color])
		if many {
			col = col.WithAlpha(140)
		}
		name := ""
		if m.Color != "" && !named[k.color] {
			name = k.color
			named[k.color] = true
			l.named = true
		}
		l.series = append(l.series, chart.ContinuousSeries{
			Name:    name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: col,
				StrokeWidth: 1.5,
				DotColor:    col,
				DotWidth:    2,
			},
		})
		l.xs = append(l.xs, xs...)
		l.x.add(xs...)
		l.y.add(ys...)
	}
	return l
}

// meanLayers summarises y per color level and distinct x. With intervals set
// it draws dodged points with vertical confidence bars, otherwise it joins
// the means with a line.
func meanLayers(f Frame, rows []int, colors []string, m Mapping, intervals bool) layers {
	type key struct {
		color string
		x     float64
	}
	cells := make(map[key][]float64)
	var xvals []float64
	seenX := make(map[float64]bool)
	for _, i := range rows {
		x, y := f.Number(m.X, i), f.Number(m.Y, i)
		if !finite(x) {
			continue
		}
		k := key{labelOf(f, m.Color, i), x}
		cells[k] = append(cells[k], y)
		if !seenX[x] {
			seenX[x] = true
			xvals = append(xvals, x)
		}
	}
	sort.Float64s(xvals)

	dodge := 0.0
	if intervals && len(colors) > 1 {
		step := 1.0
		for j := 1; j < len(xvals); j++ {
			if d := xvals[j] - xvals[j-1]; j == 1 || d < step {
				step = d
			}
		}
		dodge = 0.08 * step
	}

	var l layers
	l.x, l.y = newExtent(), newExtent()
	l.xs = xvals
	for ci, c := range colors {
		col := colorAt(ci)
		offset := (float64(ci) - float64(len(colors)-1)/2) * dodge
		var mx, my []float64
		for _, x := range xvals {
			values, ok := cells[key{c, x}]
			if !ok {
				continue
			}
			s := stats.Describe(values, stats.DefaultLevel)
			if !finite(s.Mean) {
				continue
			}
			mx = append(mx, x+offset)
			my = append(my, s.Mean)
			l.x.add(x + offset)
			l.y.add(s.Mean)
			if intervals && finite(s.Lower) && finite(s.Upper) {
				l.series = append(l.series, chart.ContinuousSeries{
					XValues: []float64{x + offset, x + offset},
					YValues: []float64{s.Lower, s.Upper},
					Style:   chart.Style{StrokeColor: col, StrokeWidth: 2},
				})
				l.y.add(s.Lower, s.Upper)
			}
		}
		if len(mx) == 0 {
			continue
		}
		name := c
		if name == "" {
			name = "mean"
		}
		style := chart.Style{StrokeColor: col, StrokeWidth: 2.5, DotColor: col, DotWidth: 5}
		if intervals {
			style.StrokeWidth = chart.Disabled
			style.StrokeColor = chart.ColorTransparent
		}
		l.series = append(l.series, chart.ContinuousSeries{Name: name, XValues: mx, YValues: my, Style: style})
		l.named = true
	}
	return l
}

func renderXY(l layers, p Plot, title string, width, height int, yRange *chart.ContinuousRange) ([]byte, error) {
	xRange := l.x.padded(0.15)
	if yRange == nil {
		yRange = l.y.padded(0.08)
	}
	xTicks := discreteTicks(l.xs)
	if xTicks == nil {
		xTicks = niceTicks(xRange.Min, xRange.Max, 6)
	}
	ch := chart.Chart{
		Title:      title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 12}},
		XAxis:      chart.XAxis{Name: p.XLabel, Range: xRange, Ticks: xTicks},
		YAxis:      chart.YAxis{Name: p.YLabel, Range: yRange, Ticks: niceTicks(yRange.Min, yRange.Max, 6)},
		Series:     l.series,
	}
	if l.named {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}
	var buf bytes.Buffer
	if err := ch.Render(rendererFor(p.Format), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderBars draws one bar per row ordered by the x column, filled by color.
func renderBars(f Frame, rows []int, p Plot) ([]byte, error) {
	m := p.Mapping
	drawn := make([]int, 0, len(rows))
	for _, i := range rows {
		if finite(f.Number(m.Y, i)) {
			drawn = append(drawn, i)
		}
	}
	if len(drawn) == 0 {
		return nil, errors.New("no finite values to draw")
	}
	sort.SliceStable(drawn, func(a, b int) bool { return f.Number(m.X, drawn[a]) < f.Number(m.X, drawn[b]) })

	colors := levels(f, m.Color, drawn)
	colorIndex := make(map[string]int, len(colors))
	for i, c := range colors {
		colorIndex[c] = i
	}
	ys := newExtent()
	ys.add(0)
	bars := make([]chart.Value, len(drawn))
	for j, i := range drawn {
		y := f.Number(m.Y, i)
		col := colorAt(colorIndex[labelOf(f, m.Color, i)])
		bars[j] = chart.Value{Value: y, Style: chart.Style{FillColor: col, StrokeColor: col, StrokeWidth: 1}}
		ys.add(y)
	}
	yRange := ys.padded(0.05)
	strip := p.Format == datasetapi.FormatPNG && m.Color != ""
	height := p.Height
	if strip {
		height -= stripHeight
	}
	bc := chart.BarChart{
		Title:        p.Title,
		Width:        p.Width,
		Height:       height,
		Background:   chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		BarWidth:     12,
		BarSpacing:   2,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis:        chart.YAxis{Name: p.YLabel, Range: yRange, Ticks: niceTicks(yRange.Min, yRange.Max, 6)},
		Bars:         bars,
	}
	var buf bytes.Buffer
	if err := bc.Render(rendererFor(p.Format), &buf); err != nil {
		return nil, err
	}
	if !strip {
		return buf.Bytes(), nil
	}
	entries := make([]legendEntry, len(colors))
	for i, c := range colors {
		entries[i] = legendEntry{label: m.Color + " " + c, color: colorAt(i)}
	}
	return withLegendStrip(buf.Bytes(), p.XLabel, entries)
}
