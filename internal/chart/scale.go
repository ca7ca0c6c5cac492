package chart

import (
	"fmt"
	"math"
	"sort"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var palette = []drawing.Color{
	chart.ColorBlue,
	chart.ColorRed,
	chart.ColorGreen,
	chart.ColorOrange,
	chart.ColorAlternateGray,
}

func colorAt(i int) drawing.Color {
	if i < 0 {
		return chart.ColorBlack
	}
	return palette[i%len(palette)]
}

// levels returns the distinct labels of a column over rows, sorted. An empty
// column yields a single unnamed level.
func levels(f Frame, column string, rows []int) []string {
	if column == "" {
		return []string{""}
	}
	seen := make(map[string]struct{})
	var out []string
	for _, i := range rows {
		l := f.Label(column, i)
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func labelOf(f Frame, column string, i int) string {
	if column == "" {
		return ""
	}
	return f.Label(column, i)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// extent is a running min/max over finite values.
type extent struct{ min, max float64 }

func newExtent() extent { return extent{min: math.Inf(1), max: math.Inf(-1)} }

func (e *extent) add(vs ...float64) {
	for _, v := range vs {
		if !finite(v) {
			continue
		}
		e.min = math.Min(e.min, v)
		e.max = math.Max(e.max, v)
	}
}

func (e extent) empty() bool { return e.min > e.max }

// padded returns a continuous range with a margin on both sides.
func (e extent) padded(frac float64) *chart.ContinuousRange {
	lo, hi := e.min, e.max
	if e.empty() {
		lo, hi = 0, 1
	}
	if hi == lo {
		lo, hi = lo-1, hi+1
	}
	pad := (hi - lo) * frac
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// discreteTicks labels each distinct x value when the axis carries only a
// handful of them, as with measurement occasions.
func discreteTicks(xs []float64) []chart.Tick {
	uniq := make(map[float64]struct{})
	for _, x := range xs {
		if finite(x) {
			uniq[x] = struct{}{}
		}
	}
	if len(uniq) == 0 || len(uniq) > 12 {
		return nil
	}
	vals := make([]float64, 0, len(uniq))
	for x := range uniq {
		if x != math.Trunc(x) {
			return nil
		}
		vals = append(vals, x)
	}
	sort.Float64s(vals)
	ticks := make([]chart.Tick, len(vals))
	for i, v := range vals {
		ticks[i] = chart.Tick{Value: v, Label: fmt.Sprintf("%.0f", v)}
	}
	return ticks
}

// niceTicks picks about n evenly spaced ticks on a 1/2/2.5/5 step.
func niceTicks(lo, hi float64, n int) []chart.Tick {
	if n < 2 || !finite(lo) || !finite(hi) {
		return nil
	}
	if hi <= lo {
		hi = lo + 1
	}
	mag := math.Pow(10, math.Floor(math.Log10((hi-lo)/float64(n-1))))
	best, bestScore := mag, math.MaxFloat64
	for _, c := range []float64{1, 2, 2.5, 5, 10} {
		step := c * mag
		count := math.Max(math.Ceil((hi-lo)/step), 2)
		if score := math.Abs(count - float64(n)); score < bestScore {
			best, bestScore = step, score
		}
	}
	var ticks []chart.Tick
	for v := math.Ceil(lo/best) * best; v <= hi+best/1e6; v += best {
		ticks = append(ticks, chart.Tick{Value: v, Label: formatTick(v)})
		if len(ticks) > n+2 {
			break
		}
	}
	return ticks
}

func formatTick(v float64) string {
	av := math.Abs(v)
	switch {
	case v == 0:
		return "0"
	case av >= 100:
		return fmt.Sprintf("%.0f", v)
	case av >= 10:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
