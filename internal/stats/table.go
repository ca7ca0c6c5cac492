package stats

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteTable prints each model as a coefficient table followed by its fit
// statistics.
func WriteTable(w io.Writer, models ...Model) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	for i, m := range models {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\t\t\t\t\t\n", m.Formula)
		fmt.Fprintln(tw, "term\testimate\tstd.err\tt\tp\t")
		for _, t := range m.Terms {
			fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.3f\t%s\t\n", t.Name, t.Estimate, t.StdErr, t.T, formatP(t.P))
		}
		fmt.Fprintf(tw, "n=%d  df=%d  R2=%.4f  adj.R2=%.4f  sigma=%.4f\t\t\t\t\t\n", m.N, m.DF, m.RSquared, m.AdjRSq, m.ResidualSE)
		if m.Dropped > 0 {
			fmt.Fprintf(tw, "(%d rows dropped: non-finite values)\t\t\t\t\t\n", m.Dropped)
		}
	}
	return tw.Flush()
}

// WriteCells prints per-cell summaries.
func WriteCells(w io.Writer, cells []Cell) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "group\ttime\tn\tmean\tsd\tse\tlower\tupper\t")
	for _, c := range cells {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t\n",
			c.Group, c.Time, c.N, c.Mean, c.SD, c.SE, c.Lower, c.Upper)
	}
	return tw.Flush()
}

func formatP(p float64) string {
	if p < 1e-4 {
		return "<1e-4"
	}
	return fmt.Sprintf("%.4f", p)
}
