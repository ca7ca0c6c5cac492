package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"trialviz/internal/chart"
	"trialviz/internal/derive"
	"trialviz/internal/reshape"
	"trialviz/internal/simulate"
	"trialviz/internal/stats"
	"trialviz/pkg/datasetapi"
)

func newGenerateCmd(a *app) *cobra.Command {
	var derived bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print the simulated wide table",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			wide, err := simulate.Generate(a.cfg.Generator.Simulate())
			if err != nil {
				return err
			}
			if derived {
				derive.Apply(&wide)
			}
			return writeTable(a.out, wide.Table(time.Now()))
		},
	}
	cmd.Flags().BoolVar(&derived, "derived", false, "include percent change and ranks")
	return cmd
}

func newReshapeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reshape",
		Short: "Print the long table (one row per subject per time point)",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			wide, err := simulate.Generate(a.cfg.Generator.Simulate())
			if err != nil {
				return err
			}
			long, err := reshape.ToLongDefault(wide)
			if err != nil {
				return err
			}
			return writeTable(a.out, long.Table(time.Now()))
		},
	}
}

func newDeriveCmd(a *app) *cobra.Command {
	var ordered bool
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Print percent change and both rankings",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			wide, err := simulate.Generate(a.cfg.Generator.Simulate())
			if err != nil {
				return err
			}
			report := derive.Apply(&wide)
			rows := make([]int, wide.Len())
			for i := range rows {
				rows[i] = i
			}
			if ordered {
				rows = derive.OrderBy(wide.RankByGroupThenChange)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "id\tgroup\tpercent_change\trank_by_change\trank_by_group_then_change\t")
			for _, i := range rows {
				s := wide.Subjects[i]
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t\n", s.ID, s.Group,
					datasetapi.FormatValue(wide.PercentChange[i]), wide.RankByChange[i], wide.RankByGroupThenChange[i])
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if len(report.ZeroBaseline) > 0 {
				ids := make([]string, len(report.ZeroBaseline))
				for i, id := range report.ZeroBaseline {
					ids[i] = fmt.Sprint(id)
				}
				a.printf("zero baseline (percent change undefined): %s\n", strings.Join(ids, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&ordered, "ordered", false, "list subjects by group, then percent change")
	return cmd
}

func newSummarizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize",
		Short: "Print per-cell summaries and the regression tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.service().Run(cmd.Context(), a.request([]chart.Plot{}))
			if err != nil {
				return err
			}
			if err := stats.WriteCells(a.out, res.Cells); err != nil {
				return err
			}
			a.printf("\n")
			return stats.WriteTable(a.out, res.Models...)
		},
	}
}

// writeTable prints t with aligned columns; non-finite numbers show as NA.
func writeTable(w io.Writer, t datasetapi.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	names := t.ColumnNames()
	fmt.Fprintln(tw, strings.Join(names, "\t")+"\t")
	for _, row := range t.Rows {
		cells := make([]string, len(names))
		for i, name := range names {
			cells[i] = datasetapi.FormatValue(row[name])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	return tw.Flush()
}
