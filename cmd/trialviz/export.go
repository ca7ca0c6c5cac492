package main

import (
	"time"

	"github.com/spf13/cobra"

	"trialviz/internal/adapters/export"
	"trialviz/internal/chart"
	"trialviz/pkg/datasetapi"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		id      string
		formats []string
		reason  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the wide and long tables to the blob store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := parseFormats(formats)
			if err != nil {
				return err
			}
			res, err := a.service().Run(cmd.Context(), a.request([]chart.Plot{}))
			if err != nil {
				return err
			}
			exp, err := a.exporter(cmd.Context())
			if err != nil {
				return err
			}
			run := runID(id)
			now := time.Now()
			for _, table := range []datasetapi.Table{res.Wide.Table(now), res.Long.Table(now)} {
				record, err := exp.Export(cmd.Context(), export.ExportInput{
					RunID:   run,
					Table:   table,
					Formats: parsed,
					Reason:  reason,
				})
				a.printArtifacts(record.Artifacts)
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "run-id", "", "run id used in artifact keys (default: random UUID)")
	cmd.Flags().StringSliceVarP(&formats, "format", "f", []string{"json", "csv"}, "formats: json, csv, html, xlsx, png")
	cmd.Flags().StringVar(&reason, "reason", "", "free-text reason recorded in the audit log")
	return cmd
}

func parseFormats(names []string) ([]datasetapi.Format, error) {
	out := make([]datasetapi.Format, 0, len(names))
	for _, name := range names {
		f, err := datasetapi.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
