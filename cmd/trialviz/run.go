package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trialviz/internal/core"
	"trialviz/internal/observability"
	"trialviz/internal/stats"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		id          string
		formats     []string
		metricsFile string
		requestedBy string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: render, export and archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (retErr error) {
			ctx := cmd.Context()
			parsed, err := parseFormats(formats)
			if err != nil {
				return err
			}
			exp, err := a.exporter(ctx)
			if err != nil {
				return err
			}
			recorder := observability.NewPrometheusRecorder()
			opts := []core.Option{
				core.WithExporter(exp),
				core.WithMetricsRecorder(recorder),
				core.WithTracer(observability.NewZapTracer(a.logger)),
				core.WithAuditRecorder(zapAudit{logger: a.logger.Named("audit")}),
			}
			archive, err := core.OpenArchive(ctx, core.ArchiveDriver(a.cfg.Archive.Driver), a.cfg.Archive.DSN)
			if err != nil {
				return err
			}
			if archive != nil {
				defer func() {
					if err := archive.Close(); err != nil && retErr == nil {
						retErr = err
					}
				}()
				opts = append(opts, core.WithArchiver(archive))
			}

			if metricsFile == "" {
				metricsFile = a.cfg.Metrics.File
			}
			if metricsFile != "" {
				defer func() {
					if err := recorder.WriteTextfile(metricsFile); err != nil {
						a.logger.Error("metrics not written", zap.Error(err))
						if retErr == nil {
							retErr = err
						}
					}
				}()
			}

			req := a.request(nil)
			req.RunID = id
			req.ExportFormats = parsed
			req.RequestedBy = requestedBy
			res, err := a.service(opts...).Run(ctx, req)
			if err != nil {
				return err
			}

			a.printf("run %s: %d subjects, %d figures, archived=%t\n", res.RunID, res.Wide.Len(), len(res.Figures), res.Archived)
			a.printArtifacts(res.Artifacts)
			for _, rec := range res.Exports {
				a.printArtifacts(rec.Artifacts)
			}
			a.printf("\n")
			return stats.WriteTable(a.out, res.Models...)
		},
	}
	cmd.Flags().StringVar(&id, "run-id", "", "run id (default: random UUID)")
	cmd.Flags().StringSliceVarP(&formats, "format", "f", []string{"json", "csv"}, "table export formats")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file (overrides config)")
	cmd.Flags().StringVar(&requestedBy, "requested-by", "", "actor recorded in audit entries")
	return cmd
}
