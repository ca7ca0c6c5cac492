package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trialviz/internal/chart"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		out   string
		id    string
		names []string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the chart catalog into the blob store or a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plots, err := selectPlots(names)
			if err != nil {
				return err
			}
			res, err := a.service().Run(cmd.Context(), a.request(plots))
			if err != nil {
				return err
			}
			if out != "" {
				return a.writeFigures(out, res.Figures)
			}
			exp, err := a.exporter(cmd.Context())
			if err != nil {
				return err
			}
			artifacts, err := exp.Publish(cmd.Context(), runID(id), res.Figures)
			if err != nil {
				return err
			}
			a.printArtifacts(artifacts)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write figures to this directory instead of the blob store")
	cmd.Flags().StringVar(&id, "run-id", "", "run id used in artifact keys (default: random UUID)")
	cmd.Flags().StringSliceVar(&names, "plot", nil, "render only the named plots")
	return cmd
}

// selectPlots returns the catalog, or the named subset in the given order.
func selectPlots(names []string) ([]chart.Plot, error) {
	if len(names) == 0 {
		return chart.Catalog(), nil
	}
	plots := make([]chart.Plot, 0, len(names))
	for _, name := range names {
		p, ok := chart.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown plot %q", name)
		}
		plots = append(plots, p)
	}
	return plots, nil
}

func (a *app) writeFigures(dir string, figures []chart.Figure) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, fig := range figures {
		path := filepath.Join(dir, fig.FileName())
		if err := os.WriteFile(path, fig.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		a.logger.Debug("figure written", zap.String("path", path))
		a.printf("%s\t%s\t%s\n", path, fig.Format, humanize.Bytes(uint64(len(fig.Data))))
	}
	return nil
}
