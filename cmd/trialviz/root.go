package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trialviz/internal/config"
	"trialviz/internal/logging"
)

// app holds the state shared by every subcommand.
type app struct {
	out        io.Writer
	configPath string
	seed       int64
	subjects   int
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out, logger: zap.NewNop()}
	root := &cobra.Command{
		Use:   "trialviz",
		Short: "Simulate, reshape and visualise a two-arm longitudinal trial",
		Long: `trialviz generates a reproducible synthetic trial with a baseline and a
post-treatment measurement per subject, derives percent change and rankings,
and renders and exports the standard set of figures and tables.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { _ = a.logger.Sync() },
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML config file (TRIALVIZ_* env vars override it)")
	flags.Int64Var(&a.seed, "seed", 0, "random seed (overrides config)")
	flags.IntVar(&a.subjects, "subjects", 0, "number of subjects (overrides config)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newGenerateCmd(a),
		newReshapeCmd(a),
		newDeriveCmd(a),
		newSummarizeCmd(a),
		newRenderCmd(a),
		newExportCmd(a),
		newRunCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Generator.Seed = a.seed
	}
	if cmd.Flags().Changed("subjects") {
		cfg.Generator.Subjects = a.subjects
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging, a.verbose)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.Named("trialviz")
	a.logger.Debug("configuration loaded",
		zap.String("config", a.configPath),
		zap.Int64("seed", cfg.Generator.Seed),
		zap.Int("subjects", cfg.Generator.Subjects),
		zap.String("blob_driver", cfg.Blob.Driver),
		zap.String("archive_driver", cfg.Archive.Driver))
	return nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
