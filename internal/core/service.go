// Package core runs the trial pipeline: generate, derive, reshape, summarise,
// regress, render, and optionally publish, export and archive.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trialviz/internal/adapters/export"
	"trialviz/internal/chart"
	"trialviz/internal/derive"
	"trialviz/internal/reshape"
	"trialviz/internal/simulate"
	"trialviz/internal/stats"
	"trialviz/pkg/datasetapi"
	"trialviz/pkg/domain"
)

// Step names used for metrics, spans and audit entries.
const (
	OpGenerate  = "generate"
	OpDerive    = "derive"
	OpReshape   = "reshape"
	OpSummarize = "summarize"
	OpRegress   = "regress"
	OpRender    = "render"
	OpPublish   = "publish"
	OpExport    = "export"
	OpArchive   = "archive"
)

// Exporter stores tables and figures as artifacts.
type Exporter interface {
	Export(ctx context.Context, input export.ExportInput) (export.ExportRecord, error)
	Publish(ctx context.Context, runID string, figures []chart.Figure) ([]export.Artifact, error)
}

// Archiver persists a completed run.
type Archiver interface {
	Archive(ctx context.Context, runID string, wide domain.WideTable, long domain.LongTable) error
}

// RenderOptions override the canvas of every plot. Zero values keep the
// plot's own settings. Format applies to unfaceted plots only.
type RenderOptions struct {
	Width  int
	Height int
	Format datasetapi.Format
}

// RunRequest parameterises one pipeline run.
type RunRequest struct {
	// RunID names the run; a UUID is assigned when empty.
	RunID     string
	Generator simulate.Config
	// Plots defaults to chart.Catalog().
	Plots         []chart.Plot
	Render        RenderOptions
	ExportFormats []datasetapi.Format
	RequestedBy   string
	Reason        string
}

// RunResult carries every intermediate product of a run.
type RunResult struct {
	RunID      string
	Wide       domain.WideTable
	Long       domain.LongTable
	Report     derive.Report
	Cells      []stats.Cell
	Models     []stats.Model
	Figures    []chart.Figure
	Artifacts  []export.Artifact
	Exports    []export.ExportRecord
	Archived   bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Service executes pipeline runs.
type Service struct {
	logger   *zap.Logger
	clock    Clock
	metrics  MetricsRecorder
	tracer   Tracer
	audit    AuditRecorder
	exporter Exporter
	archiver Archiver
}

// NewService returns a service with no-op hooks unless options supply them.
func NewService(opts ...Option) *Service {
	s := &Service{
		logger:  zap.NewNop(),
		clock:   ClockFunc(nil),
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes every step in order and stops at the first failure. The
// partially filled result is returned alongside the error.
func (s *Service) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	if err := req.Generator.Validate(); err != nil {
		return RunResult{}, fmt.Errorf("invalid generator config: %w", err)
	}
	plots, err := req.plots()
	if err != nil {
		return RunResult{}, err
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	res := RunResult{RunID: req.RunID, StartedAt: s.clock.Now()}
	logger := s.logger.With(zap.String("run_id", req.RunID))
	logger.Info("run started", zap.Int64("seed", req.Generator.Seed), zap.Int("subjects", req.Generator.Subjects))

	steps := []struct {
		op   string
		skip bool
		fn   func(context.Context) (map[string]any, error)
	}{
		{op: OpGenerate, fn: func(context.Context) (map[string]any, error) {
			wide, err := simulate.Generate(req.Generator)
			res.Wide = wide
			return map[string]any{"subjects": wide.Len()}, err
		}},
		{op: OpDerive, fn: func(context.Context) (map[string]any, error) {
			res.Report = derive.Apply(&res.Wide)
			if n := len(res.Report.ZeroBaseline); n > 0 {
				logger.Warn("zero baselines produce non-finite percent change", zap.Ints("ids", res.Report.ZeroBaseline))
			}
			return map[string]any{"zero_baseline": len(res.Report.ZeroBaseline)}, nil
		}},
		{op: OpReshape, fn: func(context.Context) (map[string]any, error) {
			long, err := reshape.ToLongDefault(res.Wide)
			res.Long = long
			return map[string]any{"observations": long.Len()}, err
		}},
		{op: OpSummarize, fn: func(context.Context) (map[string]any, error) {
			res.Cells = stats.Summarize(res.Long)
			return map[string]any{"cells": len(res.Cells)}, nil
		}},
		{op: OpRegress, fn: func(context.Context) (map[string]any, error) {
			post, err := stats.Regress(res.Wide, domain.ColumnPost, stats.PostOnBaselineAndGroup...)
			if err != nil {
				return nil, err
			}
			change, err := stats.Regress(res.Wide, domain.ColumnPercentChange, stats.ChangeOnGroup...)
			if err != nil {
				return nil, err
			}
			res.Models = []stats.Model{post, change}
			return map[string]any{"models": len(res.Models)}, nil
		}},
		{op: OpRender, fn: func(context.Context) (map[string]any, error) {
			figures, err := chart.RenderCatalog(res.Wide, res.Long, plots)
			res.Figures = figures
			return map[string]any{"figures": len(figures)}, err
		}},
		{op: OpPublish, skip: s.exporter == nil, fn: func(ctx context.Context) (map[string]any, error) {
			artifacts, err := s.exporter.Publish(ctx, req.RunID, res.Figures)
			res.Artifacts = artifacts
			return map[string]any{"artifacts": len(artifacts)}, err
		}},
		{op: OpExport, skip: s.exporter == nil, fn: func(ctx context.Context) (map[string]any, error) {
			now := s.clock.Now()
			for _, table := range []datasetapi.Table{res.Wide.Table(now), res.Long.Table(now)} {
				record, err := s.exporter.Export(ctx, export.ExportInput{
					RunID:       req.RunID,
					Table:       table,
					Formats:     req.ExportFormats,
					RequestedBy: req.RequestedBy,
					Reason:      req.Reason,
				})
				res.Exports = append(res.Exports, record)
				if err != nil {
					return map[string]any{"table": table.Name}, err
				}
			}
			return map[string]any{"exports": len(res.Exports)}, nil
		}},
		{op: OpArchive, skip: s.archiver == nil, fn: func(ctx context.Context) (map[string]any, error) {
			if err := s.archiver.Archive(ctx, req.RunID, res.Wide, res.Long); err != nil {
				return nil, err
			}
			res.Archived = true
			return nil, nil
		}},
	}

	for _, st := range steps {
		if st.skip {
			logger.Debug("step skipped", zap.String("operation", st.op))
			continue
		}
		if err := s.step(ctx, logger, req, st.op, st.fn); err != nil {
			res.FinishedAt = s.clock.Now()
			return res, err
		}
	}
	res.FinishedAt = s.clock.Now()
	logger.Info("run completed",
		zap.Int("figures", len(res.Figures)),
		zap.Int("artifacts", len(res.Artifacts)),
		zap.Bool("archived", res.Archived))
	return res, nil
}

func (s *Service) step(ctx context.Context, logger *zap.Logger, req RunRequest, op string, fn func(context.Context) (map[string]any, error)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ctx, span := s.tracer.Start(ctx, op)
	started := time.Now()
	meta, err := fn(ctx)
	duration := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	entry := AuditEntry{
		Operation:   op,
		RunID:       req.RunID,
		Status:      AuditStatusSuccess,
		Duration:    duration,
		RequestedBy: req.RequestedBy,
		Timestamp:   s.clock.Now(),
		Metadata:    meta,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)

	if err != nil {
		logger.Error("step failed", zap.String("operation", op), zap.Duration("duration", duration), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	logger.Debug("step completed", zap.String("operation", op), zap.Duration("duration", duration), zap.Any("metadata", meta))
	return nil
}

func (r RunRequest) plots() ([]chart.Plot, error) {
	if r.Plots == nil {
		return ApplyRenderOptions(chart.Catalog(), r.Render)
	}
	return ApplyRenderOptions(r.Plots, r.Render)
}

// ApplyRenderOptions returns copies of plots with opts applied. Faceted
// plots keep their own format since they only render to PNG.
func ApplyRenderOptions(plots []chart.Plot, opts RenderOptions) ([]chart.Plot, error) {
	if opts.Format != "" && opts.Format != datasetapi.FormatPNG && opts.Format != datasetapi.FormatSVG {
		return nil, fmt.Errorf("unsupported render format %q", opts.Format)
	}
	out := make([]chart.Plot, len(plots))
	for i, p := range plots {
		if opts.Width > 0 {
			p.Width = opts.Width
		}
		if opts.Height > 0 {
			p.Height = opts.Height
		}
		if opts.Format != "" && p.Mapping.Facet == "" {
			p.Format = opts.Format
		}
		out[i] = p
	}
	return out, nil
}
