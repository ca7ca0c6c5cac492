package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"trialviz/internal/adapters/export"
	"trialviz/internal/blob"
	"trialviz/internal/chart"
	"trialviz/internal/core"
	"trialviz/pkg/datasetapi"
)

func (a *app) service(opts ...core.Option) *core.Service {
	return core.NewService(append([]core.Option{core.WithLogger(a.logger)}, opts...)...)
}

// request builds a run request from the loaded config. nil plots selects
// the full catalog; an empty slice renders nothing.
func (a *app) request(plots []chart.Plot) core.RunRequest {
	return core.RunRequest{
		Generator: a.cfg.Generator.Simulate(),
		Plots:     plots,
		Render:    a.renderOptions(),
	}
}

func (a *app) renderOptions() core.RenderOptions {
	return core.RenderOptions{
		Width:  a.cfg.Render.Width,
		Height: a.cfg.Render.Height,
		Format: datasetapi.Format(a.cfg.Render.Format),
	}
}

func (a *app) exporter(ctx context.Context) (*export.Exporter, error) {
	store, err := blob.Open(ctx, a.cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return export.NewExporter(store, export.LogAudit{Logger: a.logger.Named("audit")}, a.logger), nil
}

func runID(flag string) string {
	if flag != "" {
		return flag
	}
	return uuid.NewString()
}

func (a *app) printArtifacts(artifacts []export.Artifact) {
	for _, art := range artifacts {
		a.printf("%s\t%s\t%s\n", art.Key, art.Format, humanize.Bytes(uint64(art.SizeBytes)))
	}
}

// zapAudit writes pipeline audit entries to the log.
type zapAudit struct{ logger *zap.Logger }

func (z zapAudit) Record(_ context.Context, entry core.AuditEntry) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("run_id", entry.RunID),
		zap.String("status", string(entry.Status)),
		zap.Duration("duration", entry.Duration),
		zap.Any("metadata", entry.Metadata),
	}
	if entry.RequestedBy != "" {
		fields = append(fields, zap.String("requested_by", entry.RequestedBy))
	}
	if entry.Error != "" {
		fields = append(fields, zap.String("error", entry.Error))
	}
	z.logger.Info("audit", fields...)
}
