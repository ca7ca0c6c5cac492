// Package export materialises pipeline tables and rendered figures into the
// artifact store.
package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trialviz/internal/blob"
	"trialviz/internal/chart"
	"trialviz/pkg/datasetapi"
)

// ExportStatus describes the outcome of an export request.
type ExportStatus string

const (
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// DefaultFormats apply when ExportInput.Formats is empty.
var DefaultFormats = []datasetapi.Format{datasetapi.FormatJSON, datasetapi.FormatCSV}

// Artifact captures a stored table or figure.
type Artifact struct {
	ID          string            `json:"id"`
	Key         string            `json:"key"`
	Format      datasetapi.Format `json:"format"`
	ContentType string            `json:"content_type"`
	SizeBytes   int64             `json:"size_bytes"`
	ETag        string            `json:"etag,omitempty"`
	URL         string            `json:"url,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ExportRecord tracks one export request and its artifacts.
type ExportRecord struct {
	ID          string              `json:"id"`
	RunID       string              `json:"run_id"`
	Table       string              `json:"table"`
	Formats     []datasetapi.Format `json:"formats"`
	Status      ExportStatus        `json:"status"`
	Error       string              `json:"error,omitempty"`
	Artifacts   []Artifact          `json:"artifacts,omitempty"`
	RequestedBy string              `json:"requested_by,omitempty"`
	Reason      string              `json:"reason,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// ExportInput is a request to store one table in several formats.
type ExportInput struct {
	RunID       string
	Table       datasetapi.Table
	Formats     []datasetapi.Format
	RequestedBy string
	Reason      string
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for exports.
type AuditEntry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor,omitempty"`
	RunID      string         `json:"run_id"`
	Subject    string         `json:"subject"`
	Status     ExportStatus   `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

const (
	actionTableExport   = "table_export"
	actionFigurePublish = "figure_publish"
)

// Exporter writes artifacts to a blob store. It is safe for sequential use
// by one pipeline run.
type Exporter struct {
	store  blob.Store
	audit  AuditLogger
	logger *zap.Logger
	now    func() time.Time
}

// NewExporter constructs an exporter. audit and logger may be nil.
func NewExporter(store blob.Store, audit AuditLogger, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		store:  store,
		audit:  audit,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ArtifactKey returns runs/<run-id>/<name><ext>.
func ArtifactKey(runID, name string, format datasetapi.Format) string {
	return path.Join("runs", runID, name+format.Extension())
}

// Export materialises the table in every requested format and stores each
// payload. It stops at the first failure; artifacts stored before the failure
// are kept and listed on the returned record.
func (e *Exporter) Export(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if e.store == nil {
		return ExportRecord{}, fmt.Errorf("export store not configured")
	}
	if strings.TrimSpace(input.RunID) == "" {
		return ExportRecord{}, fmt.Errorf("run id required")
	}
	if strings.TrimSpace(input.Table.Name) == "" {
		return ExportRecord{}, fmt.Errorf("table name required")
	}
	formats, err := uniqueFormats(input.Formats)
	if err != nil {
		return ExportRecord{}, err
	}

	record := ExportRecord{
		ID:          uuid.NewString(),
		RunID:       input.RunID,
		Table:       input.Table.Name,
		Formats:     formats,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   e.now(),
	}
	for _, format := range formats {
		payload, err := materialize(format, input.Table)
		if err != nil {
			return e.fail(ctx, record, actionTableExport, err)
		}
		meta := map[string]any{"rows": len(input.Table.Rows), "table": input.Table.Name}
		artifact, err := e.put(ctx, ArtifactKey(input.RunID, input.Table.Name, format), format, payload, meta)
		if err != nil {
			return e.fail(ctx, record, actionTableExport, err)
		}
		record.Artifacts = append(record.Artifacts, artifact)
	}
	return e.succeed(ctx, record, actionTableExport), nil
}

// Publish stores rendered figures under the run. Figures keep their own
// format and file name.
func (e *Exporter) Publish(ctx context.Context, runID string, figures []chart.Figure) ([]Artifact, error) {
	if e.store == nil {
		return nil, fmt.Errorf("export store not configured")
	}
	if strings.TrimSpace(runID) == "" {
		return nil, fmt.Errorf("run id required")
	}
	record := ExportRecord{ID: uuid.NewString(), RunID: runID, Table: "figures", CreatedAt: e.now()}
	for _, fig := range figures {
		record.Formats = append(record.Formats, fig.Format)
		meta := map[string]any{"figure": fig.Name, "width": fig.Width, "height": fig.Height}
		artifact, err := e.put(ctx, ArtifactKey(runID, fig.Name, fig.Format), fig.Format, fig.Data, meta)
		if err != nil {
			rec, ferr := e.fail(ctx, record, actionFigurePublish, err)
			return rec.Artifacts, ferr
		}
		record.Artifacts = append(record.Artifacts, artifact)
	}
	return e.succeed(ctx, record, actionFigurePublish).Artifacts, nil
}

func (e *Exporter) put(ctx context.Context, key string, format datasetapi.Format, payload []byte, meta map[string]any) (Artifact, error) {
	info, err := e.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: format.ContentType(),
		Metadata:    stringMetadata(meta),
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("store %s: %w", key, err)
	}
	artifact := Artifact{
		ID:          uuid.NewString(),
		Key:         info.Key,
		Format:      format,
		ContentType: info.ContentType,
		SizeBytes:   info.Size,
		ETag:        info.ETag,
		URL:         info.URL,
		Metadata:    meta,
		CreatedAt:   info.LastModified,
	}
	if artifact.ContentType == "" {
		artifact.ContentType = format.ContentType()
	}
	if artifact.SizeBytes == 0 {
		artifact.SizeBytes = int64(len(payload))
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = e.now()
	}
	e.logger.Debug("artifact stored",
		zap.String("key", artifact.Key),
		zap.String("format", string(format)),
		zap.Int64("size_bytes", artifact.SizeBytes))
	return artifact, nil
}

func (e *Exporter) succeed(ctx context.Context, record ExportRecord, action string) ExportRecord {
	now := e.now()
	record.Status = ExportStatusSucceeded
	record.CompletedAt = &now
	e.record(ctx, record, action, map[string]any{"artifacts": len(record.Artifacts)})
	return record
}

func (e *Exporter) fail(ctx context.Context, record ExportRecord, action string, cause error) (ExportRecord, error) {
	now := e.now()
	record.Status = ExportStatusFailed
	record.Error = cause.Error()
	record.CompletedAt = &now
	e.logger.Warn("export failed", zap.String("run_id", record.RunID), zap.String("subject", record.Table), zap.Error(cause))
	e.record(ctx, record, action, map[string]any{"error": cause.Error()})
	return record, fmt.Errorf("export %s: %w", record.Table, cause)
}

func (e *Exporter) record(ctx context.Context, record ExportRecord, action string, meta map[string]any) {
	if e.audit == nil {
		return
	}
	e.audit.Record(ctx, AuditEntry{
		ID:         uuid.NewString(),
		Action:     action,
		Actor:      record.RequestedBy,
		RunID:      record.RunID,
		Subject:    record.Table,
		Status:     record.Status,
		Reason:     record.Reason,
		Metadata:   meta,
		OccurredAt: *record.CompletedAt,
	})
}

func uniqueFormats(formats []datasetapi.Format) ([]datasetapi.Format, error) {
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	out := make([]datasetapi.Format, 0, len(formats))
	seen := make(map[datasetapi.Format]struct{}, len(formats))
	for _, format := range formats {
		if _, duplicate := seen[format]; duplicate {
			continue
		}
		if !tableFormat(format) {
			return nil, fmt.Errorf("unsupported export format %s", format)
		}
		out = append(out, format)
		seen[format] = struct{}{}
	}
	return out, nil
}

func stringMetadata(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = datasetapi.FormatValue(v)
	}
	return out
}
