package integration

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"trialviz/internal/adapters/export"
	"trialviz/internal/blob"
	"trialviz/internal/core"
	"trialviz/internal/infra/persistence/sqlarchive"
	"trialviz/internal/observability"
	"trialviz/internal/simulate"
	"trialviz/pkg/datasetapi"
)

// TestIntegrationSmoke runs the full pipeline once per blob driver and
// archive backend and checks that every artifact lands in the store and
// every step is observed.
func TestIntegrationSmoke(t *testing.T) {
	ctx := context.Background()

	blobVariants := []struct {
		name string
		open func(t *testing.T) blob.Store
	}{
		{name: "memory-blob", open: func(*testing.T) blob.Store { return blob.NewMemory() }},
		{name: "filesystem-blob", open: func(t *testing.T) blob.Store {
			fs, err := blob.NewFilesystem(t.TempDir())
			if err != nil {
				t.Fatalf("new filesystem blob: %v", err)
			}
			return fs
		}},
		{name: "mock-s3-blob", open: func(*testing.T) blob.Store { return blob.NewMockS3ForTests() }},
	}
	archiveVariants := []struct {
		name string
		open func(t *testing.T) *sqlarchive.Archive
	}{
		{name: "no-archive", open: func(*testing.T) *sqlarchive.Archive { return nil }},
		{name: "sqlite-archive", open: func(t *testing.T) *sqlarchive.Archive {
			a, err := core.OpenArchive(ctx, core.ArchiveSQLite, filepath.Join(t.TempDir(), "runs.db"))
			if err != nil {
				t.Fatalf("open sqlite archive: %v", err)
			}
			t.Cleanup(func() { _ = a.Close() })
			return a
		}},
	}

	for _, bv := range blobVariants {
		for _, av := range archiveVariants {
			t.Run(bv.name+"/"+av.name, func(t *testing.T) {
				store := bv.open(t)
				archive := av.open(t)
				metrics := observability.NewPrometheusRecorder()
				tracer := observability.NewZapTracer(zap.NewNop())
				opts := []core.Option{
					core.WithExporter(export.NewExporter(store, nil, nil)),
					core.WithMetricsRecorder(metrics),
					core.WithTracer(tracer),
				}
				if archive != nil {
					opts = append(opts, core.WithArchiver(archive))
				}
				res, err := core.NewService(opts...).Run(ctx, core.RunRequest{
					RunID:         "smoke",
					Generator:     simulate.DefaultConfig(),
					Render:        core.RenderOptions{Width: 300, Height: 200},
					ExportFormats: []datasetapi.Format{datasetapi.FormatJSON, datasetapi.FormatHTML},
				})
				if err != nil {
					t.Fatalf("run: %v", err)
				}
				if res.Archived != (archive != nil) {
					t.Fatalf("archived = %v", res.Archived)
				}

				infos, err := store.List(ctx, "runs/smoke/")
				if err != nil {
					t.Fatalf("list: %v", err)
				}
				if len(infos) != 9 {
					t.Fatalf("stored %d artifacts, want 9", len(infos))
				}
				_, rc, err := store.Get(ctx, "runs/smoke/subjects.html")
				if err != nil {
					t.Fatalf("get html: %v", err)
				}
				body, err := io.ReadAll(rc)
				_ = rc.Close()
				if err != nil || !strings.Contains(string(body), "<th>percent_change</th>") {
					t.Fatalf("unexpected html artifact (%v):\n%.200s", err, body)
				}

				steps := 8
				if archive != nil {
					steps = 9
				}
				if got := len(tracer.Records()); got != steps {
					t.Fatalf("spans = %d, want %d", got, steps)
				}
				got, err := testutil.GatherAndCount(metrics.Registry(), observability.OperationsTotal)
				if err != nil || got != steps {
					t.Fatalf("metric series = %d (%v), want %d", got, err, steps)
				}

				if archive != nil {
					wide, long, err := archive.Load(ctx, "smoke")
					if err != nil {
						t.Fatalf("load: %v", err)
					}
					if wide.Len() != res.Wide.Len() || long.Len() != res.Long.Len() {
						t.Fatalf("archived %d/%d rows, want %d/%d", wide.Len(), long.Len(), res.Wide.Len(), res.Long.Len())
					}
				}
			})
		}
	}
}
