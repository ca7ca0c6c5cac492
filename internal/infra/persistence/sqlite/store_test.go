package sqlite

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"trialviz/internal/derive"
	"trialviz/internal/infra/persistence/sqlarchive"
	"trialviz/internal/reshape"
	"trialviz/internal/simulate"
	"trialviz/pkg/domain"
)

func fixtures(t *testing.T, seed int64) (domain.WideTable, domain.LongTable) {
	t.Helper()
	cfg := simulate.DefaultConfig()
	cfg.Seed = seed
	wide, err := simulate.Generate(cfg)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	derive.Apply(&wide)
	long, err := reshape.ToLongDefault(wide)
	if err != nil {
		t.Fatalf("reshape: %v", err)
	}
	return wide, long
}

var nanEqual = cmpopts.EquateNaNs()

func TestArchiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	archive, err := Open(ctx, filepath.Join(t.TempDir(), "nested", "runs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = archive.Close() })

	wide, long := fixtures(t, 1234)
	if err := archive.Archive(ctx, "run-a", wide, long); err != nil {
		t.Fatalf("archive: %v", err)
	}
	gotWide, gotLong, err := archive.Load(ctx, "run-a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(wide, gotWide, nanEqual); diff != "" {
		t.Fatalf("wide mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(long, gotLong, nanEqual); diff != "" {
		t.Fatalf("long mismatch (-want +got):\n%s", diff)
	}
}

func TestArchiveReplacesRun(t *testing.T) {
	ctx := context.Background()
	archive, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = archive.Close() })

	first, firstLong := fixtures(t, 1)
	second, secondLong := fixtures(t, 2)
	if err := archive.Archive(ctx, "run", first, firstLong); err != nil {
		t.Fatalf("archive first: %v", err)
	}
	if err := archive.Archive(ctx, "other", first, firstLong); err != nil {
		t.Fatalf("archive other: %v", err)
	}
	if err := archive.Archive(ctx, "run", second, secondLong); err != nil {
		t.Fatalf("archive second: %v", err)
	}
	got, _, err := archive.Load(ctx, "run")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(second, got, nanEqual); diff != "" {
		t.Fatalf("run not replaced (-want +got):\n%s", diff)
	}
	runs, err := archive.Runs(ctx)
	if err != nil || len(runs) != 2 || runs[0].RunID != "other" || runs[1].RunID != "run" || !runs[1].Derived || runs[1].Subjects != 70 {
		t.Fatalf("runs: %+v %v", runs, err)
	}
	var n int
	if err := archive.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM measurements`).Scan(&n); err != nil || n != 280 {
		t.Fatalf("measurement rows = %d, %v", n, err)
	}
}

func TestArchiveNonFiniteAndUnderived(t *testing.T) {
	ctx := context.Background()
	archive, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = archive.Close() })

	wide := domain.WideTable{Subjects: []domain.Subject{
		{ID: 1, Group: domain.GroupA, Baseline: 0, Post: 5},
		{ID: 2, Group: domain.GroupB, Baseline: 0, Post: 0},
	}}
	long, err := reshape.ToLongDefault(wide)
	if err != nil {
		t.Fatalf("reshape: %v", err)
	}
	if err := archive.Archive(ctx, "raw", wide, long); err != nil {
		t.Fatalf("archive raw: %v", err)
	}
	got, _, err := archive.Load(ctx, "raw")
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	if got.Derived() || got.PercentChange != nil {
		t.Fatalf("underived run came back derived: %+v", got)
	}

	derive.Apply(&wide)
	if err := archive.Archive(ctx, "derived", wide, long); err != nil {
		t.Fatalf("archive derived: %v", err)
	}
	got, _, err = archive.Load(ctx, "derived")
	if err != nil {
		t.Fatalf("load derived: %v", err)
	}
	if !math.IsInf(got.PercentChange[0], 1) || !math.IsNaN(got.PercentChange[1]) {
		t.Fatalf("non-finite percent change lost: %v", got.PercentChange)
	}
}

func TestLoadUnknownRun(t *testing.T) {
	ctx := context.Background()
	archive, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = archive.Close() })
	if _, _, err := archive.Load(ctx, "missing"); !errors.Is(err, sqlarchive.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := archive.Archive(ctx, " ", domain.WideTable{}, domain.LongTable{}); err == nil {
		t.Fatalf("expected run id error")
	}
}
