package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trialviz/internal/blob/core"
)

func TestStorePutWritesFileAndSidecar(t *testing.T) {
	root := t.TempDir()
	store, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	info, err := store.Put(ctx, `runs\r1\plot.png`, bytes.NewReader([]byte("png")), core.PutOptions{ContentType: "image/png"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "runs/r1/plot.png" {
		t.Fatalf("key not normalised: %s", info.Key)
	}
	if len(info.ETag) != 64 || info.Size != 3 {
		t.Fatalf("unexpected etag %q", info.ETag)
	}
	data, err := os.ReadFile(filepath.Join(root, "runs", "r1", "plot.png"))
	if err != nil || string(data) != "png" {
		t.Fatalf("file on disk: %q %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(root, "runs", "r1", "plot.png"+metaSuffix)); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	if !strings.HasPrefix(info.URL, "file://") {
		t.Fatalf("expected file url, got %s", info.URL)
	}
	url, err := store.PresignURL(ctx, "runs/r1/plot.png", core.SignedURLOptions{})
	if err != nil || url != info.URL {
		t.Fatalf("presign: %s %v", url, err)
	}
	if _, err := store.PresignURL(ctx, "runs/r1/plot.png", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported method, got %v", err)
	}
}

func TestStoreNoTempFilesLeft(t *testing.T) {
	root := t.TempDir()
	store, _ := New(root)
	ctx := context.Background()
	if _, err := store.Put(ctx, "a.csv", bytes.NewReader([]byte("x")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "a.csv", bytes.NewReader([]byte("y")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	entries, _ := os.ReadDir(root)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), tmpPrefix) {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
	_, rc, err := store.Get(ctx, "a.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	if b, _ := io.ReadAll(rc); string(b) != "x" {
		t.Fatalf("overwritten: %q", b)
	}
}

func TestStoreRejectsKeys(t *testing.T) {
	store, _ := New(t.TempDir())
	ctx := context.Background()
	for _, key := range []string{"", "/abs", "a/../../b", "x" + metaSuffix} {
		if _, err := store.Put(ctx, key, bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestStoreMissingAndCancelled(t *testing.T) {
	store, _ := New(t.TempDir())
	ctx := context.Background()
	if _, _, err := store.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ok, err := store.Delete(ctx, "nope"); ok || err != nil {
		t.Fatalf("delete missing: %v %v", ok, err)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := store.Put(cancelled, "k", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}
