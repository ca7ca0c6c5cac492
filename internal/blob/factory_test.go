package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		cfg  Config
		want Driver
	}{
		{"default", Config{FSRoot: t.TempDir()}, DriverFilesystem},
		{"fs", Config{Driver: "FS", FSRoot: t.TempDir()}, DriverFilesystem},
		{"memory", Config{Driver: "memory"}, DriverMemory},
		{"s3", Config{Driver: "s3", S3: S3Config{Bucket: "figures", Region: "eu-west-1", AccessKeyID: "id", SecretAccessKey: "secret"}}, DriverS3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, err := Open(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if store.Driver() != tc.want {
				t.Fatalf("driver = %s, want %s", store.Driver(), tc.want)
			}
		})
	}
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, Config{Driver: "gcs"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	if _, err := Open(ctx, Config{Driver: "s3"}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
}

// Every driver honours the same contract.
func TestStoreContract(t *testing.T) {
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("fs: %v", err)
	}
	stores := map[string]Store{
		"fs":     fsStore,
		"memory": NewMemory(),
		"s3":     NewMockS3ForTests(),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			payload := []byte("subject,group\n1,A\n")
			info, err := store.Put(ctx, "runs/r1/wide.csv", bytes.NewReader(payload), PutOptions{
				ContentType: "text/csv",
				Metadata:    map[string]string{"seed": "1234"},
			})
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if info.Key != "runs/r1/wide.csv" || info.Size != int64(len(payload)) || info.ETag == "" {
				t.Fatalf("unexpected info %+v", info)
			}
			if _, err := store.Put(ctx, "runs/r1/wide.csv", bytes.NewReader(payload), PutOptions{}); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}
			if _, err := store.Put(ctx, "b.txt", bytes.NewReader([]byte("b")), PutOptions{}); err != nil {
				t.Fatalf("put b: %v", err)
			}

			got, rc, err := store.Get(ctx, "runs/r1/wide.csv")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			body, _ := io.ReadAll(rc)
			_ = rc.Close()
			if !bytes.Equal(body, payload) || got.ContentType != "text/csv" {
				t.Fatalf("get mismatch: %q %+v", body, got)
			}

			list, err := store.List(ctx, "")
			if err != nil || len(list) != 2 || list[0].Key != "b.txt" || list[1].Key != "runs/r1/wide.csv" {
				t.Fatalf("list: %v %+v", err, list)
			}
			if list, _ := store.List(ctx, "runs/"); len(list) != 1 {
				t.Fatalf("prefix list: %+v", list)
			}

			if _, err := store.Head(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if _, err := store.Put(ctx, "../escape", bytes.NewReader(nil), PutOptions{}); !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("expected ErrInvalidKey, got %v", err)
			}

			if ok, err := store.Delete(ctx, "b.txt"); err != nil || !ok {
				t.Fatalf("delete: %v %v", ok, err)
			}
			if ok, err := store.Delete(ctx, "b.txt"); err != nil || ok {
				t.Fatalf("second delete: %v %v", ok, err)
			}
		})
	}
}

func TestParseDriverAlias(t *testing.T) {
	d, err := ParseDriver("")
	if err != nil || d != DriverFilesystem {
		t.Fatalf("empty driver: %v %v", d, err)
	}
}
