// Package sqlite archives runs in an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"trialviz/internal/infra/persistence/sqlarchive"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "trialviz.db"

// Open opens (creating if needed) the database at path and prepares the
// archive tables. ":memory:" keeps everything in process.
func Open(ctx context.Context, path string) (*sqlarchive.Archive, error) {
	if path == "" {
		path = DefaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: every :memory: connection is a separate database
	db.SetMaxOpenConns(1)
	archive, err := sqlarchive.New(ctx, db, sqlarchive.SQLite)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return archive, nil
}
