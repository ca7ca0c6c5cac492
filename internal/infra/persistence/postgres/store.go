// Package postgres archives runs in a PostgreSQL database through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"trialviz/internal/infra/persistence/sqlarchive"
)

const (
	defaultDriver = "pgx"
	// DefaultDSN applies when no DSN is configured.
	DefaultDSN = "postgres://localhost/trialviz?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Open connects to dsn, checks the connection and prepares the archive tables.
func Open(ctx context.Context, dsn string) (*sqlarchive.Archive, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	archive, err := sqlarchive.New(ctx, db, sqlarchive.Postgres)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return archive, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
