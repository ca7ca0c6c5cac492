package core

import (
	"context"
	"fmt"

	"trialviz/internal/infra/persistence/postgres"
	"trialviz/internal/infra/persistence/sqlarchive"
	"trialviz/internal/infra/persistence/sqlite"
)

// ArchiveDriver identifies a concrete run archive.
type ArchiveDriver string

const (
	ArchiveNone     ArchiveDriver = "none"     // runs are not archived
	ArchiveSQLite   ArchiveDriver = "sqlite"   // embedded sqlite file
	ArchivePostgres ArchiveDriver = "postgres" // PostgreSQL server
)

// OpenArchive selects a backend. The none driver, or an empty one, returns
// a nil archive and no error.
//
//	sqlite:   dsn is a file path (default ./trialviz.db) or ":memory:"
//	postgres: dsn is a pgx connection string
func OpenArchive(ctx context.Context, driver ArchiveDriver, dsn string) (*sqlarchive.Archive, error) {
	switch driver {
	case "", ArchiveNone:
		return nil, nil
	case ArchiveSQLite:
		return sqlite.Open(ctx, dsn)
	case ArchivePostgres:
		return postgres.Open(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown archive driver %s", driver)
	}
}
