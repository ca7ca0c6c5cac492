// Package sqlarchive writes pipeline runs to relational tables. The sqlite and
// postgres packages open the database and pick a Dialect.
package sqlarchive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"trialviz/pkg/domain"
)

// ErrRunNotFound is returned by Load for an unknown run id.
var ErrRunNotFound = errors.New("archive: run not found")

// Dialect captures the SQL differences between drivers.
type Dialect struct {
	Name string
	// Real is the column type for float64 values.
	Real string
	// Placeholder returns the bind marker for the 1-based argument n.
	Placeholder func(n int) string
}

var (
	SQLite = Dialect{
		Name:        "sqlite",
		Real:        "REAL",
		Placeholder: func(int) string { return "?" },
	}
	Postgres = Dialect{
		Name:        "postgres",
		Real:        "DOUBLE PRECISION",
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}
)

// Table names.
const (
	TableRuns         = "runs"
	TableSubjects     = "subjects"
	TableMeasurements = "measurements"
)

var (
	runColumns         = []string{"run_id", "subjects", "derived", "value_columns", "time_labels", "archived_at"}
	subjectColumns     = []string{"run_id", "seq", "id", "arm", "baseline", "post", "percent_change", "rank_by_change", "rank_by_group_then_change"}
	measurementColumns = []string{"run_id", "seq", "id", "arm", "time_point", "value"}
)

// RunInfo summarises one archived run.
type RunInfo struct {
	RunID      string    `json:"run_id"`
	Subjects   int       `json:"subjects"`
	Derived    bool      `json:"derived"`
	ArchivedAt time.Time `json:"archived_at"`
}

// Archive stores runs in three tables keyed by run id.
type Archive struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// New creates the tables when missing and returns an Archive on db.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Archive, error) {
	if db == nil {
		return nil, errors.New("archive: nil db")
	}
	a := &Archive{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
	if err := a.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// DB exposes the underlying handle for tests.
func (a *Archive) DB() *sql.DB { return a.db }

// Dialect returns the SQL dialect in use.
func (a *Archive) Dialect() Dialect { return a.dialect }

func (a *Archive) Close() error { return a.db.Close() }

func (a *Archive) ensureSchema(ctx context.Context) error {
	float := a.dialect.Real
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			subjects INTEGER NOT NULL,
			derived INTEGER NOT NULL,
			value_columns TEXT NOT NULL,
			time_labels TEXT NOT NULL,
			archived_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS subjects (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			id INTEGER NOT NULL,
			arm TEXT NOT NULL,
			baseline ` + float + `,
			post ` + float + `,
			percent_change ` + float + `,
			rank_by_change INTEGER,
			rank_by_group_then_change INTEGER,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS measurements (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			id INTEGER NOT NULL,
			arm TEXT NOT NULL,
			time_point INTEGER NOT NULL,
			value ` + float + `,
			PRIMARY KEY (run_id, seq)
		)`,
	}
	for _, stmt := range ddl {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("archive: create table: %w", err)
		}
	}
	return nil
}

// Archive writes the run in one transaction, replacing any rows already
// stored under runID.
func (a *Archive) Archive(ctx context.Context, runID string, wide domain.WideTable, long domain.LongTable) (retErr error) {
	if strings.TrimSpace(runID) == "" {
		return errors.New("archive: run id required")
	}
	valueColumns, err := json.Marshal(long.ValueColumns)
	if err != nil {
		return fmt.Errorf("archive: encode value columns: %w", err)
	}
	timeLabels, err := json.Marshal(long.TimeLabels)
	if err != nil {
		return fmt.Errorf("archive: encode time labels: %w", err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{TableMeasurements, TableSubjects, TableRuns} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = `+a.dialect.Placeholder(1), runID); err != nil {
			return fmt.Errorf("archive: clear %s: %w", table, err)
		}
	}

	derived := wide.Derived()
	insertRun := a.insert(TableRuns, runColumns)
	if _, err := tx.ExecContext(ctx, insertRun, runID, int64(wide.Len()), boolInt(derived), string(valueColumns), string(timeLabels), a.now().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("archive: insert run: %w", err)
	}

	insertSubject := a.insert(TableSubjects, subjectColumns)
	for i, s := range wide.Subjects {
		var pc, rank, groupRank any
		if derived {
			pc, rank, groupRank = nullFloat(wide.PercentChange[i]), int64(wide.RankByChange[i]), int64(wide.RankByGroupThenChange[i])
		}
		if _, err := tx.ExecContext(ctx, insertSubject, runID, int64(i), int64(s.ID), string(s.Group), nullFloat(s.Baseline), nullFloat(s.Post), pc, rank, groupRank); err != nil {
			return fmt.Errorf("archive: insert subject %d: %w", s.ID, err)
		}
	}

	insertMeasurement := a.insert(TableMeasurements, measurementColumns)
	for i, o := range long.Observations {
		if _, err := tx.ExecContext(ctx, insertMeasurement, runID, int64(i), int64(o.ID), string(o.Group), int64(o.Time), nullFloat(o.Value)); err != nil {
			return fmt.Errorf("archive: insert measurement %d/%s: %w", o.ID, o.Time, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	committed = true
	return nil
}

// Load reads a run back in the row order it was archived. NULL measurements
// come back as NaN.
func (a *Archive) Load(ctx context.Context, runID string) (domain.WideTable, domain.LongTable, error) {
	var (
		count                   int64
		derived                 int64
		valueColumns, timeLabel string
		archivedAt              string
	)
	row := a.db.QueryRowContext(ctx, a.selectWhere(TableRuns, runColumns[1:], ""), runID)
	if err := row.Scan(&count, &derived, &valueColumns, &timeLabel, &archivedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WideTable{}, domain.LongTable{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return domain.WideTable{}, domain.LongTable{}, fmt.Errorf("archive: select run: %w", err)
	}

	wide, err := a.loadSubjects(ctx, runID, derived == 1)
	if err != nil {
		return domain.WideTable{}, domain.LongTable{}, err
	}
	if int64(wide.Len()) != count {
		return domain.WideTable{}, domain.LongTable{}, fmt.Errorf("archive: run %s has %d subjects, expected %d", runID, wide.Len(), count)
	}

	long := domain.LongTable{}
	if err := json.Unmarshal([]byte(valueColumns), &long.ValueColumns); err != nil {
		return domain.WideTable{}, domain.LongTable{}, fmt.Errorf("archive: decode value columns: %w", err)
	}
	if err := json.Unmarshal([]byte(timeLabel), &long.TimeLabels); err != nil {
		return domain.WideTable{}, domain.LongTable{}, fmt.Errorf("archive: decode time labels: %w", err)
	}
	long.Observations, err = a.loadMeasurements(ctx, runID)
	if err != nil {
		return domain.WideTable{}, domain.LongTable{}, err
	}
	return wide, long, nil
}

func (a *Archive) loadSubjects(ctx context.Context, runID string, derived bool) (domain.WideTable, error) {
	rows, err := a.db.QueryContext(ctx, a.selectWhere(TableSubjects, subjectColumns[2:], "seq"), runID)
	if err != nil {
		return domain.WideTable{}, fmt.Errorf("archive: select subjects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var wide domain.WideTable
	for rows.Next() {
		var (
			id                 int64
			arm                string
			baseline, post, pc sql.NullFloat64
			rank, groupRank    sql.NullInt64
		)
		if err := rows.Scan(&id, &arm, &baseline, &post, &pc, &rank, &groupRank); err != nil {
			return domain.WideTable{}, fmt.Errorf("archive: scan subject: %w", err)
		}
		group, err := domain.ParseGroup(arm)
		if err != nil {
			return domain.WideTable{}, fmt.Errorf("archive: subject %d: %w", id, err)
		}
		wide.Subjects = append(wide.Subjects, domain.Subject{ID: int(id), Group: group, Baseline: floatOrNaN(baseline), Post: floatOrNaN(post)})
		if derived {
			if !rank.Valid || !groupRank.Valid {
				return domain.WideTable{}, fmt.Errorf("archive: subject %d missing ranks", id)
			}
			wide.PercentChange = append(wide.PercentChange, floatOrNaN(pc))
			wide.RankByChange = append(wide.RankByChange, int(rank.Int64))
			wide.RankByGroupThenChange = append(wide.RankByGroupThenChange, int(groupRank.Int64))
		}
	}
	if err := rows.Err(); err != nil {
		return domain.WideTable{}, fmt.Errorf("archive: iterate subjects: %w", err)
	}
	return wide, nil
}

func (a *Archive) loadMeasurements(ctx context.Context, runID string) ([]domain.Observation, error) {
	rows, err := a.db.QueryContext(ctx, a.selectWhere(TableMeasurements, measurementColumns[2:], "seq"), runID)
	if err != nil {
		return nil, fmt.Errorf("archive: select measurements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Observation
	for rows.Next() {
		var (
			id, tp int64
			arm    string
			value  sql.NullFloat64
		)
		if err := rows.Scan(&id, &arm, &tp, &value); err != nil {
			return nil, fmt.Errorf("archive: scan measurement: %w", err)
		}
		group, err := domain.ParseGroup(arm)
		if err != nil {
			return nil, fmt.Errorf("archive: measurement %d: %w", id, err)
		}
		out = append(out, domain.Observation{ID: int(id), Group: group, Time: domain.TimePoint(tp), Value: floatOrNaN(value)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate measurements: %w", err)
	}
	return out, nil
}

// Runs lists archived runs ordered by run id.
func (a *Archive) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT run_id, subjects, derived, archived_at FROM runs ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("archive: select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []RunInfo
	for rows.Next() {
		var (
			info           RunInfo
			count, derived int64
			archivedAt     string
		)
		if err := rows.Scan(&info.RunID, &count, &derived, &archivedAt); err != nil {
			return nil, fmt.Errorf("archive: scan run: %w", err)
		}
		info.Subjects = int(count)
		info.Derived = derived == 1
		if ts, err := time.Parse(time.RFC3339Nano, archivedAt); err == nil {
			info.ArchivedAt = ts
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (a *Archive) insert(table string, columns []string) string {
	marks := make([]string, len(columns))
	for i := range columns {
		marks[i] = a.dialect.Placeholder(i + 1)
	}
	return `INSERT INTO ` + table + ` (` + strings.Join(columns, ", ") + `) VALUES (` + strings.Join(marks, ", ") + `)`
}

func (a *Archive) selectWhere(table string, columns []string, orderBy string) string {
	q := `SELECT ` + strings.Join(columns, ", ") + ` FROM ` + table + ` WHERE run_id = ` + a.dialect.Placeholder(1)
	if orderBy != "" {
		q += ` ORDER BY ` + orderBy
	}
	return q
}

// NaN has no portable SQL representation; it is stored as NULL.
func nullFloat(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
