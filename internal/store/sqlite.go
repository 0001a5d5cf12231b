package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/seantiz/monolithium/internal/model"

	_ "modernc.org/sqlite"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id           TEXT PRIMARY KEY,
    mode         TEXT NOT NULL,
    backend      TEXT NOT NULL,
    args         TEXT NOT NULL,
    seeds        TEXT NOT NULL,
    status       TEXT NOT NULL,
    exit_code    INTEGER,
    record_count INTEGER NOT NULL DEFAULT 0,
    error        TEXT NOT NULL DEFAULT '',
    duration_ms  INTEGER,
    created_at   DATETIME NOT NULL,
    started_at   DATETIME,
    finished_at  DATETIME
)`

// Monoliths keep the engine's emission order through seq.
const createMonolithsTable = `
CREATE TABLE IF NOT EXISTS monoliths (
    run_id TEXT NOT NULL REFERENCES runs(id),
    seq    INTEGER NOT NULL,
    area   INTEGER NOT NULL,
    seed   INTEGER NOT NULL,
    minx   INTEGER NOT NULL,
    maxx   INTEGER NOT NULL,
    minz   INTEGER NOT NULL,
    maxz   INTEGER NOT NULL,
    PRIMARY KEY (run_id, seq)
)`

const runColumns = `id, mode, backend, args, seeds, status, exit_code, record_count,
	error, duration_ms, created_at, started_at, finished_at`

// ErrNotFound is returned when a run is not found.
var ErrNotFound = errors.New("run not found")

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for _, stmt := range []string{createRunsTable, createMonolithsTable} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateRun inserts a new run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, r *model.Run) error {
	args, err := encodeList(r.Args)
	if err != nil {
		return err
	}
	seeds, err := encodeList(r.Seeds)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Mode, string(r.Backend), args, seeds, r.Status, r.ExitCode, r.RecordCount,
		r.Error, r.DurationMS, r.CreatedAt, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns a paginated list of runs ordered by created_at DESC,
// along with the total count of all runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*model.Run, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, total, nil
}

// UpdateRunStatus moves a run to status. Moving to running sets started_at;
// moving to a terminal status sets finished_at.
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, id, status string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := checkTransition(ctx, tx, id, status); err != nil {
		return err
	}

	now := time.Now().UTC()
	switch {
	case status == model.StatusRunning:
		_, err = tx.ExecContext(ctx,
			"UPDATE runs SET status = ?, started_at = ? WHERE id = ?", status, now, id)
	case model.IsTerminal(status):
		_, err = tx.ExecContext(ctx,
			"UPDATE runs SET status = ?, finished_at = ? WHERE id = ?", status, now, id)
	default:
		_, err = tx.ExecContext(ctx,
			"UPDATE runs SET status = ? WHERE id = ?", status, id)
	}
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return tx.Commit()
}

// FinishRun records the outcome of a run. r.Status must be terminal and
// reachable from the stored status.
func (s *SQLiteStore) FinishRun(ctx context.Context, r *model.Run) error {
	if !model.IsTerminal(r.Status) {
		return fmt.Errorf("%w: %s is not a final status", ErrInvalidTransition, r.Status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := checkTransition(ctx, tx, r.ID, r.Status); err != nil {
		return err
	}

	finished := time.Now().UTC()
	if r.FinishedAt != nil {
		finished = *r.FinishedAt
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET status = ?, exit_code = ?, record_count = ?, error = ?,
			duration_ms = ?, finished_at = ? WHERE id = ?`,
		r.Status, r.ExitCode, r.RecordCount, r.Error, r.DurationMS, finished, r.ID,
	); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return tx.Commit()
}

// checkTransition loads the stored status of id and validates the move.
func checkTransition(ctx context.Context, tx *sql.Tx, id, to string) error {
	var from string
	err := tx.QueryRowContext(ctx, "SELECT status FROM runs WHERE id = ?", id).Scan(&from)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read run status: %w", err)
	}
	if !model.ValidTransition(from, to) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// GetRunStats returns aggregate statistics across all runs.
func (s *SQLiteStore) GetRunStats(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{
		CountByStatus:  make(map[string]int),
		CountByBackend: make(map[string]int),
		CountByMode:    make(map[string]int),
	}

	groups := []struct {
		column string
		into   map[string]int
	}{
		{"status", stats.CountByStatus},
		{"backend", stats.CountByBackend},
		{"mode", stats.CountByMode},
	}
	for _, g := range groups {
		if err := s.countBy(ctx, g.column, g.into); err != nil {
			return nil, err
		}
	}

	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(record_count), 0), AVG(duration_ms) FROM runs`,
	).Scan(&stats.Total, &stats.TotalRecords, &avg); err != nil {
		return nil, fmt.Errorf("aggregate runs: %w", err)
	}
	if avg.Valid {
		stats.AvgDurationMS = avg.Float64
	}
	return stats, nil
}

// countBy fills into with run counts grouped by column. column is never
// user input.
func (s *SQLiteStore) countBy(ctx context.Context, column string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) FROM runs GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("count runs by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		into[key] = n
	}
	return rows.Err()
}

// InsertMonoliths appends records to a run, after any already stored,
// keeping their order.
func (s *SQLiteStore) InsertMonoliths(ctx context.Context, runID string, ms []model.Monolith) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq) + 1, 0) FROM monoliths WHERE run_id = ?", runID,
	).Scan(&next); err != nil {
		return fmt.Errorf("next monolith seq: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO monoliths (run_id, seq, area, seed, minx, maxx, minz, maxz)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert monolith: %w", err)
	}
	defer stmt.Close()

	for i, m := range ms {
		if _, err := stmt.ExecContext(ctx,
			runID, next+i, m.Area, m.Seed, m.MinX, m.MaxX, m.MinZ, m.MaxZ,
		); err != nil {
			return fmt.Errorf("insert monolith: %w", err)
		}
	}
	return tx.Commit()
}

// GetMonoliths returns a page of a run's records in emission order, along
// with the run's total record count. A negative limit returns all records.
func (s *SQLiteStore) GetMonoliths(ctx context.Context, runID string, limit, offset int) ([]model.Monolith, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM monoliths WHERE run_id = ?", runID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count monoliths: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT area, seed, minx, maxx, minz, maxz FROM monoliths
		WHERE run_id = ? ORDER BY seq ASC LIMIT ? OFFSET ?`, runID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("get monoliths: %w", err)
	}
	defer rows.Close()

	ms := []model.Monolith{}
	for rows.Next() {
		var m model.Monolith
		if err := rows.Scan(&m.Area, &m.Seed, &m.MinX, &m.MaxX, &m.MinZ, &m.MaxZ); err != nil {
			return nil, 0, fmt.Errorf("scan monolith: %w", err)
		}
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate monoliths: %w", err)
	}
	return ms, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*model.Run, error) {
	r := &model.Run{}
	var backend, args, seeds string
	if err := sc.Scan(
		&r.ID, &r.Mode, &backend, &args, &seeds, &r.Status, &r.ExitCode, &r.RecordCount,
		&r.Error, &r.DurationMS, &r.CreatedAt, &r.StartedAt, &r.FinishedAt,
	); err != nil {
		return nil, err
	}
	r.Backend = model.BackendKind(backend)
	if err := json.Unmarshal([]byte(args), &r.Args); err != nil {
		return nil, fmt.Errorf("decode args: %w", err)
	}
	if err := json.Unmarshal([]byte(seeds), &r.Seeds); err != nil {
		return nil, fmt.Errorf("decode seeds: %w", err)
	}
	return r, nil
}

func encodeList[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(data), nil
}
