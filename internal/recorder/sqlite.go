package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"DipScreener/internal/logger"
)

// SQLiteRecorder persists scan runs to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
// ":memory:" opens a private in-memory database.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id             TEXT NOT NULL UNIQUE,
			trigger_source     TEXT NOT NULL,
			started_at         INTEGER NOT NULL,
			finished_at        INTEGER NOT NULL,
			filters            TEXT,
			requested          INTEGER,
			fetched            INTEGER,
			insufficient       INTEGER,
			failed             INTEGER,
			matched            INTEGER,
			breadth_ratio      REAL,
			source_unavailable INTEGER,
			error              TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_runs_started ON scan_runs(started_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordScan inserts one run. Recording the same run ID twice is an error.
func (r *SQLiteRecorder) RecordScan(run *ScanRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ratio sql.NullFloat64
	if run.BreadthRatio != nil {
		ratio = sql.NullFloat64{Float64: *run.BreadthRatio, Valid: true}
	}
	_, err := r.db.Exec(`INSERT INTO scan_runs
		(run_id, trigger_source, started_at, finished_at, filters,
		 requested, fetched, insufficient, failed, matched,
		 breadth_ratio, source_unavailable, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.RunID, string(run.Trigger), run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Filters,
		run.Requested, run.Fetched, run.Insufficient, run.Failed, run.Matched,
		ratio, run.SourceUnavailable, run.Error,
	)
	if err != nil {
		return fmt.Errorf("insert scan run %s: %w", run.RunID, err)
	}
	return nil
}

// RecentScans returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentScans(limit int) ([]ScanRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, trigger_source, started_at, finished_at, filters,
		requested, fetched, insufficient, failed, matched,
		breadth_ratio, source_unavailable, error
		FROM scan_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scan runs: %w", err)
	}
	defer rows.Close()

	var runs []ScanRun
	for rows.Next() {
		var (
			run               ScanRun
			trigger           string
			started, finished int64
			ratio             sql.NullFloat64
		)
		if err := rows.Scan(&run.RunID, &trigger, &started, &finished, &run.Filters,
			&run.Requested, &run.Fetched, &run.Insufficient, &run.Failed, &run.Matched,
			&ratio, &run.SourceUnavailable, &run.Error); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		run.Trigger = Trigger(trigger)
		run.StartedAt = time.UnixMilli(started)
		run.FinishedAt = time.UnixMilli(finished)
		if ratio.Valid {
			v := ratio.Float64
			run.BreadthRatio = &v
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	logger.Info("closing sqlite recorder")
	return r.db.Close()
}
