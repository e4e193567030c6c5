package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/baziar/testgate/internal/runner"
)

const schemaVersion = 1

// DB is the local run-history ledger. Every completed run and its per-file
// results are recorded so past outcomes stay inspectable.
type DB struct {
	conn *sql.DB
}

// Run is one recorded execution of the pipeline.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Passed     int
	Failed     int
	Coverage   bool
}

// Open creates or opens the history database at path, enabling WAL mode and
// applying pending migrations.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=10000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate applies schema migrations incrementally, tracked via user_version.
func (db *DB) migrate() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}

	for version < schemaVersion {
		version++
		switch version {
		case 1:
			if err := applySchemaV1(tx); err != nil {
				return fmt.Errorf("failed to apply schema v%d: %w", version, err)
			}
		default:
			return fmt.Errorf("unknown schema version: %d", version)
		}
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func applySchemaV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			total INTEGER NOT NULL,
			passed INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			coverage INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS results (
			run_id TEXT NOT NULL REFERENCES runs(id),
			path TEXT NOT NULL,
			passed INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			output TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
	`)
	return err
}

// RecordRun stores a completed run and its per-file results in one
// transaction and returns the run ID. An empty run.ID gets a fresh UUID.
func (db *DB) RecordRun(run Run, results []runner.Result) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO runs (id, started_at, finished_at, total, passed, failed, coverage) VALUES (?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.StartedAt, run.FinishedAt, run.Total, run.Passed, run.Failed, run.Coverage,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for _, res := range results {
		_, err = tx.Exec(
			"INSERT INTO results (run_id, path, passed, duration_ms, output) VALUES (?, ?, ?, ?, ?)",
			run.ID, res.Path, res.Passed, res.Duration.Milliseconds(), res.Output,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert result for %s: %w", res.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return run.ID, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(
		"SELECT id, started_at, finished_at, total, passed, failed, coverage FROM runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Total, &r.Passed, &r.Failed, &r.Coverage); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunResults returns the per-file results of one run, in recorded order.
func (db *DB) RunResults(runID string) ([]runner.Result, error) {
	rows, err := db.conn.Query(
		"SELECT path, passed, duration_ms, output FROM results WHERE run_id = ?",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load results for run %s: %w", runID, err)
	}
	defer rows.Close()

	var results []runner.Result
	for rows.Next() {
		var res runner.Result
		var durationMS int64
		if err := rows.Scan(&res.Path, &res.Passed, &durationMS, &res.Output); err != nil {
			return nil, err
		}
		res.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, res)
	}
	return results, rows.Err()
}
