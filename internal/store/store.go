// Package store implements an optional SQLite-backed history of pipeline
// invocations, independent of the per-session JSON export.
//
// It keys each run by a google/uuid run ID and steps the schema forward
// through a PRAGMA user_version-gated migration runner, since a persisted
// run history is exactly the kind of component that outlives a single
// schema version.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cblack34/channelweaver/internal/model"
)

// RunStore is the interface the orchestrator accepts; nil is a valid,
// no-op value, since a run store is an optional collaborator.
type RunStore interface {
	BeginRun(inputDir, outputDir string) (string, error)
	FinishRun(runID string, sectionCount int, terminalErr error) error
	RecordSection(runID string, s model.SectionInfo) error
	Close() error
}

// SQLiteStore is the concrete RunStore backed by modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if absent) the run-history database at path,
// applies pragmas, and runs pending migrations.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run store %s: %w", path, err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate run store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const schemaVersion = 1

// migrate steps the schema forward from PRAGMA user_version toward
// schemaVersion, applying each version's migration exactly once.
func migrate(db *sql.DB) error {
	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			input_dir TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			section_count INTEGER NOT NULL DEFAULT 0,
			terminal_error TEXT
		);
		CREATE TABLE IF NOT EXISTS run_sections (
			run_id TEXT NOT NULL REFERENCES runs(id),
			section_number INTEGER NOT NULL,
			start_sample INTEGER NOT NULL,
			end_sample INTEGER NOT NULL,
			bpm INTEGER,
			section_type TEXT NOT NULL,
			PRIMARY KEY (run_id, section_number)
		);`,
	}

	for v := current; v < len(migrations); v++ {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version=%d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: bump user_version: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// BeginRun inserts a new run row and returns its generated run ID.
func (s *SQLiteStore) BeginRun(inputDir, outputDir string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, input_dir, output_dir, started_at) VALUES (?, ?, ?, ?)`,
		id, inputDir, outputDir, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// FinishRun records the run's completion time, section count, and
// terminal error (NULL if none).
func (s *SQLiteStore) FinishRun(runID string, sectionCount int, terminalErr error) error {
	var errText sql.NullString
	if terminalErr != nil {
		errText = sql.NullString{String: terminalErr.Error(), Valid: true}
	}
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, section_count = ?, terminal_error = ? WHERE id = ?`,
		time.Now().UTC(), sectionCount, errText, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

// RecordSection inserts one detected section row for the run.
func (s *SQLiteStore) RecordSection(runID string, sec model.SectionInfo) error {
	var bpm sql.NullInt64
	if sec.BPM != nil {
		bpm = sql.NullInt64{Int64: int64(*sec.BPM), Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO run_sections (run_id, section_number, start_sample, end_sample, bpm, section_type)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, sec.SectionNumber, sec.StartSample, sec.EndSample, bpm, sec.SectionType.String(),
	)
	if err != nil {
		return fmt.Errorf("record section %d of run %s: %w", sec.SectionNumber, runID, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
