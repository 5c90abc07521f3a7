// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest records conversion runs in a SQLite database: which MAT
// files were converted, when, with what outcome, and which artifacts each
// produced. The convert stage uses it to skip files that have not changed
// since their last successful conversion under the same export settings.
package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/mat2csv/pkg/types"
)

// DefaultFile is the manifest path the manifest commands read when none is
// configured.
const DefaultFile = "mat2csv.db"

// Store manages the manifest database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the manifest at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating manifest directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sources (
			path TEXT PRIMARY KEY,
			size INTEGER NOT NULL,
			mod_time TEXT NOT NULL,
			status TEXT NOT NULL,
			settings TEXT NOT NULL DEFAULT '',
			run_id TEXT NOT NULL REFERENCES runs(id)
		)`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL REFERENCES sources(path) ON DELETE CASCADE,
			path TEXT NOT NULL,
			kind TEXT NOT NULL,
			variable TEXT,
			n_rows INTEGER,
			n_cols INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_source ON artifacts(source)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// StartRun registers a new run and returns its ID.
func (s *Store) StartRun(ctx context.Context) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return id, nil
}

// Unchanged reports whether the file at path was converted successfully
// with the given export settings, still has the size and modification time
// recorded then, and every artifact recorded for it still exists.
func (s *Store) Unchanged(ctx context.Context, path string, info os.FileInfo, settings string) (bool, error) {
	var size int64
	var modTime, status, recorded string
	err := s.db.QueryRowContext(ctx,
		`SELECT size, mod_time, status, settings FROM sources WHERE path = ?`, sourceKey(path),
	).Scan(&size, &modTime, &status, &recorded)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying source %s: %w", path, err)
	}
	if status != string(types.ConversionDone) ||
		size != info.Size() ||
		modTime != formatModTime(info) ||
		recorded != settings {
		return false, nil
	}

	arts, err := s.Artifacts(ctx, path)
	if err != nil {
		return false, err
	}
	for _, a := range arts {
		if _, err := os.Stat(a.Path); err != nil {
			return false, nil
		}
	}
	return true, nil
}

// Record stores the outcome of converting path with the given export
// settings during run runID, replacing any artifacts recorded for it before.
func (s *Store) Record(ctx context.Context, runID, path string, info os.FileInfo, settings string, status types.ConversionStatus, arts []types.Artifact) error {
	key := sourceKey(path)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var size int64
	var modTime string
	if info != nil {
		size = info.Size()
		modTime = formatModTime(info)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sources (path, size, mod_time, status, settings, run_id) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			size=excluded.size, mod_time=excluded.mod_time, status=excluded.status,
			settings=excluded.settings, run_id=excluded.run_id`,
		key, size, modTime, string(status), settings, runID,
	)
	if err != nil {
		return fmt.Errorf("upserting source: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE source = ?`, key); err != nil {
		return fmt.Errorf("deleting old artifacts: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO artifacts (source, path, kind, variable, n_rows, n_cols) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range arts {
		if _, err := stmt.ExecContext(ctx, key, a.Path, string(a.Kind), a.Variable, a.Rows, a.Cols); err != nil {
			return fmt.Errorf("inserting artifact %s: %w", a.Path, err)
		}
	}

	return tx.Commit()
}

// Artifacts returns the artifacts recorded for source, in the order they
// were written.
func (s *Store) Artifacts(ctx context.Context, source string) ([]types.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, kind, variable, n_rows, n_cols FROM artifacts WHERE source = ? ORDER BY id`,
		sourceKey(source),
	)
	if err != nil {
		return nil, fmt.Errorf("querying artifacts: %w", err)
	}
	defer rows.Close()

	var arts []types.Artifact
	for rows.Next() {
		var a types.Artifact
		var kind string
		var variable sql.NullString
		if err := rows.Scan(&a.Path, &kind, &variable, &a.Rows, &a.Cols); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		a.Kind = types.ArtifactKind(kind)
		a.Variable = variable.String
		arts = append(arts, a)
	}
	return arts, rows.Err()
}

// sourceKey normalises path so the same file is found regardless of how it
// was named on the command line.
func sourceKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func formatModTime(info os.FileInfo) string {
	return info.ModTime().UTC().Format(time.RFC3339Nano)
}
