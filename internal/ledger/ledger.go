// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a SQLite history of produced citation sheets.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citeassist/pkg/types"
)

// defaultLimit caps List when no limit is given.
const defaultLimit = 50

// timeLayout is fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store records sheets in a SQLite database. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sheets (
			id TEXT PRIMARY KEY,
			reference_key TEXT NOT NULL,
			entry_type TEXT NOT NULL,
			conference TEXT,
			stage TEXT NOT NULL,
			degraded INTEGER NOT NULL,
			backend TEXT,
			job_id TEXT,
			attempts INTEGER NOT NULL,
			pages INTEGER NOT NULL,
			error TEXT,
			created_at TEXT NOT NULL,
			elapsed_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sheets_created_at ON sheets(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sheets_reference_key ON sheets(reference_key)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores rec, replacing any earlier record with the same id.
func (s *Store) Record(ctx context.Context, rec types.SheetRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO sheets
		(id, reference_key, entry_type, conference, stage, degraded, backend,
		 job_id, attempts, pages, error, created_at, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ReferenceKey, rec.EntryType, rec.Conference, string(rec.Stage),
		rec.Degraded, rec.Backend, rec.JobID, rec.Attempts, rec.Pages, rec.Error,
		rec.CreatedAt.UTC().Format(timeLayout), rec.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("recording sheet %s: %w", rec.ID, err)
	}
	return nil
}

// ListOptions filters List.
type ListOptions struct {
	// ReferenceKey restricts the result to one citation key.
	ReferenceKey string

	// DegradedOnly keeps only sheets produced by the fallback renderer.
	DegradedOnly bool

	// Limit caps the number of records (default 50).
	Limit int
}

// List returns records, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]types.SheetRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	query := `SELECT id, reference_key, entry_type, conference, stage, degraded,
		backend, job_id, attempts, pages, error, created_at, elapsed_ms
		FROM sheets WHERE 1=1`
	var args []any
	if opts.ReferenceKey != "" {
		query += ` AND reference_key = ?`
		args = append(args, opts.ReferenceKey)
	}
	if opts.DegradedOnly {
		query += ` AND degraded = 1`
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sheets: %w", err)
	}
	defer rows.Close()

	var out []types.SheetRecord
	for rows.Next() {
		var (
			rec                        types.SheetRecord
			conference, backend, jobID sql.NullString
			errText                    sql.NullString
			stage, created             string
			elapsedMS                  int64
		)
		if err := rows.Scan(&rec.ID, &rec.ReferenceKey, &rec.EntryType, &conference,
			&stage, &rec.Degraded, &backend, &jobID, &rec.Attempts, &rec.Pages,
			&errText, &created, &elapsedMS); err != nil {
			return nil, fmt.Errorf("scanning sheet: %w", err)
		}
		rec.Conference = conference.String
		rec.Backend = backend.String
		rec.JobID = jobID.String
		rec.Error = errText.String
		rec.Stage = types.Stage(stage)
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if t, err := time.Parse(timeLayout, created); err == nil {
			rec.CreatedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats summarises the ledger.
type Stats struct {
	Total    int `yaml:"total"`
	Done     int `yaml:"done"`
	Failed   int `yaml:"failed"`
	Degraded int `yaml:"degraded"`
}

// Stats counts sheets by outcome.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `SELECT
		count(*),
		coalesce(sum(stage = ?), 0),
		coalesce(sum(stage = ?), 0),
		coalesce(sum(degraded), 0)
		FROM sheets`, string(types.StageDone), string(types.StageFailed),
	).Scan(&st.Total, &st.Done, &st.Failed, &st.Degraded)
	if err != nil {
		return Stats{}, fmt.Errorf("counting sheets: %w", err)
	}
	return st, nil
}

// ExportYAML writes the records selected by opts to w as a YAML list.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, opts ListOptions) error {
	recs, err := s.List(ctx, opts)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("encoding sheets: %w", err)
	}
	return enc.Close()
}
