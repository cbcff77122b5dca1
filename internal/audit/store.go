// Package audit keeps a local record of every executed batch.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

const (
	SourceCLI    = "cli"
	SourceServer = "server"

	DefaultRecentLimit = 20
	maxRecentLimit     = 500
)

// Entry is one executed batch: the descriptors that were sent and the
// positional results that came back.
type Entry struct {
	ID           string          `json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	Source       string          `json:"source"`
	WorkspaceGID string          `json:"workspace_gid,omitempty"`
	ProjectGID   string          `json:"project_gid,omitempty"`
	Request      json.RawMessage `json:"request"`
	Results      json.RawMessage `json:"results"`
	Total        int             `json:"total"`
	Failed       int             `json:"failed"`
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the audit database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("audit database path is required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	schema := `
		CREATE TABLE IF NOT EXISTS audit_entries (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			source TEXT NOT NULL,
			workspace_gid TEXT NOT NULL DEFAULT '',
			project_gid TEXT NOT NULL DEFAULT '',
			request_json TEXT NOT NULL,
			results_json TEXT NOT NULL,
			total INTEGER NOT NULL,
			failed INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS audit_entries_created ON audit_entries(created_at);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return NewStore(db), nil
}

// NewStore wraps an already migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e, filling in the id and timestamp when they are unset.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	if e.ID == "" {
		e.ID = ulid.MustNew(ulid.Timestamp(e.CreatedAt), ulid.DefaultEntropy()).String()
	}
	if e.Source == "" {
		e.Source = SourceCLI
	}
	if len(e.Request) == 0 {
		e.Request = json.RawMessage("[]")
	}
	if len(e.Results) == 0 {
		e.Results = json.RawMessage("[]")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_entries (id, created_at, source, workspace_gid, project_gid, request_json, results_json, total, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.CreatedAt.Format(time.RFC3339Nano),
		e.Source,
		e.WorkspaceGID,
		e.ProjectGID,
		string(e.Request),
		string(e.Results),
		e.Total,
		e.Failed,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert audit entry: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, source, workspace_gid, project_gid, request_json, results_json, total, failed
		 FROM audit_entries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var created, request, results string
		if err := rows.Scan(&e.ID, &created, &e.Source, &e.WorkspaceGID, &e.ProjectGID, &request, &results, &e.Total, &e.Failed); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		e.Request = json.RawMessage(request)
		e.Results = json.RawMessage(results)
		out = append(out, e)
	}
	return out, rows.Err()
}
