// Package persist keeps an optional audit trail of answered turns in SQLite.
package persist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// AuditRecord is one answered turn together with the prompt that produced it.
type AuditRecord struct {
	SessionID string
	TurnNo    int
	CreatedAt time.Time
	Query     string
	Prompt    string
	Response  string
	Sources   int
}

// AuditStore appends audit records to a SQLite database.
type AuditStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewAuditStore opens (or creates) the database at path.
func NewAuditStore(path string) (*AuditStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &AuditStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *AuditStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS turns (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id  TEXT NOT NULL,
			turn_no     INTEGER NOT NULL,
			created_at  TEXT NOT NULL,
			query       TEXT NOT NULL,
			prompt      TEXT NOT NULL,
			response    TEXT NOT NULL,
			sources     INTEGER NOT NULL DEFAULT 0,
			UNIQUE(session_id, turn_no)
		);

		CREATE INDEX IF NOT EXISTS idx_turns_created ON turns(created_at);
	`)
	return err
}

// NewSessionID returns a fresh identifier for grouping one run's turns.
func NewSessionID() string {
	return uuid.NewString()
}

func (s *AuditStore) Record(ctx context.Context, r AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (session_id, turn_no, created_at, query, prompt, response, sources)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.TurnNo, r.CreatedAt.UTC().Format(time.RFC3339Nano),
		r.Query, r.Prompt, r.Response, r.Sources,
	)
	if err != nil {
		return fmt.Errorf("record audit turn: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *AuditStore) Recent(ctx context.Context, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, turn_no, created_at, query, prompt, response, sources
		FROM turns ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Session returns the turns of one session in order.
func (s *AuditStore) Session(ctx context.Context, sessionID string) ([]AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, turn_no, created_at, query, prompt, response, sources
		FROM turns WHERE session_id = ? ORDER BY turn_no`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]AuditRecord, error) {
	var out []AuditRecord
	for rows.Next() {
		var r AuditRecord
		var created string
		if err := rows.Scan(&r.SessionID, &r.TurnNo, &created, &r.Query, &r.Prompt, &r.Response, &r.Sources); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *AuditStore) Close() error {
	return s.db.Close()
}
