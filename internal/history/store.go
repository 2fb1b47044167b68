// Package history keeps an append-only log of external tool launches in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"notelaunch/internal/domain"
)

// newID generates record IDs; tests may replace it.
var newID = uuid.NewString

// Store persists domain.LaunchRecord rows.
type Store struct {
	db *sql.DB
}

// NewStore wraps db and creates the launches table if needed.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db must not be nil")
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("history migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS launches (
			id          TEXT PRIMARY KEY,
			tool        TEXT NOT NULL,
			argv        TEXT NOT NULL,
			exit_code   INTEGER NOT NULL,
			error       TEXT NOT NULL DEFAULT '',
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS launches_started_at ON launches(started_at)`)
	return err
}

// Record appends rec. An empty ID is replaced with a fresh UUID.
func (s *Store) Record(ctx context.Context, rec domain.LaunchRecord) error {
	if rec.Tool == "" {
		return fmt.Errorf("launch record: tool must not be empty")
	}
	if rec.ID == "" {
		rec.ID = newID()
	}
	argv, err := json.Marshal(rec.Argv)
	if err != nil {
		return fmt.Errorf("launch record: encode argv: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO launches (id, tool, argv, exit_code, error, started_at, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Tool, string(argv), rec.ExitCode, rec.Error, rec.StartedAt.UnixNano(), rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("launch record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.LaunchRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tool, argv, exit_code, error, started_at, duration_ms FROM launches ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LaunchRecord
	for rows.Next() {
		var (
			rec        domain.LaunchRecord
			argv       string
			startedAt  int64
			durationMS int64
		)
		if err := rows.Scan(&rec.ID, &rec.Tool, &argv, &rec.ExitCode, &rec.Error, &startedAt, &durationMS); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(argv), &rec.Argv); err != nil {
			return nil, fmt.Errorf("launch %s: decode argv: %w", rec.ID, err)
		}
		rec.StartedAt = time.Unix(0, startedAt).UTC()
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ domain.LaunchHistory = (*Store)(nil)
