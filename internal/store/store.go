// Package store is the durable report store: idempotent upsert of
// sessions, append-only files and messages, and cascade delete, over a
// pgxpool.Pool with a Postgres error-code-to-message mapper (friendlyError).
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps a pgxpool.Pool with the session/file/message/report
// persistence operations.
type Store struct {
	pool *pgxpool.Pool
}

// New builds a Store over an already-connected pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pgxpool against databaseURL and returns a ready Store with
// its schema ensured.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	s := New(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// schemaStatements is additive-only: CREATE TABLE IF NOT EXISTS / CREATE
// INDEX IF NOT EXISTS, never a destructive migration. New deployments and
// old ones share the same statements — a rerun is always safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		comment TEXT NOT NULL DEFAULT '',
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'generating',
		files_count INT NOT NULL DEFAULT 0,
		files_data JSONB,
		openai_response_id TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at)`,
	`CREATE TABLE IF NOT EXISTS files (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
		external_file_id TEXT NOT NULL DEFAULT '',
		original_name TEXT NOT NULL,
		size BIGINT NOT NULL DEFAULT 0,
		mime_type TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT 'uncategorized',
		checksum TEXT NOT NULL DEFAULT '',
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_files_session_id ON files(session_id)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		message_order INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (session_id, message_order)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id)`,
	`CREATE TABLE IF NOT EXISTS reports (
		session_id TEXT PRIMARY KEY REFERENCES sessions(session_id) ON DELETE CASCADE,
		generated_at TIMESTAMPTZ,
		report_structured JSONB,
		report_text TEXT,
		openai_status TEXT
	)`,
}

// EnsureSchema runs the additive-only schema statements, tolerating
// pre-existing tables and indexes from an older deployment. Columns missing
// from an existing table are not added.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: ensure schema: %w", err)
		}
	}
	return nil
}
