package store

import (
	"context"
	"fmt"

	"CimplrCorpSaas/internal/model"
)

// AppendMessage atomically allocates the next strictly-increasing
// message_order for sessionID and inserts the row. The SELECT-then-INSERT
// runs inside a transaction that first takes a per-session advisory lock,
// so concurrent appends to the same session never race on the order value.
func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content string) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: append message: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, sessionID); err != nil {
		return 0, fmt.Errorf("store: append message: lock: %w", err)
	}

	var nextOrder int
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(message_order), 0) + 1 FROM messages WHERE session_id = $1
	`, sessionID).Scan(&nextOrder); err != nil {
		return 0, fmt.Errorf("store: append message: next order: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO messages (session_id, role, content, message_order, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, sessionID, role, content, nextOrder); err != nil {
		return 0, fmt.Errorf("store: append message: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("store: append message: commit: %w", err)
	}
	return nextOrder, nil
}

// GetMessages returns a session's messages ordered by message_order.
func (s *Store) GetMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, role, content, message_order, created_at
		FROM messages WHERE session_id = $1 ORDER BY message_order ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: get messages: %w", err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.SessionID, &m.Role, &m.Content, &m.Order, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
