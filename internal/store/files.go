package store

import (
	"context"
	"fmt"

	"CimplrCorpSaas/internal/model"
)

// InsertFile appends a File row: files are append-only until session
// deletion. Failures here are non-critical — the orchestrator logs and
// continues rather than failing the session.
func (s *Store) InsertFile(ctx context.Context, f model.FileRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO files (session_id, external_file_id, original_name, size, mime_type, category, checksum, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`, f.SessionID, f.ExternalFileID, f.OriginalName, f.Size, f.MimeType, string(f.Category), f.Checksum)
	if err != nil {
		return fmt.Errorf("store: insert file: %w", err)
	}
	return nil
}

// ListFiles returns a session's files, oldest first.
func (s *Store) ListFiles(ctx context.Context, sessionID string) ([]model.FileRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, external_file_id, original_name, size, mime_type, category, checksum, uploaded_at
		FROM files WHERE session_id = $1 ORDER BY uploaded_at ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: list files: %w", err)
	}
	defer rows.Close()

	var out []model.FileRecord
	for rows.Next() {
		var f model.FileRecord
		var category string
		if err := rows.Scan(&f.SessionID, &f.ExternalFileID, &f.OriginalName, &f.Size, &f.MimeType, &category, &f.Checksum, &f.UploadedAt); err != nil {
			return nil, fmt.Errorf("store: scan file: %w", err)
		}
		f.Category = model.FileCategory(category)
		out = append(out, f)
	}
	return out, rows.Err()
}
