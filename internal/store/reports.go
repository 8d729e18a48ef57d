package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CimplrCorpSaas/internal/model"
)

// ReportUpsert carries the fields of a single upsertReport call. A nil
// field is left untouched on the existing row: update all non-null fields,
// preserve existing non-null scalars for fields passed as null.
type ReportUpsert struct {
	Status       *model.SessionStatus
	CompletedAt  *time.Time
	GeneratedAt  *time.Time
	Structured   *model.ReportStructured
	Text         *string
	OpenAIStatus *model.OpenAIStatus
}

// UpsertReport is the Store's one idempotent write for the terminal
// artifact, safe to call repeatedly including with a partial payload
// mid-processing: partial reports during processing are valid and reflect
// current progress.
func (s *Store) UpsertReport(ctx context.Context, sessionID string, u ReportUpsert) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: upsert report: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var statusVal *string
	if u.Status != nil {
		v := string(*u.Status)
		statusVal = &v
	}
	if _, err := tx.Exec(ctx, `
		UPDATE sessions SET
			status = COALESCE($2, status),
			completed_at = COALESCE($3, completed_at)
		WHERE session_id = $1
	`, sessionID, statusVal, u.CompletedAt); err != nil {
		return fmt.Errorf("store: upsert report: update session: %w", err)
	}

	var structuredJSON []byte
	if u.Structured != nil {
		structuredJSON, err = json.Marshal(u.Structured)
		if err != nil {
			return fmt.Errorf("store: upsert report: marshal structured: %w", err)
		}
	}
	var openaiStatusVal *string
	if u.OpenAIStatus != nil {
		v := string(*u.OpenAIStatus)
		openaiStatusVal = &v
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO reports (session_id, generated_at, report_structured, report_text, openai_status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET
			generated_at = COALESCE(EXCLUDED.generated_at, reports.generated_at),
			report_structured = COALESCE(EXCLUDED.report_structured, reports.report_structured),
			report_text = COALESCE(EXCLUDED.report_text, reports.report_text),
			openai_status = COALESCE(EXCLUDED.openai_status, reports.openai_status)
	`, sessionID, u.GeneratedAt, nullIfEmpty(structuredJSON), u.Text, openaiStatusVal); err != nil {
		return fmt.Errorf("store: upsert report: %s: %w", friendlyError(err), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: upsert report: commit: %w", err)
	}
	return nil
}

func nullIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
