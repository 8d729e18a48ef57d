package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"CimplrCorpSaas/internal/model"
)

// CreateGenerating persists the initial `generating` row for a session. A
// resubmission of a previously-completed session id resets the row to
// `generating` and clears completed_at/the prior report, since a fresh
// analysis is starting.
func (s *Store) CreateGenerating(ctx context.Context, sessionID, comment string, metadata map[string]interface{}, filesCount int) error {
	metaJSON, err := marshalOrNil(metadata)
	if err != nil {
		return fmt.Errorf("store: marshal metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, comment, metadata, status, files_count, created_at, completed_at)
		VALUES ($1, $2, $3, 'generating', $4, now(), NULL)
		ON CONFLICT (session_id) DO UPDATE SET
			comment = EXCLUDED.comment,
			metadata = EXCLUDED.metadata,
			status = 'generating',
			files_count = EXCLUDED.files_count,
			completed_at = NULL
	`, sessionID, comment, metaJSON, filesCount)
	if err != nil {
		return fmt.Errorf("store: create session: %s: %w", friendlyError(err), err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM reports WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("store: clear prior report: %w", err)
	}
	return nil
}

// SetFilesData updates the canonical files-data summary column once all
// uploaded files have been categorized.
func (s *Store) SetFilesData(ctx context.Context, sessionID string, filesData []model.FilesDataEntry) error {
	data, err := json.Marshal(filesData)
	if err != nil {
		return fmt.Errorf("store: marshal files_data: %w", err)
	}
	_, err = s.pool.Exec(ctx, `UPDATE sessions SET files_data = $2 WHERE session_id = $1`, sessionID, data)
	if err != nil {
		return fmt.Errorf("store: set files_data: %w", err)
	}
	return nil
}

// SetStatus writes a bare status transition without touching the report
// row. The orchestrator's failure path and the reconciliation refresh write
// status through UpsertReport instead.
func (s *Store) SetStatus(ctx context.Context, sessionID string, status model.SessionStatus, completedAt *time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sessions SET status = $2, completed_at = COALESCE($3, completed_at)
		WHERE session_id = $1
	`, sessionID, string(status), completedAt)
	if err != nil {
		return fmt.Errorf("store: set status: %w", err)
	}
	return nil
}

// SetOpenAIResponseID records the LLM provider's response id for later
// reconciliation.
func (s *Store) SetOpenAIResponseID(ctx context.Context, sessionID, responseID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE sessions SET openai_response_id = $2 WHERE session_id = $1`, sessionID, responseID)
	if err != nil {
		return fmt.Errorf("store: set openai_response_id: %w", err)
	}
	return nil
}

const selectSessionColumns = `
	s.session_id, s.comment, s.metadata, s.created_at, s.completed_at, s.status,
	s.files_count, s.files_data, s.openai_response_id,
	r.generated_at, r.report_structured, r.report_text, r.openai_status
`

// GetBySession fetches a session with its report (if any), left-joined so a
// still-`generating` session with no report row yet still returns.
func (s *Store) GetBySession(ctx context.Context, sessionID string) (*model.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+selectSessionColumns+`
		FROM sessions s
		LEFT JOIN reports r ON r.session_id = s.session_id
		WHERE s.session_id = $1
	`, sessionID)
	sess, err := scanSession(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get session: %w", err)
	}
	return sess, nil
}

// ListRecent returns the limit most recent sessions, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*model.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+selectSessionColumns+`
		FROM sessions s
		LEFT JOIN reports r ON r.session_id = s.session_id
		ORDER BY s.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list recent: %w", err)
	}
	defer rows.Close()

	var out []*model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// CascadeDelete removes a session and, via ON DELETE CASCADE, its files,
// messages, and report row. Returns (false, nil) when the session didn't
// exist, letting the caller respond 404.
func (s *Store) CascadeDelete(ctx context.Context, sessionID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return false, fmt.Errorf("store: cascade delete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// rowScanner abstracts over pgx.Row and pgx.Rows, both of which expose Scan
// with the same signature.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	var (
		sessionID, comment, status string
		openaiResponseID                             *string
		metadataRaw, filesDataRaw                    []byte
		createdAt                                     time.Time
		completedAt                                    *time.Time
		filesCount                                    int
		reportGeneratedAt                              *time.Time
		reportStructuredRaw                            []byte
		reportText                                      *string
		openaiStatus                                    *string
	)

	if err := row.Scan(
		&sessionID, &comment, &metadataRaw, &createdAt, &completedAt, &status,
		&filesCount, &filesDataRaw, &openaiResponseID,
		&reportGeneratedAt, &reportStructuredRaw, &reportText, &openaiStatus,
	); err != nil {
		return nil, err
	}

	sess := &model.Session{
		SessionID:        sessionID,
		Comment:          comment,
		CreatedAt:        createdAt,
		CompletedAt:      completedAt,
		Status:           model.SessionStatus(status),
		FilesCount:       filesCount,
	}
	if openaiResponseID != nil {
		sess.OpenAIResponseID = *openaiResponseID
	}

	if len(metadataRaw) > 0 {
		_ = json.Unmarshal(metadataRaw, &sess.Metadata)
	}
	if len(filesDataRaw) > 0 {
		_ = json.Unmarshal(filesDataRaw, &sess.FilesData)
	}

	if reportText != nil || len(reportStructuredRaw) > 0 {
		report := &model.Report{SessionID: sessionID}
		if reportGeneratedAt != nil {
			report.GeneratedAt = *reportGeneratedAt
		}
		if reportText != nil {
			report.Text = *reportText
		}
		if openaiStatus != nil {
			report.OpenAIStatus = model.OpenAIStatus(*openaiStatus)
		}
		if len(reportStructuredRaw) > 0 {
			_ = json.Unmarshal(reportStructuredRaw, &report.Structured)
		}
		sess.Report = report
	}

	return sess, nil
}

func marshalOrNil(v map[string]interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
