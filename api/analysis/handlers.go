// Package analysis implements the HTTP ingress surface: multipart
// submission, session/report retrieval, and the liveness probes. Handlers
// follow a func XHandler(deps...) http.Handler constructor style, so every
// dependency is explicit at wiring time instead of reached through a
// global.
package analysis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"CimplrCorpSaas/api"
	"CimplrCorpSaas/api/constants"
	"CimplrCorpSaas/internal/logger"
	"CimplrCorpSaas/internal/model"
	"CimplrCorpSaas/internal/orchestrator"
)

// Store is the subset of internal/store.Store the ingress layer calls.
type Store interface {
	GetBySession(ctx context.Context, sessionID string) (*model.Session, error)
	ListRecent(ctx context.Context, limit int) ([]*model.Session, error)
	GetMessages(ctx context.Context, sessionID string) ([]model.Message, error)
	CascadeDelete(ctx context.Context, sessionID string) (bool, error)
}

// Registry is the subset of internal/sessionregistry.Registry the ingress
// layer calls, so a delete can also drop the in-process dedup claim.
type Registry interface {
	Forget(sessionID string)
}

const recentReportsLimit = 100

var startedAt = time.Now().UTC()

// HealthHandler reports liveness without touching the DB or any adapter —
// a process that can answer this is a process that should stay in rotation.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.RespondWithPayload(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"uptime": time.Since(startedAt).String(),
		})
	})
}

// PingHandler is the minimal liveness probe.
func PingHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})
}

// SubmitHandler parses the multipart submission, enforces the per-file size
// ceiling, and hands the files to the orchestrator. The pipeline itself runs
// in the background; this handler only reports whether the claim succeeded.
func SubmitHandler(orch *orchestrator.Orchestrator, maxFileSize int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			api.RespondWithError(w, http.StatusMethodNotAllowed, "", constants.ErrMethodNotAllowed)
			return
		}

		if err := r.ParseMultipartForm(maxFileSize + (1 << 20)); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.CodeFileTooLarge, constants.ErrFileTooLarge)
			return
		}
		defer r.MultipartForm.RemoveAll()

		fileHeaders := r.MultipartForm.File["files"]
		if len(fileHeaders) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.CodeFilesRequired, constants.ErrFilesRequired)
			return
		}

		files := make([]orchestrator.UploadedFile, 0, len(fileHeaders))
		for _, fh := range fileHeaders {
			if fh.Size > maxFileSize {
				api.RespondWithError(w, http.StatusBadRequest, constants.CodeFileTooLarge, constants.ErrFileTooLarge)
				return
			}
			f, err := fh.Open()
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, "", "failed to open uploaded file: "+err.Error())
				return
			}
			data := make([]byte, fh.Size)
			_, err = io.ReadFull(f, data)
			f.Close()
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, "", "failed to read uploaded file: "+err.Error())
				return
			}
			files = append(files, orchestrator.UploadedFile{
				Name: fh.Filename,
				Mime: fh.Header.Get("Content-Type"),
				Data: data,
			})
		}

		comment := r.FormValue("comment")
		var metadata map[string]interface{}
		if raw := r.FormValue("metadata"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
				api.RespondWithError(w, http.StatusBadRequest, "", constants.ErrInvalidJSON)
				return
			}
		}

		sessionID := r.FormValue("sessionId")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		result, err := orch.Submit(r.Context(), sessionID, comment, metadata, files)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.CodeUpstreamUnavailable, err.Error())
			return
		}
		if result.Conflict {
			api.RespondWithError(w, http.StatusConflict, constants.CodeAnalysisInProgress, constants.ErrAnalysisInProgress)
			return
		}

		api.RespondWithPayload(w, http.StatusAccepted, map[string]interface{}{
			"sessionId": sessionID,
			"status":    string(model.StatusGenerating),
		})
	})
}

// ListReportsHandler returns the most recent sessions, newest first.
func ListReportsHandler(st Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessions, err := st.ListRecent(r.Context(), recentReportsLimit)
		if err != nil {
			if logger.GlobalLogger != nil {
				logger.GlobalLogger.LogAudit("analysis: list reports: " + err.Error())
			}
			api.RespondWithError(w, http.StatusInternalServerError, constants.CodeUpstreamUnavailable, constants.ErrUpstreamUnavailable)
			return
		}
		api.RespondWithPayload(w, http.StatusOK, sessions)
	})
}

// GetReportHandler returns a single session with its rendered report-text.
func GetReportHandler(st Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := mux.Vars(r)["sessionId"]
		sess, err := st.GetBySession(r.Context(), sessionID)
		if err != nil {
			if logger.GlobalLogger != nil {
				logger.GlobalLogger.LogAudit("analysis: get report: " + err.Error())
			}
			api.RespondWithError(w, http.StatusInternalServerError, constants.CodeUpstreamUnavailable, constants.ErrUpstreamUnavailable)
			return
		}
		if sess == nil {
			api.RespondWithError(w, http.StatusNotFound, constants.CodeReportNotFound, constants.ErrReportNotFound)
			return
		}
		api.RespondWithPayload(w, http.StatusOK, sess)
	})
}

// GetMessagesHandler returns a session's messages ordered by message-order.
func GetMessagesHandler(st Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := mux.Vars(r)["sessionId"]
		sess, err := st.GetBySession(r.Context(), sessionID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.CodeUpstreamUnavailable, constants.ErrUpstreamUnavailable)
			return
		}
		if sess == nil {
			api.RespondWithError(w, http.StatusNotFound, constants.CodeReportNotFound, constants.ErrReportNotFound)
			return
		}

		messages, err := st.GetMessages(r.Context(), sessionID)
		if err != nil {
			if logger.GlobalLogger != nil {
				logger.GlobalLogger.LogAudit("analysis: get messages: " + err.Error())
			}
			api.RespondWithError(w, http.StatusInternalServerError, constants.CodeUpstreamUnavailable, constants.ErrUpstreamUnavailable)
			return
		}
		api.RespondWithPayload(w, http.StatusOK, messages)
	})
}

// DeleteReportHandler cascades the delete to messages, files, and the
// report row, and drops the in-process dedup claim so a same-id resubmit
// after deletion isn't mistaken for a still-running session.
func DeleteReportHandler(st Store, reg Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := mux.Vars(r)["sessionId"]
		deleted, err := st.CascadeDelete(r.Context(), sessionID)
		if err != nil {
			if logger.GlobalLogger != nil {
				logger.GlobalLogger.LogAudit("analysis: delete report: " + err.Error())
			}
			api.RespondWithError(w, http.StatusInternalServerError, constants.CodeUpstreamUnavailable, constants.ErrUpstreamUnavailable)
			return
		}
		if !deleted {
			api.RespondWithError(w, http.StatusNotFound, constants.CodeReportNotFound, constants.ErrReportNotFound)
			return
		}
		reg.Forget(sessionID)
		w.WriteHeader(http.StatusNoContent)
	})
}
