package api

import (
	"encoding/json"
	"log"
	"net/http"

	"CimplrCorpSaas/internal/logger"
)

// ErrorEnvelope is the {success:false, error, code} shape every failing
// /api/* handler returns.
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// RespondWithError writes the standard failure envelope, logging through
// logger.GlobalLogger when available and falling back to the stdlib logger
// otherwise.
func RespondWithError(w http.ResponseWriter, status int, code, errMsg string) {
	logMsg := errMsg
	if code != "" {
		logMsg = code + ": " + errMsg
	}
	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit(logMsg)
	} else {
		log.Println("[ERROR]", logMsg)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorEnvelope{Success: false, Error: errMsg, Code: code})
}

// RespondWithPayload sends a consistent {success:true, data:...} JSON
// envelope.
func RespondWithPayload(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    payload,
	})
}
