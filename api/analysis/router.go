package analysis

import (
	"net/http"

	"github.com/gorilla/mux"

	"CimplrCorpSaas/internal/orchestrator"
)

// NewRouter builds the full ingress surface. /health and /ping bypass the
// no-cache middleware (they're expected to be polled rapidly by an external
// prober) but still pick up CORS, since some dashboards call them directly
// from the browser.
func NewRouter(orch *orchestrator.Orchestrator, st Store, reg Registry, maxFileSize int64, corsAllowList []string) *mux.Router {
	router := mux.NewRouter()

	cors := CORS(corsAllowList)

	router.Handle("/health", cors(HealthHandler())).Methods(http.MethodGet, http.MethodOptions)
	router.Handle("/ping", cors(PingHandler())).Methods(http.MethodGet, http.MethodOptions)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(cors, NoCache)

	apiRouter.Handle("/analysis", SubmitHandler(orch, maxFileSize)).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.Handle("/reports", ListReportsHandler(st)).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.Handle("/reports/{sessionId}", GetReportHandler(st)).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.Handle("/reports/{sessionId}/messages", GetMessagesHandler(st)).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.Handle("/reports/{sessionId}", DeleteReportHandler(st, reg)).Methods(http.MethodDelete, http.MethodOptions)

	return router
}
