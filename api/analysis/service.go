package analysis

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"CimplrCorpSaas/internal/logger"
	"CimplrCorpSaas/internal/orchestrator"
	"CimplrCorpSaas/internal/serviceiface"
)

// Service wraps the ingress router in an http.Server, started and stopped
// through the same serviceiface.Service contract every other service in
// the app manager satisfies.
type Service struct {
	orch          *orchestrator.Orchestrator
	store         Store
	registry      Registry
	port          string
	maxFileSize   int64
	corsAllowList []string
	shutdown      time.Duration

	server *http.Server
}

// Deps bundles the already-constructed collaborators a Service needs.
// These come out of cmd/main.go's wiring, not out of services.yaml — a
// YAML config block can express a port or a timeout, never a live
// *orchestrator.Orchestrator.
type Deps struct {
	Orchestrator    *orchestrator.Orchestrator
	Store           Store
	Registry        Registry
	Port            string
	MaxFileSize     int64
	CORSAllowList   []string
	ShutdownTimeout time.Duration
}

// NewService builds the ingress Service. cfg is accepted for symmetry with
// the other service constructors in the app manager's registry, but the
// live collaborators travel through deps since they can't round-trip
// through YAML.
func NewService(cfg map[string]interface{}, deps Deps) serviceiface.Service {
	return &Service{
		orch:          deps.Orchestrator,
		store:         deps.Store,
		registry:      deps.Registry,
		port:          deps.Port,
		maxFileSize:   deps.MaxFileSize,
		corsAllowList: deps.CORSAllowList,
		shutdown:      deps.ShutdownTimeout,
	}
}

func (s *Service) Name() string {
	return "analysis"
}

func (s *Service) Start() error {
	router := NewRouter(s.orch, s.store, s.registry, s.maxFileSize, s.corsAllowList)
	s.server = &http.Server{
		Addr:    ":" + s.port,
		Handler: router,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger.GlobalLogger != nil {
				logger.GlobalLogger.LogAudit(fmt.Sprintf("analysis: server error: %v", err))
			}
		}
	}()

	return nil
}

func (s *Service) Stop() error {
	if s.server == nil {
		return nil
	}
	timeout := s.shutdown
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
