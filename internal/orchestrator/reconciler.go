package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"CimplrCorpSaas/internal/logger"
	"CimplrCorpSaas/internal/model"
)

// Reconciler periodically refreshes sessions whose status is still
// `generating` even though an LLM call was recorded against them, on a
// cron.New()/AddFunc schedule instead of being called ad hoc.
type Reconciler struct {
	orchestrator *Orchestrator
	schedule     string
	staleAfter   time.Duration
	cron         *cron.Cron
}

// NewReconciler builds a Reconciler that sweeps on schedule (a standard
// 5-field cron expression) and considers a generating session stuck once it
// has run longer than staleAfter.
func NewReconciler(o *Orchestrator, schedule string, staleAfter time.Duration) *Reconciler {
	return &Reconciler{orchestrator: o, schedule: schedule, staleAfter: staleAfter, cron: cron.New()}
}

// Name satisfies serviceiface.Service.
func (r *Reconciler) Name() string {
	return "reconciler"
}

// Start schedules the sweep and returns once registered; the sweep itself
// runs on the cron goroutine.
func (r *Reconciler) Start() error {
	_, err := r.cron.AddFunc(r.schedule, func() {
		r.sweep(context.Background())
	})
	if err != nil {
		return fmt.Errorf("reconciler: schedule sweep: %w", err)
	}
	r.cron.Start()
	return nil
}

// Stop halts the schedule, waiting for any in-flight sweep to finish.
func (r *Reconciler) Stop() error {
	<-r.cron.Stop().Done()
	return nil
}

// sweep lists recent sessions and refreshes every one that looks stuck: a
// response id was recorded (the LLM call was dispatched) but status never
// moved off `generating`. With the synchronous, single-call LLM adapter
// used here, such a session can only mean the process exited mid-flight —
// refresh marks it failed rather than leaving it generating forever.
func (r *Reconciler) sweep(ctx context.Context) {
	sessions, err := r.orchestrator.store.ListRecent(ctx, 100)
	if err != nil {
		if logger.GlobalLogger != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("reconciler: list recent failed: %v", err))
		}
		return
	}

	now := r.orchestrator.now()
	for _, s := range sessions {
		if s.Status != model.StatusGenerating || s.OpenAIResponseID == "" {
			continue
		}
		if now.Sub(s.CreatedAt) < r.staleAfter {
			continue
		}
		if err := r.orchestrator.Refresh(ctx, s.SessionID); err != nil && logger.GlobalLogger != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("reconciler: refresh failed for %s: %v", s.SessionID, err))
		}
	}
}

// Refresh is idempotent and safe to call repeatedly: a no-op for any
// session that isn't stuck in `generating` with a recorded response id.
func (o *Orchestrator) Refresh(ctx context.Context, sessionID string) error {
	sess, err := o.store.GetBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("orchestrator: refresh: %w", err)
	}
	if sess == nil || sess.Status != model.StatusGenerating || sess.OpenAIResponseID == "" {
		return nil
	}
	if o.registry.InFlight(sessionID) {
		return nil
	}
	o.fail(ctx, sessionID, "session did not complete before the process restarted")
	return nil
}
