// Package sessionregistry is the single mutual-exclusion home for two
// pieces of in-process mutable state: the dedup set of currently-running
// session ids, and the in-memory conversation-history map. A session map
// under one mutex, with no expiry of entries, exposing four operations:
// Claim, Release, AppendMessage, Snapshot.
package sessionregistry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CimplrCorpSaas/internal/logger"
)

// HistoryEntry mirrors a persisted Message row, cached here for fast
// in-process access without round-tripping the Store.
type HistoryEntry struct {
	Role    string
	Content string
	Order   int
}

// MessageStore is the durable side of AppendMessage — satisfied by
// internal/store.Store. Declared here, not imported, so this package has no
// dependency on the persistence layer's concrete type.
type MessageStore interface {
	AppendMessage(ctx context.Context, sessionID, role, content string) (order int, err error)
}

// Registry is the process-wide session registry: claim, release,
// appendMessage, snapshot, with no global singleton required — callers
// hold a *Registry explicitly.
type Registry struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	history  map[string][]HistoryEntry

	store MessageStore

	heartbeatInterval time.Duration
	stopCh            chan struct{}
	wg                sync.WaitGroup
}

// New builds a Registry backed by store for durable message persistence.
func New(store MessageStore) *Registry {
	return &Registry{
		inFlight:          make(map[string]struct{}),
		history:           make(map[string][]HistoryEntry),
		store:             store,
		heartbeatInterval: 30 * time.Second,
		stopCh:            make(chan struct{}),
	}
}

// Claim marks sessionID as running. It returns false when a background
// task for that id is already in flight — the Ingress layer turns that into
// the 409 ANALYSIS_IN_PROGRESS response.
func (r *Registry) Claim(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inFlight[sessionID]; busy {
		return false
	}
	r.inFlight[sessionID] = struct{}{}
	return true
}

// Release frees sessionID's dedup claim. Safe to call more than once and
// safe to call from a deferred panic-recovery path — it never returns an
// error and never panics itself.
func (r *Registry) Release(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, sessionID)
}

// InFlight reports whether sessionID currently holds a claim.
func (r *Registry) InFlight(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, busy := r.inFlight[sessionID]
	return busy
}

// InFlightCount reports how many sessions are currently claimed — consumed
// by the heartbeat loop below.
func (r *Registry) InFlightCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inFlight)
}

// AppendMessage persists the message through the Store (which allocates the
// strictly-increasing per-session order) and mirrors it into the in-memory
// history map for cheap re-reads within the same process lifetime.
func (r *Registry) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	order, err := r.store.AppendMessage(ctx, sessionID, role, content)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.history[sessionID] = append(r.history[sessionID], HistoryEntry{Role: role, Content: content, Order: order})
	r.mu.Unlock()
	return nil
}

// Snapshot returns a copy of sessionID's cached conversation history, in
// append order.
func (r *Registry) Snapshot(sessionID string) []HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	src := r.history[sessionID]
	out := make([]HistoryEntry, len(src))
	copy(out, src)
	return out
}

// Forget drops a session's cached history — called by the cascade-delete
// path so a deleted session's conversation doesn't linger in memory.
func (r *Registry) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.history, sessionID)
	delete(r.inFlight, sessionID)
}

// StartHeartbeat begins periodic audit logging of the in-flight session
// count — ambient ops visibility, not load-bearing for correctness.
func (r *Registry) StartHeartbeat() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stopCh:
				return
			case <-ticker.C:
				if logger.GlobalLogger != nil {
					logger.GlobalLogger.LogAudit(fmt.Sprintf("orchestrator: %d sessions in flight", r.InFlightCount()))
				}
			}
		}
	}()
}

// StopHeartbeat stops the background heartbeat loop and waits for it to exit.
func (r *Registry) StopHeartbeat() {
	close(r.stopCh)
	r.wg.Wait()
}
