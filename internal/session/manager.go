package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coinhunt/coinhunt-backend-go/internal/anticheat"
	"github.com/coinhunt/coinhunt-backend-go/internal/events"
	"github.com/coinhunt/coinhunt-backend-go/internal/ingest"
	"github.com/coinhunt/coinhunt-backend-go/internal/metrics"
	"github.com/coinhunt/coinhunt-backend-go/internal/models"
)

// ErrSessionNotFound is returned for operations on unknown sessions.
var ErrSessionNotFound = errors.New("session not found")

// Config bundles the per-session engine parameters.
type Config struct {
	Ingest       ingest.Options
	Thresholds   anticheat.Thresholds
	FixQueueSize int
	GracePeriod  time.Duration
}

// Manager starts and stops session workers. Each worker exclusively owns its
// session's state; the manager only holds the registry. A worker returning
// an error (cheat flag persistence failure) cancels the whole group, which
// the server treats as fatal.
type Manager struct {
	cfg  Config
	sink *events.Sink

	group *errgroup.Group
	ctx   context.Context

	mu      sync.RWMutex
	workers map[string]*Worker
}

// NewManager creates a Manager whose workers live under the given context.
func NewManager(ctx context.Context, cfg Config, sink *events.Sink) *Manager {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 10 * time.Minute
	}
	group, gctx := errgroup.WithContext(ctx)
	return &Manager{
		cfg:     cfg,
		sink:    sink,
		group:   group,
		ctx:     gctx,
		workers: make(map[string]*Worker),
	}
}

// StartHunt spins up a worker for a new session.
func (m *Manager) StartHunt(session models.Session) *Worker {
	w := newWorker(session, m.cfg, m.sink)

	m.mu.Lock()
	m.workers[session.ID] = w
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()

	m.group.Go(func() error {
		err := w.run(m.ctx)
		m.remove(session.ID)
		return err
	})
	log.Printf("[SessionManager] started session %s (user=%s device=%s)", session.ID, session.UserID, session.DeviceID)
	return w
}

// Get returns the worker for a session.
func (m *Manager) Get(sessionID string) (*Worker, error) {
	m.mu.RLock()
	w, ok := m.workers[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return w, nil
}

// End tears down a session worker and discards in-flight fixes. Idempotent:
// ending an unknown or already-ended session reports false without error.
func (m *Manager) End(sessionID string) bool {
	m.mu.RLock()
	w, ok := m.workers[sessionID]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	w.requestStop()
	<-w.done
	// The group goroutine also removes on exit; doing it here as well keeps
	// End's postcondition (session gone from the registry) race-free.
	m.remove(sessionID)
	return true
}

func (m *Manager) remove(sessionID string) {
	m.mu.Lock()
	if _, ok := m.workers[sessionID]; ok {
		delete(m.workers, sessionID)
		metrics.ActiveSessions.Dec()
	}
	m.mu.Unlock()
	m.sink.DropSession(sessionID)
}

// ActiveCount returns the number of live session workers.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}

// Shutdown stops all workers and waits for them to drain. The returned error
// is the first fatal worker error, if any.
func (m *Manager) Shutdown() error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.workers))
	for id := range m.workers {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.End(id)
	}
	return m.group.Wait()
}

// Err reports whether the worker group has failed fatally.
func (m *Manager) Err() <-chan struct{} {
	return m.ctx.Done()
}
