package events

import (
	"fmt"
	"sync"

	"github.com/coinhunt/coinhunt-backend-go/internal/metrics"
	"github.com/coinhunt/coinhunt-backend-go/internal/models"
)

// FlagStore is the append-only cheat flag ledger shared across sessions.
type FlagStore interface {
	Append(flag *models.CheatFlag) error
}

// Sink is the single outward interface of the engine. Render events are
// fanned out through the Hub and coalesced to the latest state per target;
// cheat flags are persisted synchronously and never dropped — a failed
// append is returned to the session worker, which escalates.
type Sink struct {
	hub   *Hub
	flags FlagStore

	mu     sync.Mutex
	latest map[string]map[string]models.TargetEvent // session -> target -> latest event
}

// NewSink creates a Sink writing flags to the given store.
func NewSink(hub *Hub, flags FlagStore) *Sink {
	return &Sink{
		hub:    hub,
		flags:  flags,
		latest: make(map[string]map[string]models.TargetEvent),
	}
}

// PublishTargetEvents forwards proximity transitions to the rendering side
// and records the latest state per target for replay to late subscribers.
func (s *Sink) PublishTargetEvents(sessionID string, evs []models.TargetEvent) {
	if len(evs) == 0 {
		return
	}
	s.mu.Lock()
	if s.latest[sessionID] == nil {
		s.latest[sessionID] = make(map[string]models.TargetEvent)
	}
	for _, ev := range evs {
		s.latest[sessionID][ev.TargetID] = ev
	}
	s.mu.Unlock()

	for _, ev := range evs {
		s.hub.Publish(sessionID, ev)
		metrics.TargetEvents.WithLabelValues(string(ev.Type)).Inc()
	}
}

// Replay returns the latest retained event per target for a session, for a
// subscriber that attached after transitions already fired.
func (s *Sink) Replay(sessionID string) []models.TargetEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	evs := make([]models.TargetEvent, 0, len(s.latest[sessionID]))
	for _, ev := range s.latest[sessionID] {
		evs = append(evs, ev)
	}
	return evs
}

// PublishFlag appends a cheat flag to the ledger. Evidence loss undermines
// the whole pipeline, so persistence failures propagate instead of being
// swallowed.
func (s *Sink) PublishFlag(flag *models.CheatFlag) error {
	if err := s.flags.Append(flag); err != nil {
		return fmt.Errorf("failed to persist cheat flag %s: %w", flag.FlagID, err)
	}
	metrics.CheatFlags.WithLabelValues(string(flag.Reason), string(flag.Severity)).Inc()
	return nil
}

// DropSession discards retained state for an ended session.
func (s *Sink) DropSession(sessionID string) {
	s.mu.Lock()
	delete(s.latest, sessionID)
	s.mu.Unlock()
}

// Subscribe attaches a render consumer to a session's event stream.
func (s *Sink) Subscribe(sessionID string, buffer int) chan []byte {
	return s.hub.Subscribe(sessionID, buffer)
}

// Unsubscribe detaches a render consumer.
func (s *Sink) Unsubscribe(sessionID string, ch chan []byte) {
	s.hub.Unsubscribe(sessionID, ch)
}
