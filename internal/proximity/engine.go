package proximity

import (
	"errors"
	"log"

	"github.com/coinhunt/coinhunt-backend-go/internal/geo"
	"github.com/coinhunt/coinhunt-backend-go/internal/models"
)

// Sentinel errors for collect-time races. Both are normal rejected actions:
// the client re-syncs state and retries.
var (
	ErrTargetNotFound = errors.New("target not tracked by this session")
	ErrNotCollectible = errors.New("target is not collectible")
	ErrOutOfRange     = errors.New("target moved out of collection range")
)

// hideRadiusMargin corrects misconfigured targets whose hide radius does not
// exceed the materialization radius.
const hideRadiusMargin = 5.0

type trackedTarget struct {
	target models.Target
	state  models.ProximityState
}

// Engine runs one proximity state machine per activated target for a single
// session. Owned by the session worker, not safe for concurrent use.
type Engine struct {
	sessionID string
	targets   map[string]*trackedTarget
	order     []string // activation order, keeps event emission deterministic
}

// NewEngine creates an Engine for one session.
func NewEngine(sessionID string) *Engine {
	return &Engine{
		sessionID: sessionID,
		targets:   make(map[string]*trackedTarget),
	}
}

// Activate makes a target the subject of an active hunt (Dormant →
// Approaching). Activating an already-tracked target is a no-op.
func (e *Engine) Activate(target models.Target) {
	if _, ok := e.targets[target.ID]; ok {
		return
	}
	if target.HideRadiusMeters <= target.MaterializationRadiusMeters {
		corrected := target.MaterializationRadiusMeters + hideRadiusMargin
		log.Printf("[ProximityEngine] target %s hide radius %.1f <= materialization radius %.1f, corrected to %.1f",
			target.ID, target.HideRadiusMeters, target.MaterializationRadiusMeters, corrected)
		target.HideRadiusMeters = corrected
	}
	e.targets[target.ID] = &trackedTarget{target: target, state: models.StateApproaching}
	e.order = append(e.order, target.ID)
}

// Deactivate drops a target from the hunt (the walked-away / despawn edge
// back to Dormant). Unknown targets are ignored.
func (e *Engine) Deactivate(targetID string) {
	if _, ok := e.targets[targetID]; !ok {
		return
	}
	delete(e.targets, targetID)
	for i, id := range e.order {
		if id == targetID {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Evaluate recomputes every tracked state machine against a fix and returns
// the transitions it fired, in activation order. Re-delivering the same fix
// produces no events: a transition fires only when the computed state differs
// from the stored one.
func (e *Engine) Evaluate(fix *models.LocationFix) []models.TargetEvent {
	var events []models.TargetEvent
	for _, id := range e.order {
		tt := e.targets[id]
		if tt.state == models.StateCollected {
			continue
		}
		dist := geo.DistanceMeters(fix.Latitude, fix.Longitude, tt.target.Latitude, tt.target.Longitude)

		for {
			next, event := e.step(tt, dist)
			if next == tt.state {
				break
			}
			tt.state = next
			if event != "" {
				events = append(events, e.event(event, tt.target, fix, dist))
			}
		}
	}
	return events
}

// step computes a single transition from the current state. It is applied
// repeatedly per fix so that a fix landing straight inside the collection
// radius still passes through Materialized before Collectible.
func (e *Engine) step(tt *trackedTarget, dist float64) (models.ProximityState, models.EventType) {
	t := tt.target
	switch tt.state {
	case models.StateApproaching:
		if dist <= t.MaterializationRadiusMeters {
			return models.StateMaterialized, models.EventMaterialize
		}
	case models.StateMaterialized:
		if dist > t.HideRadiusMeters {
			return models.StateApproaching, models.EventDematerialize
		}
		if dist <= t.CollectionRadiusMeters {
			return models.StateCollectible, models.EventBecameCollectible
		}
	case models.StateCollectible:
		// No demotion back to Materialized: the collect-time range re-check
		// covers the race. Only crossing the hide radius re-hides the coin.
		if dist > t.HideRadiusMeters {
			return models.StateApproaching, models.EventDematerialize
		}
	}
	return tt.state, ""
}

// Collect attempts the external collect action. It is accepted only in the
// Collectible state, and the distance is re-checked against the fix at
// collect time to reject stale client state.
func (e *Engine) Collect(targetID string, fix *models.LocationFix) (*models.TargetEvent, error) {
	tt, ok := e.targets[targetID]
	if !ok {
		return nil, ErrTargetNotFound
	}
	if tt.state != models.StateCollectible {
		return nil, ErrNotCollectible
	}
	dist := geo.DistanceMeters(fix.Latitude, fix.Longitude, tt.target.Latitude, tt.target.Longitude)
	if dist > tt.target.CollectionRadiusMeters {
		return nil, ErrOutOfRange
	}
	tt.state = models.StateCollected
	event := e.event(models.EventCollected, tt.target, fix, dist)
	return &event, nil
}

// State returns the current state of a tracked target.
func (e *Engine) State(targetID string) (models.ProximityState, bool) {
	tt, ok := e.targets[targetID]
	if !ok {
		return models.StateDormant, false
	}
	return tt.state, true
}

// Snapshot reports all tracked targets relative to a fix, in activation
// order. A nil fix yields states without distances.
func (e *Engine) Snapshot(fix *models.LocationFix) []models.TargetSnapshot {
	snaps := make([]models.TargetSnapshot, 0, len(e.order))
	for _, id := range e.order {
		tt := e.targets[id]
		snap := models.TargetSnapshot{TargetID: id, State: tt.state, DistanceMeters: -1}
		if fix != nil {
			snap.DistanceMeters = geo.DistanceMeters(fix.Latitude, fix.Longitude, tt.target.Latitude, tt.target.Longitude)
			snap.BearingDegrees = geo.InitialBearingDegrees(fix.Latitude, fix.Longitude, tt.target.Latitude, tt.target.Longitude)
			snap.Cardinal = geo.CardinalDirection(snap.BearingDegrees)
		}
		snaps = append(snaps, snap)
	}
	return snaps
}

// event builds the outbound message with the target's position in the local
// tangent plane of the triggering fix. The rendering layer places the object
// a fixed viewing distance along this direction, not at the raw GPS offset.
func (e *Engine) event(kind models.EventType, target models.Target, fix *models.LocationFix, dist float64) models.TargetEvent {
	east, north := geo.ToLocalEastNorth(fix.Latitude, fix.Longitude, target.Latitude, target.Longitude)
	return models.TargetEvent{
		Type:           kind,
		SessionID:      e.sessionID,
		TargetID:       target.ID,
		LocalEast:      east,
		LocalNorth:     north,
		DistanceMeters: dist,
		Timestamp:      fix.Timestamp,
	}
}
