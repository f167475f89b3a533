package models

import "time"

// EventType identifies an outbound proximity transition.
type EventType string

const (
	EventMaterialize       EventType = "materialize"
	EventDematerialize     EventType = "dematerialize"
	EventBecameCollectible EventType = "became_collectible"
	EventCollected         EventType = "collected"
)

// TargetEvent is the outbound message for the rendering layer. LocalEast and
// LocalNorth are meters in the tangent plane centered on the triggering fix.
type TargetEvent struct {
	Type           EventType `json:"type"`
	SessionID      string    `json:"sessionId"`
	TargetID       string    `json:"targetId"`
	LocalEast      float64   `json:"localEast"`
	LocalNorth     float64   `json:"localNorth"`
	DistanceMeters float64   `json:"distanceMeters"`
	Timestamp      time.Time `json:"timestamp"`
}
