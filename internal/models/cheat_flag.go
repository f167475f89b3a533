package models

import "time"

// CheatReason identifies the heuristic that raised a flag.
type CheatReason string

const (
	ReasonImpossibleSpeed CheatReason = "impossible_speed"
	ReasonTeleportation   CheatReason = "teleportation"
	ReasonMockLocation    CheatReason = "mock_location"
	ReasonGPSSpoofing     CheatReason = "gps_spoofing"
)

// Severity tiers for cheat flags.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Flag resolution constants. Flags are append-only for the engine; an
// external moderation workflow sets the resolution.
const (
	ResolutionConfirmed = "CONFIRMED"
	ResolutionDismissed = "DISMISSED"
)

// FlagEvidence is the full evidence payload attached to every flag.
// PrevFix is nil for single-fix checks (accuracy, mock hint).
type FlagEvidence struct {
	PrevFix          *LocationFix `json:"prevFix,omitempty"`
	CurrFix          *LocationFix `json:"currFix"`
	DistanceMeters   float64      `json:"distanceMeters,omitempty"`
	TimeDeltaSeconds float64      `json:"timeDeltaSeconds,omitempty"`
	SpeedKMH         float64      `json:"speedKmh,omitempty"`
	DeviceID         string       `json:"deviceId,omitempty"`
}

// CheatFlag records a suspicion of illegitimate play. Never mutated by the
// engine; moderation may attach a resolution.
type CheatFlag struct {
	ID         int64        `json:"id" db:"id"`
	FlagID     string       `json:"flagId" db:"flag_id"`
	SessionID  string       `json:"sessionId" db:"session_id"`
	UserID     string       `json:"userId" db:"user_id"`
	Reason     CheatReason  `json:"reason" db:"reason"`
	Severity   Severity     `json:"severity" db:"severity"`
	Evidence   FlagEvidence `json:"evidence" db:"evidence"`
	DetectedAt time.Time    `json:"detectedAt" db:"detected_at"`
	Resolution string       `json:"resolution,omitempty" db:"resolution"`
	ResolvedAt *time.Time   `json:"resolvedAt,omitempty" db:"resolved_at"`
}

// CheatFlagFilter represents filter parameters for querying cheat flags.
type CheatFlagFilter struct {
	SessionID string `form:"sessionId"`
	UserID    string `form:"userId"`
	Reason    string `form:"reason"`
	Severity  string `form:"severity"`
	StartTime int64  `form:"startTime"` // Unix timestamp in seconds
	EndTime   int64  `form:"endTime"`   // Unix timestamp in seconds
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// CheatFlagsResponse represents a paginated response of cheat flags.
type CheatFlagsResponse struct {
	Data       []CheatFlag `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// CheatFlagStats is the aggregate view consumed by moderation dashboards.
type CheatFlagStats struct {
	TotalFlags       int64            `json:"totalFlags"`
	ByReason         map[string]int64 `json:"byReason"`
	BySeverity       map[string]int64 `json:"bySeverity"`
	LastDay          int64            `json:"lastDay"`
	LastWeek         int64            `json:"lastWeek"`
	LastMonth        int64            `json:"lastMonth"`
	ConfirmedUsers   int64            `json:"confirmedUsers"`
	DistinctSessions int64            `json:"distinctSessions"`
}
