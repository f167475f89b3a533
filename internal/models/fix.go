package models

import "time"

// LocationFix represents a single validated GPS reading for a session.
// Immutable once created; LowConfidence is set by ingest when the reported
// accuracy exceeds the configured ceiling.
type LocationFix struct {
	Latitude       float64   `json:"latitude" db:"latitude"`
	Longitude      float64   `json:"longitude" db:"longitude"`
	Altitude       float64   `json:"altitude,omitempty" db:"altitude"`
	AccuracyMeters float64   `json:"accuracyMeters" db:"accuracy"`
	HeadingDegrees float64   `json:"headingDegrees,omitempty" db:"heading"`
	SpeedMPS       float64   `json:"speedMps,omitempty" db:"speed"`
	IsMockLocation bool      `json:"isMockLocation" db:"is_mock_location"`
	Timestamp      time.Time `json:"timestamp" db:"data_time"`
	LowConfidence  bool      `json:"lowConfidence,omitempty" db:"low_confidence"`
}

// MovementType is a coarse qualitative speed bucket derived from the implied
// speed between two consecutive fixes.
type MovementType string

const (
	MovementWalking    MovementType = "walking"
	MovementRunning    MovementType = "running"
	MovementDriving    MovementType = "driving"
	MovementSuspicious MovementType = "suspicious"
)

// LocationUpdateRequest is the inbound location wire message.
type LocationUpdateRequest struct {
	UserID          string   `json:"userId" binding:"required"`
	Latitude        *float64 `json:"latitude" binding:"required"`
	Longitude       *float64 `json:"longitude" binding:"required"`
	Altitude        float64  `json:"altitude"`
	AccuracyMeters  float64  `json:"accuracyMeters"`
	Heading         float64  `json:"heading"`
	SpeedMPS        float64  `json:"speedMps"`
	DeviceID        string   `json:"deviceId"`
	DeviceModel     string   `json:"deviceModel"`
	AppVersion      string   `json:"appVersion"`
	SessionID       string   `json:"sessionId"`
	IsArActive      bool     `json:"isArActive"`
	IsMockLocation  bool     `json:"isMockLocation"`
	ClientTimestamp int64    `json:"clientTimestamp"` // Unix timestamp in milliseconds
}

// LocationUpdateResponse is returned for every accepted location update.
type LocationUpdateResponse struct {
	Success      bool         `json:"success"`
	LocationID   string       `json:"locationId,omitempty"`
	MovementType MovementType `json:"movementType"`
	Timestamp    int64        `json:"timestamp"` // Unix timestamp in milliseconds
}
