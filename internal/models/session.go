package models

import "time"

// Session represents one active play session. It owns the ordered sequence
// of accepted fixes; only a short rolling window is retained in memory.
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	DeviceID  string    `json:"deviceId" db:"device_id"`
	StartedAt time.Time `json:"startedAt" db:"started_at"`
}

// HuntStartRequest starts a new hunt session for a user/device pair.
type HuntStartRequest struct {
	UserID      string `json:"userId" binding:"required"`
	DeviceID    string `json:"deviceId" binding:"required"`
	DeviceModel string `json:"deviceModel"`
	AppVersion  string `json:"appVersion"`
}

// HuntStartResponse carries the session identity and its bearer token.
type HuntStartResponse struct {
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"` // Unix timestamp in seconds
}

// CollectRequest asks to collect a target while it is collectible.
type CollectRequest struct {
	TargetID string `json:"targetId" binding:"required"`
}
