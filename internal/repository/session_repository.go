package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/coinhunt/coinhunt-backend-go/internal/models"
)

// SessionRepository handles database operations for play sessions
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession records a new session.
func (r *SessionRepository) CreateSession(s *models.Session) error {
	_, err := r.db.Exec("INSERT INTO sessions (id, user_id, device_id, started_at) VALUES (?, ?, ?, ?)",
		s.ID, s.UserID, s.DeviceID, s.StartedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// EndSession marks a session as ended. Idempotent: already-ended sessions
// keep their original end time.
func (r *SessionRepository) EndSession(sessionID string, endedAt time.Time) error {
	_, err := r.db.Exec("UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL",
		endedAt.UnixMilli(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// GetSessionByID retrieves a session.
func (r *SessionRepository) GetSessionByID(id string) (*models.Session, error) {
	var s models.Session
	var startedAt int64
	err := r.db.QueryRow("SELECT id, user_id, device_id, started_at FROM sessions WHERE id = ?", id).
		Scan(&s.ID, &s.UserID, &s.DeviceID, &startedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s.StartedAt = time.UnixMilli(startedAt).UTC()
	return &s, nil
}
