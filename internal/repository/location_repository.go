package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/coinhunt/coinhunt-backend-go/internal/models"
)

// LocationRepository handles database operations for accepted fixes and the
// per-user live tracking record
type LocationRepository struct {
	db *sql.DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// InsertFix stores an accepted fix and upserts the user's live tracking
// record in one transaction.
func (r *LocationRepository) InsertFix(locationID, sessionID, userID string, fix *models.LocationFix, movement models.MovementType) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO location_fixes
		(location_id, session_id, user_id, latitude, longitude, altitude, accuracy, heading, speed,
		 is_mock_location, low_confidence, movement_type, data_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		locationID, sessionID, userID,
		fix.Latitude, fix.Longitude, fix.Altitude, fix.AccuracyMeters, fix.HeadingDegrees, fix.SpeedMPS,
		fix.IsMockLocation, fix.LowConfidence, string(movement), fix.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert location fix: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO live_tracking (user_id, session_id, latitude, longitude, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			session_id = excluded.session_id,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			updated_at = excluded.updated_at`,
		userID, sessionID, fix.Latitude, fix.Longitude, fix.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert live tracking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit location fix: %w", err)
	}
	return nil
}

// RemoveLiveTracking deletes the user's live tracking record. Returns the
// number of rows removed so the offline signal can stay idempotent.
func (r *LocationRepository) RemoveLiveTracking(userID string) (int64, error) {
	res, err := r.db.Exec("DELETE FROM live_tracking WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove live tracking: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// GetSessionFixes retrieves the most recent accepted fixes for a session,
// newest first.
func (r *LocationRepository) GetSessionFixes(sessionID string, limit int) ([]models.LocationFix, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := r.db.Query(`SELECT latitude, longitude, altitude, accuracy, heading, speed,
			is_mock_location, low_confidence, data_time
		FROM location_fixes WHERE session_id = ? ORDER BY data_time DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query session fixes: %w", err)
	}
	defer rows.Close()

	var fixes []models.LocationFix
	for rows.Next() {
		var f models.LocationFix
		var dataTime int64
		if err := rows.Scan(&f.Latitude, &f.Longitude, &f.Altitude, &f.AccuracyMeters,
			&f.HeadingDegrees, &f.SpeedMPS, &f.IsMockLocation, &f.LowConfidence, &dataTime); err != nil {
			return nil, fmt.Errorf("failed to scan fix: %w", err)
		}
		f.Timestamp = time.UnixMilli(dataTime).UTC()
		fixes = append(fixes, f)
	}
	return fixes, rows.Err()
}
