package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/coinhunt/coinhunt-backend-go/internal/models"
	"github.com/coinhunt/coinhunt-backend-go/internal/repository"
	"github.com/coinhunt/coinhunt-backend-go/internal/session"
)

// LocationService handles business logic for the inbound location stream
type LocationService struct {
	manager      *session.Manager
	locationRepo *repository.LocationRepository
	sessionRepo  *repository.SessionRepository
}

// NewLocationService creates a new location service
func NewLocationService(manager *session.Manager, locationRepo *repository.LocationRepository, sessionRepo *repository.SessionRepository) *LocationService {
	return &LocationService{
		manager:      manager,
		locationRepo: locationRepo,
		sessionRepo:  sessionRepo,
	}
}

// HandleUpdate routes a location update into the session worker and persists
// the accepted fix.
func (s *LocationService) HandleUpdate(ctx context.Context, sessionID string, req *models.LocationUpdateRequest) (*models.LocationUpdateResponse, error) {
	worker, err := s.manager.Get(sessionID)
	if err != nil {
		return nil, err
	}

	ts := time.Now()
	if req.ClientTimestamp > 0 {
		ts = time.UnixMilli(req.ClientTimestamp).UTC()
	}
	fix := &models.LocationFix{
		Latitude:       *req.Latitude,
		Longitude:      *req.Longitude,
		Altitude:       req.Altitude,
		AccuracyMeters: req.AccuracyMeters,
		HeadingDegrees: req.Heading,
		SpeedMPS:       req.SpeedMPS,
		IsMockLocation: req.IsMockLocation,
		Timestamp:      ts,
	}

	outcome, err := worker.SubmitFix(ctx, fix)
	if err != nil {
		return nil, err
	}

	locationID := uuid.NewString()
	if err := s.locationRepo.InsertFix(locationID, sessionID, req.UserID, outcome.Fix, outcome.MovementType); err != nil {
		// The engine already applied the fix; losing the history row is
		// recoverable, unlike a lost cheat flag.
		log.Printf("[LocationService] failed to persist fix for session %s: %v", sessionID, err)
	}

	return &models.LocationUpdateResponse{
		Success:      true,
		LocationID:   locationID,
		MovementType: outcome.MovementType,
		Timestamp:    outcome.Fix.Timestamp.UnixMilli(),
	}, nil
}

// HandleOffline removes the user's live-tracking record and tears down the
// session worker. Idempotent: signalling an already-offline session succeeds.
func (s *LocationService) HandleOffline(sessionID, userID string) error {
	s.manager.End(sessionID)
	if err := s.sessionRepo.EndSession(sessionID, time.Now()); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if _, err := s.locationRepo.RemoveLiveTracking(userID); err != nil {
		return fmt.Errorf("failed to remove live tracking: %w", err)
	}
	return nil
}

// GetSessionFixes returns the recent accepted fixes of a session for
// diagnostics.
func (s *LocationService) GetSessionFixes(sessionID string, limit int) ([]models.LocationFix, error) {
	if limit < 1 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	fixes, err := s.locationRepo.GetSessionFixes(sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get session fixes: %w", err)
	}
	return fixes, nil
}
