package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coinhunt/coinhunt-backend-go/internal/auth"
	"github.com/coinhunt/coinhunt-backend-go/internal/models"
	"github.com/coinhunt/coinhunt-backend-go/internal/repository"
	"github.com/coinhunt/coinhunt-backend-go/internal/session"
)

// ErrTargetUnknown is returned when an activation names a target that is not
// in the catalog.
var ErrTargetUnknown = errors.New("target not found")

// HuntService handles business logic for the hunt lifecycle
type HuntService struct {
	manager     *session.Manager
	sessionRepo *repository.SessionRepository
	targetRepo  *repository.TargetRepository
	tokens      *auth.TokenIssuer
}

// NewHuntService creates a new hunt service
func NewHuntService(manager *session.Manager, sessionRepo *repository.SessionRepository, targetRepo *repository.TargetRepository, tokens *auth.TokenIssuer) *HuntService {
	return &HuntService{
		manager:     manager,
		sessionRepo: sessionRepo,
		targetRepo:  targetRepo,
		tokens:      tokens,
	}
}

// StartHunt creates a session, persists it, starts its worker and issues the
// session token.
func (s *HuntService) StartHunt(req *models.HuntStartRequest) (*models.HuntStartResponse, error) {
	sess := models.Session{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		DeviceID:  req.DeviceID,
		StartedAt: time.Now().UTC(),
	}
	if err := s.sessionRepo.CreateSession(&sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	s.manager.StartHunt(sess)

	token, expiresAt, err := s.tokens.Issue(sess.ID, sess.UserID, sess.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}
	return &models.HuntStartResponse{
		SessionID: sess.ID,
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
	}, nil
}

// ActivateTarget makes a catalog target the active hunt goal for a session.
func (s *HuntService) ActivateTarget(ctx context.Context, sessionID, targetID string) error {
	target, err := s.targetRepo.GetTargetByID(targetID)
	if err != nil {
		return fmt.Errorf("failed to load target: %w", err)
	}
	if target == nil {
		return ErrTargetUnknown
	}
	worker, err := s.manager.Get(sessionID)
	if err != nil {
		return err
	}
	return worker.Activate(ctx, *target)
}

// DeactivateTarget drops a target from a session's hunt.
func (s *HuntService) DeactivateTarget(ctx context.Context, sessionID, targetID string) error {
	worker, err := s.manager.Get(sessionID)
	if err != nil {
		return err
	}
	return worker.Deactivate(ctx, targetID)
}

// Collect attempts the collect action for a session.
func (s *HuntService) Collect(ctx context.Context, sessionID, targetID string) (*models.TargetEvent, error) {
	worker, err := s.manager.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return worker.Collect(ctx, targetID)
}

// State reports the live per-target proximity snapshot for a session.
func (s *HuntService) State(ctx context.Context, sessionID string) ([]models.TargetSnapshot, error) {
	worker, err := s.manager.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return worker.Snapshot(ctx)
}

// GetTargets returns the full target catalog.
func (s *HuntService) GetTargets() ([]models.Target, error) {
	targets, err := s.targetRepo.GetTargets()
	if err != nil {
		return nil, fmt.Errorf("failed to get targets: %w", err)
	}
	return targets, nil
}
