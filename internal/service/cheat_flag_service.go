package service

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/coinhunt/coinhunt-backend-go/internal/models"
	"github.com/coinhunt/coinhunt-backend-go/internal/repository"
)

// Moderation errors surfaced to the handler layer.
var (
	ErrFlagNotFound      = errors.New("cheat flag not found")
	ErrInvalidResolution = errors.New("invalid resolution")
)

// CheatFlagService handles business logic for the moderation view of the
// flag ledger
type CheatFlagService struct {
	flagRepo *repository.CheatFlagRepository
}

// NewCheatFlagService creates a new cheat flag service
func NewCheatFlagService(flagRepo *repository.CheatFlagRepository) *CheatFlagService {
	return &CheatFlagService{flagRepo: flagRepo}
}

// GetFlags retrieves cheat flags with filtering and pagination
func (s *CheatFlagService) GetFlags(filter models.CheatFlagFilter) (*models.CheatFlagsResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	if filter.PageSize > 1000 {
		filter.PageSize = 1000
	}

	flags, total, err := s.flagRepo.GetFlags(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get cheat flags: %w", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.PageSize)))
	return &models.CheatFlagsResponse{
		Data:       flags,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

// GetStats aggregates the ledger for the moderation stats view.
func (s *CheatFlagService) GetStats() (*models.CheatFlagStats, error) {
	stats, err := s.flagRepo.GetStats(time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to get cheat flag stats: %w", err)
	}
	return stats, nil
}

// Resolve attaches an external moderation verdict to a flag.
func (s *CheatFlagService) Resolve(flagID, resolution string) error {
	if resolution != models.ResolutionConfirmed && resolution != models.ResolutionDismissed {
		return ErrInvalidResolution
	}
	ok, err := s.flagRepo.Resolve(flagID, resolution, time.Now())
	if err != nil {
		return fmt.Errorf("failed to resolve cheat flag: %w", err)
	}
	if !ok {
		return ErrFlagNotFound
	}
	return nil
}
