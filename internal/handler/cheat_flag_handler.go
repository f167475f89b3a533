package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/coinhunt/coinhunt-backend-go/internal/models"
	"github.com/coinhunt/coinhunt-backend-go/internal/service"
	"github.com/coinhunt/coinhunt-backend-go/pkg/response"
)

// CheatFlagHandler handles HTTP requests for the moderation view
type CheatFlagHandler struct {
	flagService *service.CheatFlagService
}

// NewCheatFlagHandler creates a new cheat flag handler
func NewCheatFlagHandler(flagService *service.CheatFlagService) *CheatFlagHandler {
	return &CheatFlagHandler{
		flagService: flagService,
	}
}

// GetFlags handles GET /api/v1/flags
func (h *CheatFlagHandler) GetFlags(c *gin.Context) {
	var filter models.CheatFlagFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.flagService.GetFlags(filter)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, result)
}

// GetStats handles GET /api/v1/flags/stats
func (h *CheatFlagHandler) GetStats(c *gin.Context) {
	stats, err := h.flagService.GetStats()
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, stats)
}

// Resolve handles POST /api/v1/flags/:id/resolve
func (h *CheatFlagHandler) Resolve(c *gin.Context) {
	var req struct {
		Resolution string `json:"resolution" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "resolution is required")
		return
	}

	flagID := c.Param("id")
	err := h.flagService.Resolve(flagID, req.Resolution)
	switch {
	case err == nil:
		response.Success(c, gin.H{"flagId": flagID, "resolution": req.Resolution})
	case errors.Is(err, service.ErrInvalidResolution):
		response.BadRequest(c, "resolution must be CONFIRMED or DISMISSED")
	case errors.Is(err, service.ErrFlagNotFound):
		response.NotFound(c, "Cheat flag not found")
	default:
		response.InternalError(c, err.Error())
	}
}
