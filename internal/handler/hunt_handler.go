package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/coinhunt/coinhunt-backend-go/internal/middleware"
	"github.com/coinhunt/coinhunt-backend-go/internal/models"
	"github.com/coinhunt/coinhunt-backend-go/internal/proximity"
	"github.com/coinhunt/coinhunt-backend-go/internal/service"
	"github.com/coinhunt/coinhunt-backend-go/internal/session"
	"github.com/coinhunt/coinhunt-backend-go/pkg/response"
)

// HuntHandler handles HTTP requests for the hunt lifecycle
type HuntHandler struct {
	huntService *service.HuntService
}

// NewHuntHandler creates a new hunt handler
func NewHuntHandler(huntService *service.HuntService) *HuntHandler {
	return &HuntHandler{
		huntService: huntService,
	}
}

// StartHunt handles POST /api/v1/hunt/start
func (h *HuntHandler) StartHunt(c *gin.Context) {
	var req models.HuntStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "userId and deviceId are required")
		return
	}

	result, err := h.huntService.StartHunt(&req)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, result)
}

// ActivateTarget handles POST /api/v1/hunt/targets/:id/activate
func (h *HuntHandler) ActivateTarget(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	targetID := c.Param("id")

	err := h.huntService.ActivateTarget(c.Request.Context(), sessionID, targetID)
	switch {
	case err == nil:
		response.Success(c, gin.H{"targetId": targetID, "active": true})
	case errors.Is(err, service.ErrTargetUnknown):
		response.NotFound(c, "Target not found")
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionClosed):
		response.NotFound(c, "Session not found")
	default:
		response.InternalError(c, err.Error())
	}
}

// DeactivateTarget handles POST /api/v1/hunt/targets/:id/deactivate
func (h *HuntHandler) DeactivateTarget(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	targetID := c.Param("id")

	err := h.huntService.DeactivateTarget(c.Request.Context(), sessionID, targetID)
	switch {
	case err == nil:
		response.Success(c, gin.H{"targetId": targetID, "active": false})
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionClosed):
		response.NotFound(c, "Session not found")
	default:
		response.InternalError(c, err.Error())
	}
}

// Collect handles POST /api/v1/hunt/collect
func (h *HuntHandler) Collect(c *gin.Context) {
	var req models.CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "targetId is required")
		return
	}

	sessionID := middleware.GetSessionID(c)
	event, err := h.huntService.Collect(c.Request.Context(), sessionID, req.TargetID)
	switch {
	case err == nil:
		response.Success(c, event)
	case errors.Is(err, proximity.ErrTargetNotFound):
		response.NotFound(c, "Target is not tracked by this session")
	case errors.Is(err, proximity.ErrNotCollectible):
		response.Conflict(c, "Target is not collectible")
	case errors.Is(err, proximity.ErrOutOfRange):
		response.Conflict(c, "Moved out of collection range")
	case errors.Is(err, session.ErrNoLocation):
		response.Conflict(c, "No recent location for session")
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionClosed):
		response.NotFound(c, "Session not found")
	default:
		response.InternalError(c, err.Error())
	}
}

// State handles GET /api/v1/hunt/state
func (h *HuntHandler) State(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)

	snapshots, err := h.huntService.State(c.Request.Context(), sessionID)
	switch {
	case err == nil:
		response.Success(c, gin.H{
			"sessionId": sessionID,
			"targets":   snapshots,
		})
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionClosed):
		response.NotFound(c, "Session not found")
	default:
		response.InternalError(c, err.Error())
	}
}

// GetTargets handles GET /api/v1/targets
func (h *HuntHandler) GetTargets(c *gin.Context) {
	targets, err := h.huntService.GetTargets()
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"data":  targets,
		"count": len(targets),
	})
}
