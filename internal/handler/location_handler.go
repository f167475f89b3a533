package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/coinhunt/coinhunt-backend-go/internal/ingest"
	"github.com/coinhunt/coinhunt-backend-go/internal/middleware"
	"github.com/coinhunt/coinhunt-backend-go/internal/models"
	"github.com/coinhunt/coinhunt-backend-go/internal/service"
	"github.com/coinhunt/coinhunt-backend-go/internal/session"
	"github.com/coinhunt/coinhunt-backend-go/pkg/response"
)

// LocationHandler handles HTTP requests for the location stream
type LocationHandler struct {
	locationService *service.LocationService
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(locationService *service.LocationService) *LocationHandler {
	return &LocationHandler{
		locationService: locationService,
	}
}

// UpdateLocation handles POST /api/v1/location
func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	var req models.LocationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid location payload")
		return
	}

	sessionID := middleware.GetSessionID(c)
	result, err := h.locationService.HandleUpdate(c.Request.Context(), sessionID, &req)
	switch {
	case err == nil:
		response.Success(c, result)
	case errors.Is(err, ingest.ErrInvalidCoordinate):
		response.BadRequest(c, "Invalid coordinates")
	case errors.Is(err, ingest.ErrStaleFix):
		response.BadRequest(c, "Fix is older than the last accepted fix")
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionClosed):
		response.NotFound(c, "Session not found")
	default:
		response.InternalError(c, err.Error())
	}
}

// Offline handles POST /api/v1/location/offline
func (h *LocationHandler) Offline(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	userID := middleware.GetUserID(c)

	if err := h.locationService.HandleOffline(sessionID, userID); err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"sessionId": sessionID, "online": false})
}

// GetSessionFixes handles GET /api/v1/location/history
func (h *LocationHandler) GetSessionFixes(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		response.BadRequest(c, "Invalid limit parameter")
		return
	}

	sessionID := middleware.GetSessionID(c)
	fixes, err := h.locationService.GetSessionFixes(sessionID, limit)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"data":  fixes,
		"count": len(fixes),
	})
}
