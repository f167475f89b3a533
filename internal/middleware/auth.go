package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coinhunt/coinhunt-backend-go/internal/auth"
	"github.com/coinhunt/coinhunt-backend-go/pkg/response"
)

// Context keys set by AuthRequired.
const (
	ContextSessionID = "session_id"
	ContextUserID    = "user_id"
	ContextDeviceID  = "device_id"
)

// AuthRequired validates the Bearer session token and stores the session
// identity on the gin context.
func AuthRequired(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, http.StatusUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			response.Error(c, http.StatusUnauthorized, "invalid authorization header")
			c.Abort()
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextSessionID, claims.SessionID)
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextDeviceID, claims.DeviceID)
		c.Next()
	}
}

// GetSessionID returns the session ID stored by AuthRequired.
func GetSessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}

// GetUserID returns the user ID stored by AuthRequired.
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
