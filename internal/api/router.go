package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coinhunt/coinhunt-backend-go/internal/auth"
	"github.com/coinhunt/coinhunt-backend-go/internal/config"
	"github.com/coinhunt/coinhunt-backend-go/internal/handler"
	"github.com/coinhunt/coinhunt-backend-go/internal/middleware"
)

// Handlers bundles the handlers the router wires up.
type Handlers struct {
	Location *handler.LocationHandler
	Hunt     *handler.HuntHandler
	Flags    *handler.CheatFlagHandler
	Stream   *handler.StreamHandler
}

// SetupRouter builds the HTTP routing tree.
func SetupRouter(cfg *config.Config, tokens *auth.TokenIssuer, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Coinhunt engine is running",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		// Session bootstrap and the target catalog need no session token.
		api.POST("/hunt/start", h.Hunt.StartHunt)
		api.GET("/targets", h.Hunt.GetTargets)

		// The stream carries its token in the query string.
		api.GET("/stream", h.Stream.Stream)

		authed := api.Group("", middleware.AuthRequired(tokens))
		{
			authed.POST("/location", h.Location.UpdateLocation)
			authed.POST("/location/offline", h.Location.Offline)
			authed.GET("/location/history", h.Location.GetSessionFixes)

			hunt := authed.Group("/hunt")
			{
				hunt.POST("/targets/:id/activate", h.Hunt.ActivateTarget)
				hunt.POST("/targets/:id/deactivate", h.Hunt.DeactivateTarget)
				hunt.POST("/collect", h.Hunt.Collect)
				hunt.GET("/state", h.Hunt.State)
			}
		}

		// Moderation surface. An operator gateway is expected in front of
		// these routes; the engine only serves the ledger.
		flags := api.Group("/flags")
		{
			flags.GET("", h.Flags.GetFlags)
			flags.GET("/stats", h.Flags.GetStats)
			flags.POST("/:id/resolve", h.Flags.Resolve)
		}
	}

	return r
}
