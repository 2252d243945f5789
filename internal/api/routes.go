package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/GuildWar/internal/handler"
	"github.com/Gopher0727/GuildWar/internal/ws"
	"github.com/Gopher0727/GuildWar/utils/ratelimit"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(r *gin.Engine, mw *MiddlewareManager, h *handler.RosterHandler, auth *handler.AuthHandler, hub *ws.Hub) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/signup", mw.RateLimiterByEndpoint(ratelimit.EndpointSignup), h.Signup)
		api.POST("/auth/refresh", mw.RateLimiterByEndpoint(ratelimit.EndpointRefresh), auth.Refresh)
		api.GET("/ws", func(c *gin.Context) { ws.ServeWs(hub, c) })

		regions := api.Group("/regions/:region")
		{
			regions.GET("/event", h.GetEvent)
			regions.GET("/days/:day", h.GetDay)
			regions.GET("/overview/:day", h.GetOverview)
		}

		// Admin routes
		admin := api.Group("/regions/:region")
		admin.Use(mw.JWTAuth(), mw.AdminOnly(), mw.RateLimiterByEndpoint(ratelimit.EndpointMutation))
		{
			admin.POST("/events", h.CreateEvent)
			admin.POST("/moves", h.Move)
			admin.POST("/teams", h.AddTeam)
			admin.PUT("/teams/:id", h.RenameTeam)
			admin.DELETE("/teams/:id", h.DeleteTeam)
			admin.DELETE("/users/:id", h.DeleteUser)
		}
	}
}
