package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/GuildWar/internal/handler"
	"github.com/Gopher0727/GuildWar/internal/ws"
)

// NewRouter builds the gin engine with global middleware and every route.
func NewRouter(
	mode string,
	mw *MiddlewareManager,
	rosterHandler *handler.RosterHandler,
	authHandler *handler.AuthHandler,
	hub *ws.Hub,
) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.New()
	r.Use(mw.Recovery(), mw.Trace(), mw.Logger(), mw.CORS())

	RegisterRoutes(r, mw, rosterHandler, authHandler, hub)
	return r
}
