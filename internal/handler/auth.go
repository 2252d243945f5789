package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/GuildWar/middleware/jwt"
)

// AuthHandler reissues admin tokens close to expiry. Tokens are first
// issued by the roster service with the shared secret.
type AuthHandler struct {
	tokens *jwt.TokenManager
}

func NewAuthHandler(tokens *jwt.TokenManager) *AuthHandler {
	return &AuthHandler{tokens: tokens}
}

// Refresh handles POST /api/v1/auth/refresh with the old token as bearer.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, ok := jwt.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
		return
	}

	fresh, err := h.tokens.RefreshToken(token)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrRefreshTooEarly):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": fresh})
}
