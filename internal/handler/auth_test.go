package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gopher0727/GuildWar/middleware/jwt"
)

func refresh(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRefresh(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// A one hour token with a two hour window is always refreshable.
	short := jwt.NewTokenManager("secret", 1, 2)
	r.POST("/api/v1/auth/refresh", NewAuthHandler(short).Refresh)

	old, err := short.GenerateToken(3, "Officer", "na", true)
	require.NoError(t, err)

	w := refresh(r, "Bearer "+old)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	claims, err := short.ParseToken(body.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UserID)
	assert.Equal(t, "na", claims.Region)
	assert.True(t, claims.IsAdmin)

	assert.Equal(t, http.StatusUnauthorized, refresh(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, refresh(r, "Bearer garbage").Code)
}

func TestAuthRefresh_TooEarly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	long := jwt.NewTokenManager("secret", 24, 2)
	r.POST("/api/v1/auth/refresh", NewAuthHandler(long).Refresh)

	tok, err := long.GenerateToken(3, "Officer", "na", true)
	require.NoError(t, err)
	w := refresh(r, "Bearer "+tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not yet eligible")
}
