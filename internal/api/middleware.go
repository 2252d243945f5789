package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gopher0727/GuildWar/config"
	"github.com/Gopher0727/GuildWar/internal/model"
	"github.com/Gopher0727/GuildWar/internal/remote"
	"github.com/Gopher0727/GuildWar/middleware/jwt"
	logger "github.com/Gopher0727/GuildWar/middleware/log"
	"github.com/Gopher0727/GuildWar/utils/ratelimit"
)

const (
	ctxClaims   = "claims"
	ctxUserID   = "user_id"
	headerTrace = "X-Trace-ID"
)

type MiddlewareManager struct {
	tokenManager *jwt.TokenManager
	rateLimiter  ratelimit.Limiter
	logger       *logger.Logger
	rateLimitCfg *config.RateLimitConfig
}

func NewMiddlewareManager(
	tokenManager *jwt.TokenManager,
	rateLimiter ratelimit.Limiter,
	log *logger.Logger,
	rateLimitCfg *config.RateLimitConfig,
) *MiddlewareManager {
	if log == nil {
		log = logger.NewNop()
	}
	return &MiddlewareManager{
		tokenManager: tokenManager,
		rateLimiter:  rateLimiter,
		logger:       log,
		rateLimitCfg: rateLimitCfg,
	}
}

// Trace stamps every request with a trace id, taken from X-Trace-ID when
// the caller sent one. The id travels in the request context down to the
// roster service calls.
func (m *MiddlewareManager) Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logger.WithTraceID(c.Request.Context(), c.GetHeader(headerTrace))
		c.Request = c.Request.WithContext(ctx)
		c.Header(headerTrace, logger.GetTraceID(ctx))
		c.Next()
	}
}

// JWTAuth verifies the bearer token and forwards it to the roster service
// through the request context.
func (m *MiddlewareManager) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		tokenString, ok := jwt.BearerToken(authHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		claims, err := m.tokenManager.ParseToken(tokenString)
		if err != nil {
			m.logger.WarnContext(c.Request.Context(), "token validation failed",
				zap.Error(err),
				zap.String("ip", c.ClientIP()),
			)
			message := "invalid token"
			switch {
			case errors.Is(err, jwt.ErrExpiredToken):
				message = "token has expired"
			case errors.Is(err, jwt.ErrTokenNotYetValid):
				message = "token not yet valid"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
			return
		}

		c.Set(ctxClaims, claims)
		c.Set(ctxUserID, claims.UserID)
		c.Request = c.Request.WithContext(remote.WithToken(c.Request.Context(), tokenString))
		c.Next()
	}
}

// AdminOnly admits admins whose region matches the :region of the route.
// It must run after JWTAuth.
func (m *MiddlewareManager) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok || !claims.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}

		region, err := model.ParseRegion(c.Param("region"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		adminRegion, err := model.ParseRegion(claims.Region)
		if err != nil || adminRegion != region {
			m.logger.WarnContext(c.Request.Context(), "cross-region mutation rejected",
				zap.Int64("user_id", claims.UserID),
				zap.String("admin_region", claims.Region),
				zap.String("region", string(region)),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admins may only manage their own region"})
			return
		}
		c.Next()
	}
}

// RateLimiterByEndpoint applies the configured budget of an endpoint class.
// Authenticated callers are keyed by user id, everyone else by IP.
func (m *MiddlewareManager) RateLimiterByEndpoint(endpoint string) gin.HandlerFunc {
	rule := ratelimit.RuleForEndpoint(endpoint, m.rateLimitCfg)

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var key string
		if userID, exists := c.Get(ctxUserID); exists {
			key = fmt.Sprintf("user:%v:%s", userID, endpoint)
		} else {
			key = fmt.Sprintf("ip:%s:%s", c.ClientIP(), endpoint)
		}

		allowed, err := m.rateLimiter.Allow(ctx, key, rule.Limit, rule.Window)
		if err != nil {
			m.logger.ErrorContext(ctx, "rate limit check failed",
				zap.Error(err),
				zap.String("key", key),
				zap.String("endpoint", endpoint),
			)
			// The limiter has already applied its fail-open policy.
			if allowed {
				c.Next()
			} else {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "rate limit check failed"})
			}
			return
		}

		if !allowed {
			remaining, _ := m.rateLimiter.GetRemaining(ctx, key, rule.Limit, rule.Window)
			c.Header("Retry-After", fmt.Sprint(int(rule.Window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": int(rule.Window.Seconds()),
				"remaining":   remaining,
			})
			return
		}

		c.Next()
	}
}

func (m *MiddlewareManager) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if userID, ok := c.Get(ctxUserID); ok {
			fields = append(fields, zap.Any("user_id", userID))
		}

		ctx := c.Request.Context()
		switch {
		case statusCode >= 500:
			m.logger.ErrorContext(ctx, "server error", fields...)
		case statusCode >= 400:
			m.logger.WarnContext(ctx, "client error", fields...)
		default:
			m.logger.InfoContext(ctx, "request completed", fields...)
		}
	}
}

func (m *MiddlewareManager) CORS() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", headerTrace}
	cfg.ExposeHeaders = []string{headerTrace, "Retry-After"}
	cfg.MaxAge = 12 * time.Hour
	return cors.New(cfg)
}

func (m *MiddlewareManager) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.ErrorContext(c.Request.Context(), "panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()

		c.Next()
	}
}

func claimsFrom(c *gin.Context) (*jwt.Claims, bool) {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}
