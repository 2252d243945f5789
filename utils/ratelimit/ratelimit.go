package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Gopher0727/GuildWar/config"
)

// Limiter counts requests per key inside fixed windows.
type Limiter interface {
	// Allow consumes one token and reports whether the request may proceed.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	AllowN(ctx context.Context, key string, n, limit int, window time.Duration) (bool, error)
	GetRemaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}

// RedisLimiter keeps one counter per key and window bucket in Redis, so
// every instance behind the load balancer shares the budget.
type RedisLimiter struct {
	redisClient *redis.Client
	logger      *zap.Logger
	failOpen    bool
	now         func() time.Time
}

// NewRedisLimiter returns a limiter. With failOpen set, requests are allowed
// while Redis is unavailable.
func NewRedisLimiter(redisClient *redis.Client, logger *zap.Logger, failOpen bool) *RedisLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLimiter{
		redisClient: redisClient,
		logger:      logger,
		failOpen:    failOpen,
		now:         time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return l.AllowN(ctx, key, 1, limit, window)
}

func (l *RedisLimiter) AllowN(ctx context.Context, key string, n, limit int, window time.Duration) (bool, error) {
	bucketKey := l.bucketKey(key, window)

	pipe := l.redisClient.Pipeline()
	incr := pipe.IncrBy(ctx, bucketKey, int64(n))
	pipe.Expire(ctx, bucketKey, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		if l.failOpen {
			l.logger.Warn("rate limit check failed, allowing request",
				zap.String("key", key),
				zap.Error(err),
			)
			return true, nil
		}
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	count := incr.Val()
	if count > int64(limit) {
		l.logger.Info("rate limit exceeded",
			zap.String("key", key),
			zap.Int64("count", count),
			zap.Int("limit", limit),
		)
		return false, nil
	}
	return true, nil
}

func (l *RedisLimiter) GetRemaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	count, err := l.redisClient.Get(ctx, l.bucketKey(key, window)).Int64()
	if errors.Is(err, redis.Nil) {
		return limit, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get remaining tokens: %w", err)
	}
	return max(limit-int(count), 0), nil
}

func (l *RedisLimiter) bucketKey(key string, window time.Duration) string {
	secs := int64(window / time.Second)
	if secs <= 0 {
		secs = 1
	}
	return fmt.Sprintf("ratelimit:%s:%d", key, l.now().Unix()/secs)
}

// Rule is a limit per window.
type Rule struct {
	Limit  int
	Window time.Duration
}

const (
	EndpointSignup   = "signup"
	EndpointMutation = "mutation"
	EndpointRefresh  = "refresh"
)

// RuleForEndpoint maps an endpoint class to its configured budget.
func RuleForEndpoint(endpoint string, cfg *config.RateLimitConfig) Rule {
	switch endpoint {
	case EndpointSignup:
		return Rule{Limit: cfg.RegisterPerMinute, Window: time.Minute}
	case EndpointMutation:
		return Rule{Limit: cfg.MutationPerMinute, Window: time.Minute}
	default:
		return Rule{Limit: 100, Window: time.Minute}
	}
}
