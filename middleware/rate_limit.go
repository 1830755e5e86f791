package middleware

import (
	"context"
	"eventops/utils"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Redis        *redis.Client // nil uses the in-process limiter only
	Requests     int           // Number of requests allowed
	Window       time.Duration // Time window
	KeyPrefix    string        // Redis key prefix
	ErrorMessage string        // Custom error message
}

// RateLimitStrategy defines different rate limiting strategies
type RateLimitStrategy string

const (
	StrategyIP       RateLimitStrategy = "ip"
	StrategyUserOrIP RateLimitStrategy = "user_or_ip"
)

// RateLimiter counts requests in a Redis sliding window shared by all
// instances, falling back to a per-process token bucket when Redis is absent
// or failing.
type RateLimiter struct {
	config   RateLimitConfig
	strategy RateLimitStrategy

	localMutex sync.Mutex
	local      map[string]*utils.RateLimiter
}

func NewRateLimiter(config RateLimitConfig, strategy RateLimitStrategy) *RateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rate_limit"
	}
	if config.ErrorMessage == "" {
		config.ErrorMessage = "Rate limit exceeded"
	}
	if config.Requests <= 0 {
		config.Requests = 10
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	return &RateLimiter{
		config:   config,
		strategy: strategy,
		local:    make(map[string]*utils.RateLimiter),
	}
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.getKey(c)

		allowed, remaining, err := rl.checkRedis(c.Request.Context(), key)
		if err != nil {
			if rl.config.Redis != nil {
				logrus.WithError(err).Warn("Redis rate limit check failed, using local limiter")
			}
			allowed, remaining = rl.checkLocal(key)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			rl.handleRateLimitExceeded(c)
			return
		}

		c.Next()
	}
}

// checkRedis uses the sliding window log algorithm with a Redis sorted set
func (rl *RateLimiter) checkRedis(ctx context.Context, key string) (bool, int, error) {
	if rl.config.Redis == nil {
		return false, 0, fmt.Errorf("redis not configured")
	}

	now := time.Now()
	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := rl.config.Redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(now.Add(-rl.config.Window).UnixNano(), 10))
	count := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, &redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, key, rl.config.Window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	current := int(count.Val())
	if current >= rl.config.Requests {
		rl.config.Redis.ZRem(ctx, key, member)
		return false, 0, nil
	}

	return true, rl.config.Requests - current - 1, nil
}

func (rl *RateLimiter) checkLocal(key string) (bool, int) {
	rl.localMutex.Lock()
	limiter, ok := rl.local[key]
	if !ok {
		limiter = utils.NewRateLimiter(rl.config.Requests, rl.config.Window)
		rl.local[key] = limiter
	}
	rl.localMutex.Unlock()

	allowed := limiter.Allow()
	return allowed, limiter.Remaining()
}

// getKey generates rate limit key based on strategy
func (rl *RateLimiter) getKey(c *gin.Context) string {
	prefix := rl.config.KeyPrefix

	if rl.strategy == StrategyUserOrIP {
		if userID := c.GetString("userID"); userID != "" {
			return fmt.Sprintf("%s:user:%s", prefix, userID)
		}
	}
	return fmt.Sprintf("%s:ip:%s", prefix, c.ClientIP())
}

func (rl *RateLimiter) handleRateLimitExceeded(c *gin.Context) {
	retryAfter := int(rl.config.Window.Seconds())
	c.Header("Retry-After", strconv.Itoa(retryAfter))

	logrus.WithFields(logrus.Fields{
		"client_ip": c.ClientIP(),
		"user_id":   c.GetString("userID"),
		"path":      c.Request.URL.Path,
		"method":    c.Request.Method,
	}).Warn("Rate limit exceeded")

	utils.ErrorResponse(c, http.StatusTooManyRequests, rl.config.ErrorMessage, map[string]interface{}{
		"retry_after": retryAfter,
	})
	c.Abort()
}

// ShutdownRateLimit throttles the shutdown protocol endpoints per caller.
func ShutdownRateLimit(redis *redis.Client, requests int, window time.Duration) gin.HandlerFunc {
	return NewRateLimiter(RateLimitConfig{
		Redis:        redis,
		Requests:     requests,
		Window:       window,
		KeyPrefix:    "rate_limit:shutdown",
		ErrorMessage: "Too many shutdown requests. Please wait before retrying.",
	}, StrategyUserOrIP).Middleware()
}

// APIRateLimit is the general per-IP limit for the API group.
func APIRateLimit(redis *redis.Client) gin.HandlerFunc {
	return NewRateLimiter(RateLimitConfig{
		Redis:     redis,
		Requests:  300,
		Window:    time.Minute,
		KeyPrefix: "rate_limit:api",
	}, StrategyIP).Middleware()
}
