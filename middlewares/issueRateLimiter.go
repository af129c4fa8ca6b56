package middlewares

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// IssueRateLimit caps how many issues one user may report per window.
type IssueRateLimit struct {
	Client    *redis.Client
	KeyPrefix string
	Limit     int
	Window    time.Duration
}

// IssueRateLimiter counts requests per user in Redis. With no client configured
// it lets every request through.
func IssueRateLimiter(cfg IssueRateLimit, logger *zap.Logger) gin.HandlerFunc {
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}

	return func(c *gin.Context) {
		if cfg.Client == nil {
			c.Next()
			return
		}

		actor, ok := ActorFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		userKey := cfg.KeyPrefix + ":" + actor.ID.Hex()

		count, err := cfg.Client.Incr(ctx, userKey).Result()
		if err != nil {
			logger.Error("Rate limiter increment failed", zap.String("key", userKey), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "redis error incrementing count"})
			return
		}

		// first hit opens the window
		if count == 1 {
			if err := cfg.Client.Expire(ctx, userKey, cfg.Window).Err(); err != nil {
				logger.Error("Rate limiter expire failed", zap.String("key", userKey), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "redis error setting TTL"})
				return
			}
		}

		if count > int64(cfg.Limit) {
			retryAfter, _ := cfg.Client.TTL(ctx, userKey).Result()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter.Seconds(),
			})
			return
		}

		c.Next()
	}
}
