package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/maxmaster/portal-server-go/pkg/apperrors"
	"github.com/maxmaster/portal-server-go/pkg/cache"
	"github.com/maxmaster/portal-server-go/pkg/response"
)

// RateLimiter is a fixed-window limiter keyed by client IP. Counters live in
// the cache, so instances sharing Redis share limits.
type RateLimiter struct {
	store  cache.Client
	scope  string
	rate   int
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimiter allows rate requests per window for each client within scope.
func NewRateLimiter(store cache.Client, scope string, rate int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		store:  store,
		scope:  scope,
		rate:   rate,
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

// Middleware enforces the limit. Cache failures let the request through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rate <= 0 {
			c.Next()
			return
		}

		count, err := rl.store.Incr(c.Request.Context(), rl.key(c.ClientIP()), rl.window)
		if err != nil {
			rl.logger.Warn("rate limiter unavailable", slog.String("scope", rl.scope), slog.String("error", err.Error()))
			c.Next()
			return
		}

		remaining := int64(rl.rate) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.rate))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(rl.rate) {
			c.Header("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			response.AppError(nil, c, apperrors.New("Too many requests. Please try again later.", http.StatusTooManyRequests, apperrors.ErrTooMany, nil))
			c.Abort()
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) key(clientIP string) string {
	bucket := rl.now().Truncate(rl.window).Unix()
	return "ratelimit:" + rl.scope + ":" + clientIP + ":" + strconv.FormatInt(bucket, 10)
}
