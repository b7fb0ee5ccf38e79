package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs failed requests: 5xx at error level, 4xx at warn.
// Successful requests are left to the metrics middleware.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		if status < 400 {
			return
		}

		level := slog.LevelWarn
		msg := "http_request_warning"
		if status >= 500 {
			level = slog.LevelError
			msg = "http_request_error"
		}

		logger.LogAttrs(c.Request.Context(), level, msg,
			slog.String("request_id", GetRequestID(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("client_ip", c.ClientIP()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
