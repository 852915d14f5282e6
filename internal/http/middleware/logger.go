package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rtr-ops/backend/internal/metrics"
)

// Logger writes one line per request and counts it by route and status.
func Logger(l zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		method := c.Request.Method
		route := c.FullPath()
		path := route
		if path == "" {
			path = c.Request.URL.Path
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()

		rid := c.GetString(RequestIDHeader)
		ev := l.Info()
		if status >= 500 {
			ev = l.Error()
		}
		ev.Str("request_id", rid).
			Str("method", method).
			Str("path", path).
			Int("status", status).
			Dur("latency", latency).
			Msg("request")
	}
}
