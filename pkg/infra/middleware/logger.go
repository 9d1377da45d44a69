package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/mongokit/pkg/infra/tracing"
)

// Logger writes one structured access log line per request.
// Requests to skipPaths are not logged.
func Logger(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"remote_addr", c.ClientIP(),
			"latency", latency.String(),
			"latency_ms", latency.Milliseconds(),
		}
		if id := GetRequestID(c.Request.Context()); id != "" {
			fields = append(fields, "request_id", id)
		}
		if traceID := tracing.TraceIDFromContext(c.Request.Context()); traceID != "" {
			fields = append(fields, "trace_id", traceID)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Errorw("HTTP Request", fields...)
		case status >= 400:
			logger.Warnw("HTTP Request", fields...)
		default:
			logger.Infow("HTTP Request", fields...)
		}
	}
}
