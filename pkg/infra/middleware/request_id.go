// Package middleware provides the gin middleware of the HTTP server:
// request IDs, access logs, panic recovery and OpenTelemetry spans.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/mongokit/pkg/utils/response"
)

// HeaderXRequestID is the header carrying the request ID.
const HeaderXRequestID = "X-Request-ID"

type requestIDKey struct{}

// GetRequestID returns the request ID stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID stores the request ID in ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

var requestIDCounter uint64

// GenerateRequestID returns 16 random bytes hex encoded.
func GenerateRequestID() string {
	b := make([]byte, 16)
	if n, err := rand.Read(b); err != nil || n != len(b) {
		return fmt.Sprintf("%x-%x", time.Now().Unix(), atomic.AddUint64(&requestIDCounter, 1))
	}
	return hex.EncodeToString(b)
}

// RequestID reuses the incoming X-Request-ID or generates one, echoes it in
// the response and stores it in both the gin and the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderXRequestID)
		if id == "" {
			id = GenerateRequestID()
		}

		c.Header(HeaderXRequestID, id)
		c.Set(response.RequestIDKey, id)
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
