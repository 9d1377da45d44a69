package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of HTTP server spans.
const TracerName = "github.com/kart-io/mongokit/pkg/infra/middleware"

// Tracing starts a server span per request, continuing the trace found in
// the incoming headers. Span names are "<method> <route>".
func Tracing(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		req := c.Request
		if _, ok := skip[req.URL.Path]; ok {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = req.URL.Path
		}

		ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))
		ctx, span := otel.Tracer(TracerName).Start(ctx, req.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethod(req.Method),
				semconv.HTTPRoute(route),
				semconv.HTTPTarget(req.URL.Path),
			),
		)
		defer span.End()

		if ua := req.UserAgent(); ua != "" {
			span.SetAttributes(semconv.UserAgentOriginal(ua))
		}
		if id := GetRequestID(ctx); id != "" {
			span.SetAttributes(attribute.String("http.request_id", id))
		}

		c.Request = req.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}
	}
}
