// Package middleware holds the gin middleware shared by every API route.
package middleware

import (
	"mime"
	"net/http"
	"strings"
	"time"

	"sheetgenie/internal/logging"
	"sheetgenie/internal/observability"
	id "sheetgenie/internal/utils/id"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// HeaderLogID carries the request's log id in both directions.
const HeaderLogID = "X-Log-Id"

// LogID tags the request context with a log id, reusing a well-formed
// incoming X-Log-Id, and echoes it on the response.
func LogID() gin.HandlerFunc {
	return func(c *gin.Context) {
		logID := strings.TrimSpace(c.GetHeader(HeaderLogID))
		if logID == "" || len(logID) > 64 {
			logID = id.NewLogID()
		}
		c.Request = c.Request.WithContext(id.WithLogID(c.Request.Context(), logID))
		c.Header(HeaderLogID, logID)
		c.Next()
	}
}

// Observability instruments requests with a span, request metrics and a
// latency log line. Routes are reported by template, not raw path.
func Observability(metrics *observability.MetricsCollector, tracer *observability.TracerProvider, logger logging.Logger) gin.HandlerFunc {
	logger = logging.OrNop(logger)
	return func(c *gin.Context) {
		start := time.Now()
		ctx, span := tracer.StartSpan(c.Request.Context(), observability.SpanHTTPServer,
			attribute.String("http.method", c.Request.Method),
		)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		if err := c.Errors.Last(); err != nil {
			span.RecordError(err.Err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		latency := time.Since(start)
		metrics.RecordHTTPRequest(ctx, c.Request.Method, route, status, latency)
		logging.FromContext(ctx, logger).Info(
			"route=%s method=%s status=%d latency_ms=%.2f bytes=%d",
			route,
			c.Request.Method,
			status,
			float64(latency.Microseconds())/1000.0,
			c.Writer.Size(),
		)
	}
}

// RequireJSON rejects request bodies that declare a non-JSON content type.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if contentType := c.GetHeader("Content-Type"); contentType != "" {
			mediaType, _, err := mime.ParseMediaType(contentType)
			if err != nil || mediaType != "application/json" {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
					"success": false,
					"error":   "Content-Type must be application/json",
				})
				return
			}
		}
		c.Next()
	}
}
