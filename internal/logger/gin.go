package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader is read from incoming requests and echoed on responses.
const RequestIDHeader = "X-Request-ID"

// GinMiddleware assigns a request id, stores a request logger in the request
// context and logs one line per request once the handler chain has run.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		ctx := WithRequestID(c.Request.Context(), requestID)
		ctx = IntoContext(ctx, Default())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		attrs := []any{
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"ip", c.ClientIP(),
			"latency_ms", float64(time.Since(start).Microseconds()) / 1000.0,
		}

		l := FromContext(c.Request.Context())
		if len(c.Errors) > 0 {
			l.Error("http request", append(attrs, "err", c.Errors.String())...)
			return
		}
		l.Info("http request", attrs...)
	}
}
