package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/timmy/ipv4-deal-os/internal/logger"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestLogger returns a Gin middleware that tags the request context with a
// request ID and logs one line per completed request.
// An inbound X-Request-ID is reused so traces line up with the frontend proxy.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.New().String()
		}

		ctx := logger.WithFields(c.Request.Context(), logger.Fields{
			logger.FieldRequestID: requestID,
			logger.FieldComponent: "api",
		})
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}

		entry := logger.With(logger.Fields{
			logger.FieldStatus:     status,
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
			logger.FieldSize:       c.Writer.Size(),
		})
		switch {
		case status >= 500:
			entry.Error(ctx, "Request failed: method=%s, path=%s, errors=%s", c.Request.Method, fullPath, c.Errors.String())
		case !strings.HasPrefix(path, "/api/"):
			// frontend assets are noisy
			entry.Debug(ctx, "Request completed: method=%s, path=%s", c.Request.Method, fullPath)
		default:
			entry.Info(ctx, "Request completed: method=%s, path=%s, client_ip=%s", c.Request.Method, fullPath, c.ClientIP())
		}
	}
}

// GetLogger returns the request-scoped logger.
func GetLogger(c *gin.Context) *logger.Logger {
	return logger.FromContext(c.Request.Context())
}
