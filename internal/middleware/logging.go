package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"folio/internal/logger"
)

const (
	requestIDKey     = "requestID"
	requestLoggerKey = "requestLogger"
)

// RequestLogging returns a Gin middleware that logs each request with a unique
// request ID, method, path, status code, latency, and client IP using Zap.
// Handlers reach the request-scoped logger through RequestLogger.
func RequestLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Set(requestLoggerKey, logger.Get().With("request_id", requestID))
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if userID := c.GetString(userIDKey); userID != "" {
			fields = append(fields, "user_id", userID)
		}
		RequestLogger(c).Infow("request", fields...)
	}
}

// RequestLogger returns the logger tagged with the current request ID, or the
// global logger outside of RequestLogging.
func RequestLogger(c *gin.Context) *zap.SugaredLogger {
	if l, ok := c.Get(requestLoggerKey); ok {
		if sugar, ok := l.(*zap.SugaredLogger); ok {
			return sugar
		}
	}
	return logger.Get()
}
