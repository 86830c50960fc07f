package middleware

import (
	"time"

	"taskapp/pkg/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggingMiddleware writes one access line per request. 5xx responses are
// logged as errors and 4xx as warnings.
func LoggingMiddleware(logger *config.LokiLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		requestID := ""

		if current := GetCurrent(c); current != nil {
			started = current.Started
			requestID = current.RequestID
		}

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()

		if route == "" {
			route = "unmatched"
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("uri", c.Request.URL.RequestURI()),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(started)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", requestID),
		}

		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, zap.Strings("errors", errs.Errors()))
		}

		ctx := c.Request.Context()

		switch {
		case status >= 500:
			logger.ErrorWithTrace(ctx, "request", fields...)
		case status >= 400:
			logger.WarnWithTrace(ctx, "request", fields...)
		default:
			logger.InfoWithTrace(ctx, "request", fields...)
		}
	}
}
