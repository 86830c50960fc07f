package middleware

import (
	"time"

	"taskapp/internal/core/telemetry"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records latency and status per matched route. Requests
// that match no route share the "unmatched" label so paths cannot explode
// the label space.
func MetricsMiddleware(metrics *telemetry.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		done := metrics.TrackInFlight()

		c.Next()
		done()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		metrics.RecordRequest(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), time.Since(started))
	}
}
