package middleware

import (
	"taskapp/internal/core/telemetry"
	"taskapp/pkg/config"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// SetupGinMiddleware installs the shared middleware chain. Metrics may be nil.
func SetupGinMiddleware(router *gin.Engine, cfg *config.AppConfig, metrics *telemetry.AppMetrics, logger *config.LokiLogger) {
	router.Use(gin.Recovery())

	httpsEnforcer := config.NewHTTPSEnforcer(cfg.EnforceHTTPS, logger.Zap())
	router.Use(httpsEnforcer.HTTPSMiddleware())

	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(CurrentMiddleware())
	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware(cfg.CORSOrigins))

	if cfg.RateLimitEnabled {
		var recorder config.RateLimitMetrics
		if metrics != nil {
			recorder = metrics
		}

		rateLimiter := config.NewRateLimiter(logger.Zap(), recorder, cfg.RateLimitConfigs)
		router.Use(rateLimiter.RateLimitMiddleware())
	}

	if metrics != nil {
		router.Use(MetricsMiddleware(metrics))
	}
}
