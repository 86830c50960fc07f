package routes

import (
	"taskapp/internal/adapter/http/handler"
	"taskapp/internal/adapter/http/middleware"
	"taskapp/internal/core/telemetry"
	"taskapp/pkg/config"

	"github.com/gin-gonic/gin"
)

type HandlersConfig struct {
	TaskHandler   *handler.TaskHandler
	HealthHandler *handler.HealthHandler
}

func SetupRouterWithConfig(handlers HandlersConfig, metrics *telemetry.AppMetrics, logger *config.LokiLogger, cfg *config.AppConfig) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// both /tasks and /tasks/ are registered explicitly
	router.RedirectTrailingSlash = false

	middleware.SetupGinMiddleware(router, cfg, metrics, logger)

	RegisterRoutes(router, handlers)

	return router
}

// RegisterRoutes mounts the API on router without any middleware.
func RegisterRoutes(router gin.IRouter, handlers HandlersConfig) {
	if handlers.HealthHandler != nil {
		router.GET("/", handlers.HealthHandler.Root)
		router.GET("/health", handlers.HealthHandler.Health)
	}

	if handlers.TaskHandler != nil {
		setupTaskRoutes(router, handlers.TaskHandler)
	}
}

func setupTaskRoutes(router gin.IRouter, h *handler.TaskHandler) {
	tasks := router.Group("/tasks")
	{
		tasks.GET("", h.ListTasks)
		tasks.GET("/", h.ListTasks)
		tasks.POST("", h.CreateTask)
		tasks.POST("/", h.CreateTask)

		tasks.GET("/export", h.ExportTasks)
		tasks.POST("/import", h.ImportTasks)

		tasks.GET("/:id", h.GetTask)
		tasks.PATCH("/:id", h.UpdateTask)
		tasks.DELETE("/:id", h.DeleteTask)
	}
}
