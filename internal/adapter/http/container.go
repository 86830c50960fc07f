package http

import (
	"taskapp/internal/adapter/http/handler"
	"taskapp/internal/adapter/http/routes"
	"taskapp/internal/core/port"
	"taskapp/internal/core/service"
	"taskapp/internal/core/telemetry"
	"taskapp/pkg/config"
)

type Container struct {
	TaskRepo    port.TaskRepository
	TaskService *service.TaskService

	TaskHandler   *handler.TaskHandler
	HealthHandler *handler.HealthHandler
}

// NewContainer wires repository, service and handlers. Metrics and probe
// may be nil.
func NewContainer(repo port.TaskRepository, cfg *config.AppConfig, metrics *telemetry.AppMetrics, probe port.Telemetry, logger *config.LokiLogger) *Container {
	opts := []service.Option{service.WithClock(cfg.Now)}

	if probe != nil {
		opts = append(opts, service.WithTelemetry(probe))
	}

	if metrics != nil {
		opts = append(opts, service.WithMetrics(metrics))
	}

	taskSvc := service.NewTaskService(repo, opts...)

	return &Container{
		TaskRepo:    repo,
		TaskService: taskSvc,

		TaskHandler:   handler.NewTaskHandler(taskSvc, logger),
		HealthHandler: handler.NewHealthHandler(repo, cfg.ServiceVersion, logger),
	}
}

func (c *Container) Handlers() routes.HandlersConfig {
	return routes.HandlersConfig{
		TaskHandler:   c.TaskHandler,
		HealthHandler: c.HealthHandler,
	}
}
