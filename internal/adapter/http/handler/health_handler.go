package handler

import (
	"context"
	"net/http"
	"time"

	. "taskapp/internal/adapter/http/helper"
	"taskapp/internal/core/model/response"
	"taskapp/pkg/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store   Pinger
	version string
	Logger  *config.LokiLogger
}

func NewHealthHandler(store Pinger, version string, logger *config.LokiLogger) *HealthHandler {
	return &HealthHandler{store: store, version: version, Logger: logger}
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, response.BannerResponse{
		Message: "Welcome to the Task API! Service is running.",
		Version: h.version,
	})
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.Logger.ErrorWithTrace(ctx, "Health check failed", zap.Error(err))

		SendError(c, http.StatusServiceUnavailable, CodeStoreDown, []response.ValidationError{
			{Field: "database", Message: "database unreachable"},
		})
		return
	}

	c.JSON(http.StatusOK, response.HealthResponse{Status: "ok", Database: "up"})
}
