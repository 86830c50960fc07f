package handler

import (
	"net/http"
	"strconv"
	"strings"

	. "taskapp/internal/adapter/http/helper"
	. "taskapp/internal/adapter/http/validation"
	"taskapp/internal/core/model/request"
	"taskapp/internal/core/model/response"
	"taskapp/internal/core/port"
	"taskapp/internal/core/query"
	"taskapp/pkg/config"
	"taskapp/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type TaskHandler struct {
	svc    port.TaskService
	Logger *config.LokiLogger
}

func NewTaskHandler(svc port.TaskService, logger *config.LokiLogger) *TaskHandler {
	return &TaskHandler{
		svc:    svc,
		Logger: logger,
	}
}

func (t *TaskHandler) ListTasks(c *gin.Context) {
	ctx, span := tracing.Start(c.Request.Context(), "handler.tasks.list",
		attribute.String("http.route", c.FullPath()),
		attribute.String("tasks.query", c.Request.URL.RawQuery))

	defer span.End()

	params, ok := parseListParams(c)

	if !ok {
		return
	}

	tasks, err := t.svc.List(ctx, params)

	if err != nil {
		tracing.Fail(span, err)
		t.fail(c, err, "Failed to list tasks")
		return
	}

	span.SetAttributes(attribute.Int("response.count", len(tasks)))

	c.JSON(http.StatusOK, response.NewTaskListResponse(tasks))
}

func (t *TaskHandler) GetTask(c *gin.Context) {
	id, ok := parseID(c)

	if !ok {
		return
	}

	task, err := t.svc.Get(c.Request.Context(), id)

	if err != nil {
		t.fail(c, err, "Failed to get task", zap.Int64("task_id", id))
		return
	}

	c.JSON(http.StatusOK, response.NewTaskResponse(task))
}

func (t *TaskHandler) CreateTask(c *gin.Context) {
	ctx, span := tracing.Start(c.Request.Context(), "handler.tasks.create")

	defer span.End()

	var params request.TaskRequest

	if err := c.ShouldBindJSON(&params); err != nil {
		SendBadRequestError(c, "body", "invalid JSON body: "+err.Error())
		return
	}

	if err := Validator.Struct(params); err != nil {
		SendValidationError(c, err)
		return
	}

	task, err := t.svc.Create(ctx, params.ToInput())

	if err != nil {
		tracing.Fail(span, err)
		t.fail(c, err, "Failed to create task")
		return
	}

	span.SetAttributes(attribute.Int64("task.id", task.ID))

	c.JSON(http.StatusCreated, response.NewTaskResponse(task))
}

func (t *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := parseID(c)

	if !ok {
		return
	}

	var params request.TaskPatchRequest

	if err := c.ShouldBindJSON(&params); err != nil {
		SendBadRequestError(c, "body", "invalid JSON body: "+err.Error())
		return
	}

	task, err := t.svc.Update(c.Request.Context(), id, params.ToPatch())

	if err != nil {
		t.fail(c, err, "Failed to update task", zap.Int64("task_id", id))
		return
	}

	c.JSON(http.StatusOK, response.NewTaskResponse(task))
}

func (t *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := parseID(c)

	if !ok {
		return
	}

	if err := t.svc.Delete(c.Request.Context(), id); err != nil {
		t.fail(c, err, "Failed to delete task", zap.Int64("task_id", id))
		return
	}

	c.Status(http.StatusNoContent)
}

func (t *TaskHandler) ExportTasks(c *gin.Context) {
	snap, err := t.svc.Export(c.Request.Context())

	if err != nil {
		t.fail(c, err, "Failed to export tasks")
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (t *TaskHandler) ImportTasks(c *gin.Context) {
	ctx, span := tracing.Start(c.Request.Context(), "handler.tasks.import")

	defer span.End()

	var params request.ImportRequest

	if err := c.ShouldBindJSON(&params); err != nil {
		SendBadRequestError(c, "body", "invalid JSON body: "+err.Error())
		return
	}

	if err := Validator.Struct(params); err != nil {
		SendValidationError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("import.items", len(params.Tasks)))

	tasks, err := t.svc.Import(ctx, params.Tasks)

	if err != nil {
		tracing.Fail(span, err)
		t.fail(c, err, "Failed to import tasks", zap.Int("items", len(params.Tasks)))
		return
	}

	tracing.Event(span, "tasks.imported", attribute.Int("import.created", len(tasks)))

	c.JSON(http.StatusCreated, response.NewTaskListResponse(tasks))
}

// fail writes the error envelope and logs errors that are not the
// client's fault.
func (t *TaskHandler) fail(c *gin.Context, err error, msg string, fields ...zap.Field) {
	if unexpected := SendDomainError(c, err); unexpected {
		config.LogError(c.Request.Context(), t.Logger, err, msg, fields...)
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)

	if err != nil {
		SendBadRequestError(c, "id", "id must be an integer")
		return 0, false
	}

	return id, true
}

func parseListParams(c *gin.Context) (query.Params, bool) {
	params := query.Params{
		Search:     c.Query("search"),
		DateFilter: query.DateFilter(c.Query("date_filter")),
		SortBy:     query.SortBy(c.Query("sort_by")),
	}

	if raw, ok := c.GetQuery("is_completed"); ok {
		done, valid := parseBool(raw)

		if !valid {
			SendBadRequestError(c, "is_completed", "is_completed must be a boolean")
			return query.Params{}, false
		}

		params.IsCompleted = &done
	}

	if category, ok := c.GetQuery("category"); ok {
		params.Category = &category
	}

	return params, true
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on", "t", "y":
		return true, true
	case "false", "0", "no", "off", "f", "n":
		return false, true
	default:
		return false, false
	}
}
