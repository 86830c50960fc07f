package response

import (
	"time"

	"taskapp/internal/core/domain"
)

type TaskResponse struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Category    string       `json:"category"`
	Priority    int          `json:"priority"`
	DueDate     *domain.Date `json:"due_date"`
	IsCompleted bool         `json:"is_completed"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type BannerResponse struct {
	Message string `json:"message"`
	Version string `json:"version,omitempty"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ResponseError struct {
	Code   string            `json:"code"`
	Errors []ValidationError `json:"errors"`
}

type ErrorResponse struct {
	Error ResponseError `json:"error"`
}

func NewTaskResponse(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Priority:    int(t.Priority),
		DueDate:     t.DueDate,
		IsCompleted: t.IsCompleted,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func NewTaskListResponse(tasks []domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))

	for _, t := range tasks {
		out = append(out, NewTaskResponse(t))
	}

	return out
}
