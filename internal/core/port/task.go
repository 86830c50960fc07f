package port

import (
	"context"
	"encoding/json"

	"taskapp/internal/core/domain"
	"taskapp/internal/core/model/snapshot"
	"taskapp/internal/core/query"
)

type TaskRepository interface {
	// List returns the tasks matching the equality dimensions of params that
	// the store can evaluate. Callers still resolve the full params.
	List(ctx context.Context, params query.Params) ([]domain.Task, error)
	GetByID(ctx context.Context, id int64) (domain.Task, error)
	Create(ctx context.Context, task domain.Task) (domain.Task, error)
	// CreateBatch inserts every task in one transaction, or none of them.
	CreateBatch(ctx context.Context, tasks []domain.Task) ([]domain.Task, error)
	// Update loads the task, hands it to mutate and persists the result
	// within a single unit of work.
	Update(ctx context.Context, id int64, mutate func(task *domain.Task) error) (domain.Task, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

type TaskService interface {
	List(ctx context.Context, params query.Params) ([]domain.Task, error)
	Get(ctx context.Context, id int64) (domain.Task, error)
	Create(ctx context.Context, input domain.TaskInput) (domain.Task, error)
	Update(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error)
	Delete(ctx context.Context, id int64) error
	BatchCreate(ctx context.Context, inputs []domain.TaskInput) ([]domain.Task, error)
	Export(ctx context.Context) (snapshot.Snapshot, error)
	Import(ctx context.Context, items []json.RawMessage) ([]domain.Task, error)
	Stats(ctx context.Context) (TaskStats, error)
}

type TaskStats struct {
	Total   int
	Open    int
	Overdue int
}

// TaskMetrics receives counters and gauges about task activity.
type TaskMetrics interface {
	RecordTaskOperation(ctx context.Context, operation string)
	SetTaskGauges(stats TaskStats)
}
