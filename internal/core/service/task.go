package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"taskapp/internal/core/domain"
	"taskapp/internal/core/model/snapshot"
	"taskapp/internal/core/port"
	"taskapp/internal/core/query"
	"taskapp/internal/core/telemetry"
)

const serviceName = "task"

var _ port.TaskService = (*TaskService)(nil)

type TaskService struct {
	repo      port.TaskRepository
	telemetry port.Telemetry
	metrics   port.TaskMetrics
	clock     func() time.Time
}

type Option func(*TaskService)

// WithClock sets the source of the current time. Its location decides which
// calendar day counts as today.
func WithClock(clock func() time.Time) Option {
	return func(ts *TaskService) { ts.clock = clock }
}

func WithTelemetry(t port.Telemetry) Option {
	return func(ts *TaskService) { ts.telemetry = t }
}

func WithMetrics(m port.TaskMetrics) Option {
	return func(ts *TaskService) { ts.metrics = m }
}

func NewTaskService(repo port.TaskRepository, opts ...Option) *TaskService {
	ts := &TaskService{
		repo:      repo,
		telemetry: telemetry.NewNoOpProbe(),
		clock:     time.Now,
	}

	for _, opt := range opts {
		opt(ts)
	}

	return ts
}

func (ts *TaskService) List(ctx context.Context, params query.Params) ([]domain.Task, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "list", map[string]interface{}{
		"sort_by":     string(params.SortBy),
		"date_filter": string(params.DateFilter),
		"has_search":  params.Search != "",
	})
	defer span.End()

	start := time.Now()
	tasks, err := ts.repo.List(ctx, params)
	ts.telemetry.RecordServiceOperation(ctx, serviceName, "list", time.Since(start), err)

	if err != nil {
		return nil, err
	}

	resolved := query.Resolve(tasks, params, ts.today())
	span.SetAttributes(map[string]interface{}{"result.count": len(resolved)})

	return resolved, nil
}

func (ts *TaskService) Get(ctx context.Context, id int64) (domain.Task, error) {
	return ts.repo.GetByID(ctx, id)
}

func (ts *TaskService) Create(ctx context.Context, input domain.TaskInput) (domain.Task, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "create", nil)
	defer span.End()

	task, err := input.NewTask(ts.now())

	if err != nil {
		return domain.Task{}, err
	}

	start := time.Now()
	task, err = ts.repo.Create(ctx, task)
	ts.telemetry.RecordServiceOperation(ctx, serviceName, "create", time.Since(start), err)

	if err != nil {
		slog.Error("Repository create failed", "error", err, "title", input.Title)
		return domain.Task{}, err
	}

	ts.record(ctx, "create")

	return task, nil
}

func (ts *TaskService) Update(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "update", map[string]interface{}{"task.id": id})
	defer span.End()

	if err := patch.Validate(); err != nil {
		return domain.Task{}, err
	}

	start := time.Now()
	task, err := ts.repo.Update(ctx, id, func(task *domain.Task) error {
		return patch.ApplyTo(task, ts.now())
	})
	ts.telemetry.RecordServiceOperation(ctx, serviceName, "update", time.Since(start), err)

	if err != nil {
		return domain.Task{}, err
	}

	ts.record(ctx, "update")

	return task, nil
}

func (ts *TaskService) Delete(ctx context.Context, id int64) error {
	if err := ts.repo.Delete(ctx, id); err != nil {
		return err
	}

	ts.telemetry.RecordBusinessEvent(ctx, "deleted", serviceName, strconv.FormatInt(id, 10), nil)
	ts.record(ctx, "delete")

	return nil
}

// BatchCreate validates every input before writing any of them, then stores
// the whole batch atomically.
func (ts *TaskService) BatchCreate(ctx context.Context, inputs []domain.TaskInput) ([]domain.Task, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "batch_create", map[string]interface{}{"batch.size": len(inputs)})
	defer span.End()

	if len(inputs) == 0 {
		return nil, domain.NewValidationError("tasks", "tasks list must not be empty")
	}

	now := ts.now()
	tasks := make([]domain.Task, 0, len(inputs))

	for i, input := range inputs {
		task, err := input.NewTask(now)

		if err != nil {
			var verr *domain.ValidationError

			if errors.As(err, &verr) {
				return nil, verr.AtIndex(i + 1)
			}

			return nil, err
		}

		tasks = append(tasks, task)
	}

	start := time.Now()
	created, err := ts.repo.CreateBatch(ctx, tasks)
	ts.telemetry.RecordServiceOperation(ctx, serviceName, "batch_create", time.Since(start), err)

	if err != nil {
		slog.Error("Repository batch create failed", "error", err, "size", len(tasks))
		return nil, err
	}

	ts.telemetry.RecordBusinessEvent(ctx, "batch_created", serviceName, "", map[string]interface{}{"count": len(created)})
	ts.record(ctx, "batch_create")

	return created, nil
}

// Export returns every task, newest first, with no filters applied.
func (ts *TaskService) Export(ctx context.Context) (snapshot.Snapshot, error) {
	tasks, err := ts.repo.List(ctx, query.Params{})

	if err != nil {
		return snapshot.Snapshot{}, err
	}

	ordered := query.Resolve(tasks, query.Params{SortBy: query.SortByCreatedAt}, ts.today())
	ts.record(ctx, "export")

	return snapshot.New(ordered, ts.now()), nil
}

// Import parses raw snapshot entries and creates them as one batch.
func (ts *TaskService) Import(ctx context.Context, items []json.RawMessage) ([]domain.Task, error) {
	if len(items) == 0 {
		return nil, domain.NewValidationError("tasks", "tasks list must not be empty")
	}

	inputs, err := snapshot.ParseItems(items)

	if err != nil {
		return nil, err
	}

	return ts.BatchCreate(ctx, inputs)
}

func (ts *TaskService) Stats(ctx context.Context) (port.TaskStats, error) {
	total, err := ts.repo.Count(ctx)

	if err != nil {
		return port.TaskStats{}, err
	}

	completed := false
	open, err := ts.repo.List(ctx, query.Params{IsCompleted: &completed})

	if err != nil {
		return port.TaskStats{}, err
	}

	today := ts.today()
	stats := port.TaskStats{Total: total, Open: len(open)}

	for _, t := range open {
		if t.DueDate != nil && t.DueDate.Before(today) {
			stats.Overdue++
		}
	}

	return stats, nil
}

// now is the timestamp stored on records: UTC at microsecond precision,
// which every store can hold without loss.
func (ts *TaskService) now() time.Time {
	return ts.clock().UTC().Truncate(time.Microsecond)
}

func (ts *TaskService) today() domain.Date {
	return domain.DateOf(ts.clock())
}

func (ts *TaskService) record(ctx context.Context, operation string) {
	if ts.metrics != nil {
		ts.metrics.RecordTaskOperation(ctx, operation)
	}
}
