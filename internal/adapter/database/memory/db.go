package memory

import (
	"context"
	"sync"

	"taskapp/internal/core/domain"
	"taskapp/internal/core/port"
	"taskapp/internal/core/query"
)

// taskRepository keeps tasks in process memory. It is the store itself, so
// it does its own locking.
type taskRepository struct {
	mu     sync.RWMutex
	tasks  map[int64]domain.Task
	lastID int64
}

func NewTaskRepository() port.TaskRepository {
	return &taskRepository{
		tasks: make(map[int64]domain.Task),
	}
}

func (r *taskRepository) List(ctx context.Context, params query.Params) ([]domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]domain.Task, 0, len(r.tasks))

	for _, task := range r.tasks {
		if params.IsCompleted != nil && task.IsCompleted != *params.IsCompleted {
			continue
		}

		if params.Category != nil && task.Category != *params.Category {
			continue
		}

		tasks = append(tasks, clone(task))
	}

	return tasks, nil
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]

	if !ok {
		return domain.Task{}, domain.NotFoundError(id)
	}

	return clone(task), nil
}

func (r *taskRepository) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.insert(task), nil
}

func (r *taskRepository) CreateBatch(ctx context.Context, tasks []domain.Task) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := make([]domain.Task, 0, len(tasks))

	for _, task := range tasks {
		created = append(created, r.insert(task))
	}

	return created, nil
}

func (r *taskRepository) Update(ctx context.Context, id int64, mutate func(task *domain.Task) error) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tasks[id]

	if !ok {
		return domain.Task{}, domain.NotFoundError(id)
	}

	task := clone(current)

	if err := mutate(&task); err != nil {
		return domain.Task{}, err
	}

	task.ID = id
	r.tasks[id] = clone(task)

	return task, nil
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return domain.NotFoundError(id)
	}

	delete(r.tasks, id)

	return nil
}

func (r *taskRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tasks), nil
}

func (r *taskRepository) Ping(ctx context.Context) error {
	return nil
}

// insert must be called with the write lock held. Ids only grow, so a
// deleted id is never handed out again.
func (r *taskRepository) insert(task domain.Task) domain.Task {
	r.lastID++
	task.ID = r.lastID
	r.tasks[task.ID] = clone(task)

	return task
}

func clone(task domain.Task) domain.Task {
	if task.Description != nil {
		desc := *task.Description
		task.Description = &desc
	}

	if task.DueDate != nil {
		due := *task.DueDate
		task.DueDate = &due
	}

	return task
}
