package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"taskapp/internal/adapter/database"
	"taskapp/internal/adapter/database/postgres"
	"taskapp/internal/core/domain"
	"taskapp/internal/core/port"
	"taskapp/internal/core/query"
	"taskapp/pkg/tracing"
)

const system = "postgresql"

// querier is the subset shared by the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type TaskRepository struct {
	db *postgres.DB
}

func NewTaskRepository(db *postgres.DB) port.TaskRepository {
	return &TaskRepository{db: db}
}

func (tr *TaskRepository) List(ctx context.Context, params query.Params) ([]domain.Task, error) {
	var tasks []domain.Task

	err := tracing.Query(ctx, system, database.TasksTable, "SELECT", func(ctx context.Context) error {
		stmt, args, err := tr.db.Dialect.SelectTasks(params).ToSql()

		if err != nil {
			return err
		}

		rows, err := tr.db.Query(ctx, stmt, args...)

		if err != nil {
			slog.Error("Error fetching tasks", "error", err)
			return fmt.Errorf("list tasks: %w", err)
		}

		defer rows.Close()

		tasks = make([]domain.Task, 0)

		for rows.Next() {
			task, err := database.ScanTask(rows)

			if err != nil {
				return fmt.Errorf("scan task: %w", err)
			}

			tasks = append(tasks, task)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return tasks, nil
}

func (tr *TaskRepository) GetByID(ctx context.Context, id int64) (domain.Task, error) {
	return tr.getByID(ctx, tr.db, id, false)
}

func (tr *TaskRepository) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	err := tracing.Query(ctx, system, database.TasksTable, "INSERT", func(ctx context.Context) error {
		id, err := tr.insert(ctx, tr.db, task)
		task.ID = id

		return err
	})

	if err != nil {
		slog.Error("Error creating task", "error", err)
		return domain.Task{}, err
	}

	return task, nil
}

func (tr *TaskRepository) CreateBatch(ctx context.Context, tasks []domain.Task) ([]domain.Task, error) {
	created := make([]domain.Task, 0, len(tasks))

	err := tracing.Query(ctx, system, database.TasksTable, "INSERT_BATCH", func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, tr.db.Pool, func(tx pgx.Tx) error {
			for i, task := range tasks {
				id, err := tr.insert(ctx, tx, task)

				if err != nil {
					return fmt.Errorf("item %d: %w", i+1, err)
				}

				task.ID = id
				created = append(created, task)
			}

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return created, nil
}

func (tr *TaskRepository) Update(ctx context.Context, id int64, mutate func(task *domain.Task) error) (domain.Task, error) {
	var updated domain.Task

	err := tracing.Query(ctx, system, database.TasksTable, "UPDATE", func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, tr.db.Pool, func(tx pgx.Tx) error {
			task, err := tr.getByID(ctx, tx, id, true)

			if err != nil {
				return err
			}

			if err := mutate(&task); err != nil {
				return err
			}

			stmt, args, err := tr.db.Dialect.UpdateTask(task).ToSql()

			if err != nil {
				return err
			}

			if _, err := tx.Exec(ctx, stmt, args...); err != nil {
				return fmt.Errorf("update task %d: %w", id, err)
			}

			updated = task
			return nil
		})
	})

	if err != nil {
		return domain.Task{}, err
	}

	return updated, nil
}

func (tr *TaskRepository) Delete(ctx context.Context, id int64) error {
	return tracing.Query(ctx, system, database.TasksTable, "DELETE", func(ctx context.Context) error {
		stmt, args, err := tr.db.Dialect.DeleteTask(id).ToSql()

		if err != nil {
			return err
		}

		tag, err := tr.db.Exec(ctx, stmt, args...)

		if err != nil {
			return fmt.Errorf("delete task %d: %w", id, err)
		}

		if tag.RowsAffected() == 0 {
			return domain.NotFoundError(id)
		}

		return nil
	})
}

func (tr *TaskRepository) Count(ctx context.Context) (int, error) {
	stmt, args, err := tr.db.QueryBuilder.Select("COUNT(*)").From(database.TasksTable).ToSql()

	if err != nil {
		return 0, err
	}

	var count int

	if err := tr.db.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}

	return count, nil
}

func (tr *TaskRepository) Ping(ctx context.Context) error {
	return tr.db.Pool.Ping(ctx)
}

func (tr *TaskRepository) getByID(ctx context.Context, q querier, id int64, forUpdate bool) (domain.Task, error) {
	builder := tr.db.Dialect.SelectTask(id)

	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	stmt, args, err := builder.ToSql()

	if err != nil {
		return domain.Task{}, err
	}

	task, err := database.ScanTask(q.QueryRow(ctx, stmt, args...))

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, domain.NotFoundError(id)
	}

	if err != nil {
		return domain.Task{}, fmt.Errorf("get task %d: %w", id, err)
	}

	return task, nil
}

func (tr *TaskRepository) insert(ctx context.Context, q querier, task domain.Task) (int64, error) {
	stmt, args, err := tr.db.Dialect.InsertTask(task).Suffix("RETURNING id").ToSql()

	if err != nil {
		return 0, err
	}

	var id int64

	if err := q.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}

	return id, nil
}
