package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"taskapp/internal/adapter/database"
	"taskapp/internal/adapter/database/sqlite"
	"taskapp/internal/core/domain"
	"taskapp/internal/core/port"
	"taskapp/internal/core/query"
	tel "taskapp/internal/core/telemetry"
)

const entity = "task"

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type TaskRepository struct {
	db        *sqlite.DB
	telemetry port.Telemetry
}

func NewTaskRepository(db *sqlite.DB, telemetry port.Telemetry) port.TaskRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TaskRepository{
		db:        db,
		telemetry: telemetry,
	}
}

func (tr *TaskRepository) List(ctx context.Context, params query.Params) ([]domain.Task, error) {
	ctx, span := tr.startSpan(ctx, "List", "SELECT", nil)
	defer span.End()

	startTime := time.Now()

	stmt, args, err := tr.db.Dialect.SelectTasks(params).ToSql()

	if err != nil {
		return nil, tr.fail(ctx, span, "List", startTime, err)
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "List", entity, stmt, args)

	rows, err := tr.db.QueryContext(ctx, stmt, args...)

	if err != nil {
		return nil, tr.fail(ctx, span, "List", startTime, fmt.Errorf("list tasks: %w", err))
	}

	defer rows.Close()

	tasks := make([]domain.Task, 0)

	for rows.Next() {
		task, err := database.ScanTask(rows)

		if err != nil {
			return nil, tr.fail(ctx, span, "List", startTime, fmt.Errorf("scan task: %w", err))
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, tr.fail(ctx, span, "List", startTime, fmt.Errorf("list tasks: %w", err))
	}

	span.SetAttributes(map[string]interface{}{"db.rows_returned": len(tasks)})
	span.SetStatus("ok", "")
	tr.telemetry.RecordRepositoryOperation(ctx, "List", entity, time.Since(startTime), nil)

	return tasks, nil
}

func (tr *TaskRepository) GetByID(ctx context.Context, id int64) (domain.Task, error) {
	return tr.getByID(ctx, tr.db, id)
}

func (tr *TaskRepository) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	ctx, span := tr.startSpan(ctx, "Create", "INSERT", map[string]interface{}{
		"task.title": task.Title,
	})
	defer span.End()

	startTime := time.Now()

	id, err := tr.insert(ctx, tr.db, task)

	if err != nil {
		slog.Error("Insert failed", "error", err, "title", task.Title)
		return domain.Task{}, tr.fail(ctx, span, "Create", startTime, err)
	}

	saved, err := tr.getByID(ctx, tr.db, id)

	if err != nil {
		return domain.Task{}, tr.fail(ctx, span, "Create", startTime, err)
	}

	tr.telemetry.RecordBusinessEvent(ctx, "created", entity, fmt.Sprint(saved.ID), map[string]interface{}{
		"category": saved.Category,
		"priority": int(saved.Priority),
	})

	span.SetStatus("ok", "")
	tr.telemetry.RecordRepositoryOperation(ctx, "Create", entity, time.Since(startTime), nil)

	return saved, nil
}

func (tr *TaskRepository) CreateBatch(ctx context.Context, tasks []domain.Task) ([]domain.Task, error) {
	ctx, span := tr.startSpan(ctx, "CreateBatch", "INSERT", map[string]interface{}{
		"batch.size": len(tasks),
	})
	defer span.End()

	startTime := time.Now()

	tx, err := tr.db.BeginTx(ctx, nil)

	if err != nil {
		return nil, tr.fail(ctx, span, "CreateBatch", startTime, fmt.Errorf("begin batch: %w", err))
	}

	// no-op once committed
	defer tx.Rollback()

	created := make([]domain.Task, 0, len(tasks))

	for i, task := range tasks {
		id, err := tr.insert(ctx, tx, task)

		if err != nil {
			return nil, tr.fail(ctx, span, "CreateBatch", startTime, fmt.Errorf("item %d: %w", i+1, err))
		}

		task.ID = id
		created = append(created, task)
	}

	if err := tx.Commit(); err != nil {
		return nil, tr.fail(ctx, span, "CreateBatch", startTime, fmt.Errorf("commit batch: %w", err))
	}

	span.SetStatus("ok", "")
	tr.telemetry.RecordRepositoryOperation(ctx, "CreateBatch", entity, time.Since(startTime), nil)

	return created, nil
}

func (tr *TaskRepository) Update(ctx context.Context, id int64, mutate func(task *domain.Task) error) (domain.Task, error) {
	ctx, span := tr.startSpan(ctx, "Update", "UPDATE", map[string]interface{}{
		"task.id": id,
	})
	defer span.End()

	startTime := time.Now()

	tx, err := tr.db.BeginTx(ctx, nil)

	if err != nil {
		return domain.Task{}, tr.fail(ctx, span, "Update", startTime, fmt.Errorf("begin update: %w", err))
	}

	defer tx.Rollback()

	task, err := tr.getByID(ctx, tx, id)

	if err != nil {
		return domain.Task{}, tr.fail(ctx, span, "Update", startTime, err)
	}

	if err := mutate(&task); err != nil {
		return domain.Task{}, tr.fail(ctx, span, "Update", startTime, err)
	}

	stmt, args, err := tr.db.Dialect.UpdateTask(task).ToSql()

	if err != nil {
		return domain.Task{}, tr.fail(ctx, span, "Update", startTime, err)
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Update", entity, stmt, args)

	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return domain.Task{}, tr.fail(ctx, span, "Update", startTime, fmt.Errorf("update task %d: %w", id, err))
	}

	if err := tx.Commit(); err != nil {
		return domain.Task{}, tr.fail(ctx, span, "Update", startTime, fmt.Errorf("commit update: %w", err))
	}

	span.SetStatus("ok", "")
	tr.telemetry.RecordRepositoryOperation(ctx, "Update", entity, time.Since(startTime), nil)

	return task, nil
}

func (tr *TaskRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tr.startSpan(ctx, "Delete", "DELETE", map[string]interface{}{
		"task.id": id,
	})
	defer span.End()

	startTime := time.Now()

	stmt, args, err := tr.db.Dialect.DeleteTask(id).ToSql()

	if err != nil {
		return tr.fail(ctx, span, "Delete", startTime, err)
	}

	result, err := tr.db.ExecContext(ctx, stmt, args...)

	if err != nil {
		return tr.fail(ctx, span, "Delete", startTime, fmt.Errorf("delete task %d: %w", id, err))
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return tr.fail(ctx, span, "Delete", startTime, err)
	}

	if rowsAffected == 0 {
		return tr.fail(ctx, span, "Delete", startTime, domain.NotFoundError(id))
	}

	span.SetStatus("ok", "")
	tr.telemetry.RecordRepositoryOperation(ctx, "Delete", entity, time.Since(startTime), nil)

	return nil
}

func (tr *TaskRepository) Count(ctx context.Context) (int, error) {
	stmt, args, err := tr.db.QueryBuilder.Select("COUNT(*)").From(database.TasksTable).ToSql()

	if err != nil {
		return 0, err
	}

	var count int

	if err := tr.db.QueryRowContext(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}

	return count, nil
}

func (tr *TaskRepository) Ping(ctx context.Context) error {
	return tr.db.PingContext(ctx)
}

func (tr *TaskRepository) getByID(ctx context.Context, q querier, id int64) (domain.Task, error) {
	stmt, args, err := tr.db.Dialect.SelectTask(id).ToSql()

	if err != nil {
		return domain.Task{}, err
	}

	task, err := database.ScanTask(q.QueryRowContext(ctx, stmt, args...))

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, domain.NotFoundError(id)
	}

	if err != nil {
		return domain.Task{}, fmt.Errorf("get task %d: %w", id, err)
	}

	return task, nil
}

func (tr *TaskRepository) insert(ctx context.Context, q querier, task domain.Task) (int64, error) {
	stmt, args, err := tr.db.Dialect.InsertTask(task).ToSql()

	if err != nil {
		return 0, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Insert", entity, stmt, args)

	result, err := q.ExecContext(ctx, stmt, args...)

	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}

	id, err := result.LastInsertId()

	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}

	return id, nil
}

func (tr *TaskRepository) startSpan(ctx context.Context, operation, statement string, attrs map[string]interface{}) (context.Context, port.Span) {
	base := map[string]interface{}{
		"db.system":    "sqlite",
		"db.table":     database.TasksTable,
		"db.operation": statement,
	}

	for k, v := range attrs {
		base[k] = v
	}

	return tr.telemetry.StartRepositorySpan(ctx, operation, entity, base)
}

func (tr *TaskRepository) fail(ctx context.Context, span port.Span, operation string, startTime time.Time, err error) error {
	span.SetStatus("error", err.Error())
	span.RecordError(err)
	tr.telemetry.RecordRepositoryOperation(ctx, operation, entity, time.Since(startTime), err)

	return err
}
