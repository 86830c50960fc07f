package database

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"taskapp/internal/core/domain"
	"taskapp/internal/core/query"
)

const TasksTable = "tasks"

var TaskColumns = []string{
	"id", "title", "description", "category", "priority",
	"due_date", "is_completed", "created_at", "updated_at",
}

var insertColumns = TaskColumns[1:]

// Dialect captures what differs between the SQL stores: placeholders and
// how a calendar date is bound.
type Dialect struct {
	Name        string
	Placeholder sq.PlaceholderFormat
	DateValue   func(d domain.Date) interface{}
}

var (
	SQLite = Dialect{
		Name:        "sqlite",
		Placeholder: sq.Question,
		DateValue:   func(d domain.Date) interface{} { return d.String() },
	}

	Postgres = Dialect{
		Name:        "postgres",
		Placeholder: sq.Dollar,
		DateValue:   func(d domain.Date) interface{} { return d.Time() },
	}
)

func (d Dialect) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder)
}

// SelectTasks pushes the equality dimensions of params down to SQL. Search
// and relative date buckets are left to the query engine.
func (d Dialect) SelectTasks(params query.Params) sq.SelectBuilder {
	builder := d.Builder().Select(TaskColumns...).From(TasksTable)

	if params.IsCompleted != nil {
		builder = builder.Where(sq.Eq{"is_completed": *params.IsCompleted})
	}

	if params.Category != nil {
		builder = builder.Where(sq.Eq{"category": *params.Category})
	}

	if params.DateFilter == query.DateFilterNoDueDate {
		builder = builder.Where(sq.Eq{"due_date": nil})
	}

	return builder
}

func (d Dialect) SelectTask(id int64) sq.SelectBuilder {
	return d.Builder().Select(TaskColumns...).From(TasksTable).Where(sq.Eq{"id": id})
}

func (d Dialect) InsertTask(task domain.Task) sq.InsertBuilder {
	return d.Builder().Insert(TasksTable).
		Columns(insertColumns...).
		Values(d.values(task)...)
}

func (d Dialect) UpdateTask(task domain.Task) sq.UpdateBuilder {
	set := make(map[string]interface{}, len(insertColumns))

	for i, value := range d.values(task) {
		set[insertColumns[i]] = value
	}

	delete(set, "created_at")

	return d.Builder().Update(TasksTable).SetMap(set).Where(sq.Eq{"id": task.ID})
}

func (d Dialect) DeleteTask(id int64) sq.DeleteBuilder {
	return d.Builder().Delete(TasksTable).Where(sq.Eq{"id": id})
}

func (d Dialect) values(task domain.Task) []interface{} {
	var due interface{}

	if task.DueDate != nil {
		due = d.DateValue(*task.DueDate)
	}

	var description interface{}

	if task.Description != nil {
		description = *task.Description
	}

	return []interface{}{
		task.Title,
		description,
		task.Category,
		int(task.Priority),
		due,
		task.IsCompleted,
		task.CreatedAt.UTC(),
		task.UpdatedAt.UTC(),
	}
}

// RowScanner is satisfied by *sql.Row, *sql.Rows and pgx rows.
type RowScanner interface {
	Scan(dest ...any) error
}

func ScanTask(row RowScanner) (domain.Task, error) {
	var (
		task        domain.Task
		description sql.NullString
		priority    int
		due         NullDate
	)

	err := row.Scan(
		&task.ID,
		&task.Title,
		&description,
		&task.Category,
		&priority,
		&due,
		&task.IsCompleted,
		&task.CreatedAt,
		&task.UpdatedAt,
	)

	if err != nil {
		return domain.Task{}, err
	}

	if description.Valid {
		task.Description = &description.String
	}

	if due.Valid {
		task.DueDate = &due.Date
	}

	task.Priority = domain.Priority(priority)
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()

	return task, nil
}

// NullDate scans a nullable date stored either as text or as a native date.
type NullDate struct {
	Date  domain.Date
	Valid bool
}

func (n *NullDate) Scan(value interface{}) error {
	n.Valid = false

	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		n.Date, n.Valid = domain.NewDate(v.Year(), v.Month(), v.Day()), true
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into date", value)
	}
}

func (n *NullDate) parse(s string) error {
	d, err := domain.ParseDate(s)

	if err != nil {
		return err
	}

	n.Date, n.Valid = d, true
	return nil
}
