package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskapp/internal/core/domain"
)

// Snapshot is the full, unfiltered export of the task collection.
type Snapshot struct {
	ExportTime time.Time `json:"export_time" yaml:"export_time"`
	TotalTasks int       `json:"total_tasks" yaml:"total_tasks"`
	Tasks      []Task    `json:"tasks" yaml:"tasks"`
}

type Task struct {
	ID          int64        `json:"id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Description *string      `json:"description" yaml:"description"`
	Category    string       `json:"category" yaml:"category"`
	Priority    int          `json:"priority" yaml:"priority"`
	IsCompleted bool         `json:"is_completed" yaml:"is_completed"`
	DueDate     *domain.Date `json:"due_date" yaml:"due_date"`
	CreatedAt   time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" yaml:"updated_at"`
}

// ImportItem is the typed form of one raw import entry. Absent fields stay
// nil and fall back to the creation defaults.
type ImportItem struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Category    *string      `json:"category"`
	Priority    *int         `json:"priority"`
	DueDate     *domain.Date `json:"due_date"`
	IsCompleted *bool        `json:"is_completed"`
}

func New(tasks []domain.Task, exportTime time.Time) Snapshot {
	out := Snapshot{
		ExportTime: exportTime,
		TotalTasks: len(tasks),
		Tasks:      make([]Task, 0, len(tasks)),
	}

	for _, t := range tasks {
		out.Tasks = append(out.Tasks, FromDomain(t))
	}

	return out
}

func FromDomain(t domain.Task) Task {
	return Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Priority:    int(t.Priority),
		IsCompleted: t.IsCompleted,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// RawTasks re-encodes the snapshot tasks as raw import items.
func (s Snapshot) RawTasks() ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(s.Tasks))

	for _, t := range s.Tasks {
		raw, err := json.Marshal(t)

		if err != nil {
			return nil, fmt.Errorf("encode task %d: %w", t.ID, err)
		}

		out = append(out, raw)
	}

	return out, nil
}

func (it ImportItem) Input() domain.TaskInput {
	in := domain.TaskInput{
		Description: it.Description,
		Category:    it.Category,
		DueDate:     it.DueDate,
		IsCompleted: it.IsCompleted,
	}

	if it.Title != nil {
		in.Title = *it.Title
	}

	if it.Priority != nil {
		p := domain.Priority(*it.Priority)
		in.Priority = &p
	}

	return in
}

// ParseItems decodes and validates raw import entries in order, stopping at
// the first bad one. Errors carry the 1-based position of the entry.
func ParseItems(raw []json.RawMessage) ([]domain.TaskInput, error) {
	inputs := make([]domain.TaskInput, 0, len(raw))

	for i, item := range raw {
		index := i + 1

		if !isObject(item) {
			return nil, domain.NewValidationError("tasks", "task must be an object").AtIndex(index)
		}

		var parsed ImportItem

		if err := json.Unmarshal(item, &parsed); err != nil {
			return nil, domain.NewValidationError("tasks", fmt.Sprintf("invalid task: %v", err)).AtIndex(index)
		}

		input := parsed.Input()

		if err := input.Validate(); err != nil {
			return nil, tagIndex(err, index)
		}

		inputs = append(inputs, input)
	}

	return inputs, nil
}

func tagIndex(err error, index int) error {
	var verr *domain.ValidationError

	if errors.As(err, &verr) {
		return verr.AtIndex(index)
	}

	return err
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
