package domain

import (
	"fmt"
	"time"
)

type Priority int

const (
	PriorityHigh Priority = iota + 1
	PriorityMedium
	PriorityLow
)

const (
	DefaultCategory = "Misc"
	DefaultPriority = PriorityMedium

	TitleMaxLength       = 255
	DescriptionMaxLength = 1000
	CategoryMaxLength    = 50
)

type Task struct {
	ID          int64
	Title       string
	Description *string
	Category    string
	Priority    Priority
	DueDate     *Date
	IsCompleted bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p Priority) Valid() bool {
	return p >= PriorityHigh && p <= PriorityLow
}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

func (t *Task) HasDueDate() bool {
	return t.DueDate != nil
}

// Touch refreshes UpdatedAt. It never moves backwards, even when the clock
// does; UpdatedAt >= CreatedAt holds already, so that bound is covered too.
func (t *Task) Touch(now time.Time) {
	if now.Before(t.UpdatedAt) {
		now = t.UpdatedAt
	}

	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}

	t.UpdatedAt = now
}

func (t *Task) DescriptionOrEmpty() string {
	if t.Description == nil {
		return ""
	}

	return *t.Description
}

// ToMap returns the persisted columns of the task, id excluded.
func (t *Task) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"title":        t.Title,
		"description":  t.Description,
		"category":     t.Category,
		"priority":     int(t.Priority),
		"due_date":     t.DueDate,
		"is_completed": t.IsCompleted,
		"created_at":   t.CreatedAt,
		"updated_at":   t.UpdatedAt,
	}
}
