package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// TaskInput carries the fields accepted when a task is created. Nil
// pointers fall back to the defaults.
type TaskInput struct {
	Title       string
	Description *string
	Category    *string
	Priority    *Priority
	DueDate     *Date
	IsCompleted *bool
}

// TaskPatch is a sparse update: only fields that are set are applied.
type TaskPatch struct {
	Title       Optional[string]
	Description Optional[string]
	Category    Optional[string]
	Priority    Optional[Priority]
	DueDate     Optional[Date]
	IsCompleted Optional[bool]
}

func (in TaskInput) Validate() error {
	if err := validateTitle(in.Title); err != nil {
		return err
	}

	if in.Description != nil {
		if err := validateLength("description", *in.Description, DescriptionMaxLength); err != nil {
			return err
		}
	}

	if in.Category != nil {
		if err := validateLength("category", *in.Category, CategoryMaxLength); err != nil {
			return err
		}
	}

	if in.Priority != nil && !in.Priority.Valid() {
		return NewValidationError("priority", "priority must be 1, 2 or 3")
	}

	return nil
}

// NewTask validates the input and builds an unsaved task stamped with now.
func (in TaskInput) NewTask(now time.Time) (Task, error) {
	if err := in.Validate(); err != nil {
		return Task{}, err
	}

	task := Task{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    normalizeCategory(in.Category),
		Priority:    DefaultPriority,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if in.Priority != nil {
		task.Priority = *in.Priority
	}

	if in.IsCompleted != nil {
		task.IsCompleted = *in.IsCompleted
	}

	return task, nil
}

func (p TaskPatch) Validate() error {
	if p.Title.IsSet() {
		if p.Title.IsNull() {
			return NewValidationError("title", "title cannot be null")
		}

		title, _ := p.Title.Get()

		if err := validateTitle(title); err != nil {
			return err
		}
	}

	if desc, ok := p.Description.Get(); ok && !p.Description.IsNull() {
		if err := validateLength("description", desc, DescriptionMaxLength); err != nil {
			return err
		}
	}

	if cat, ok := p.Category.Get(); ok && !p.Category.IsNull() {
		if err := validateLength("category", cat, CategoryMaxLength); err != nil {
			return err
		}
	}

	if p.Priority.IsSet() {
		prio, _ := p.Priority.Get()

		if p.Priority.IsNull() || !prio.Valid() {
			return NewValidationError("priority", "priority must be 1, 2 or 3")
		}
	}

	if p.IsCompleted.IsNull() {
		return NewValidationError("is_completed", "is_completed cannot be null")
	}

	return nil
}

// ApplyTo validates the patch and writes its set fields onto task, then
// refreshes UpdatedAt even when nothing else changed.
func (p TaskPatch) ApplyTo(task *Task, now time.Time) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if title, ok := p.Title.Get(); ok {
		task.Title = strings.TrimSpace(title)
	}

	if p.Description.IsSet() {
		task.Description = nil

		if desc, _ := p.Description.Get(); !p.Description.IsNull() {
			task.Description = &desc
		}
	}

	if p.Category.IsSet() {
		task.Category = DefaultCategory

		if cat, _ := p.Category.Get(); !p.Category.IsNull() {
			task.Category = normalizeCategory(&cat)
		}
	}

	if prio, ok := p.Priority.Get(); ok {
		task.Priority = prio
	}

	if p.DueDate.IsSet() {
		task.DueDate = nil

		if due, _ := p.DueDate.Get(); !p.DueDate.IsNull() {
			task.DueDate = &due
		}
	}

	if done, ok := p.IsCompleted.Get(); ok {
		task.IsCompleted = done
	}

	task.Touch(now)

	return nil
}

func validateTitle(title string) error {
	trimmed := strings.TrimSpace(title)

	if trimmed == "" {
		return NewValidationError("title", "title must not be empty")
	}

	return validateLength("title", trimmed, TitleMaxLength)
}

func validateLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return NewValidationError(field, fmt.Sprintf("%s must be at most %d characters", field, max))
	}

	return nil
}

func normalizeCategory(category *string) string {
	if category == nil {
		return DefaultCategory
	}

	if strings.TrimSpace(*category) == "" {
		return DefaultCategory
	}

	return *category
}
