package request

import (
	"encoding/json"

	"taskapp/internal/core/domain"
)

// TaskRequest is the body of a single create. Completion state is not
// accepted here; only imports may restore it.
type TaskRequest struct {
	Title       string       `json:"title" validate:"required"`
	Description *string      `json:"description" validate:"omitempty,max=1000"`
	Category    *string      `json:"category" validate:"omitempty,max=50"`
	Priority    *int         `json:"priority" validate:"omitempty,min=1,max=3"`
	DueDate     *domain.Date `json:"due_date"`
}

// TaskPatchRequest keeps absent and null apart for every field, so it is
// validated by the domain rather than by struct tags.
type TaskPatchRequest struct {
	Title       domain.Optional[string]      `json:"title"`
	Description domain.Optional[string]      `json:"description"`
	Category    domain.Optional[string]      `json:"category"`
	Priority    domain.Optional[int]         `json:"priority"`
	DueDate     domain.Optional[domain.Date] `json:"due_date"`
	IsCompleted domain.Optional[bool]        `json:"is_completed"`
}

type ImportRequest struct {
	Tasks []json.RawMessage `json:"tasks" validate:"required"`
}

func (r TaskRequest) ToInput() domain.TaskInput {
	in := domain.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		DueDate:     r.DueDate,
	}

	if r.Priority != nil {
		p := domain.Priority(*r.Priority)
		in.Priority = &p
	}

	return in
}

func (r TaskPatchRequest) ToPatch() domain.TaskPatch {
	patch := domain.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		DueDate:     r.DueDate,
		IsCompleted: r.IsCompleted,
	}

	if r.Priority.IsNull() {
		patch.Priority = domain.Null[domain.Priority]()
	} else if p, ok := r.Priority.Get(); ok {
		patch.Priority = domain.Some(domain.Priority(p))
	}

	return patch
}
