package factory

import (
	"strings"

	fab "github.com/Goldziher/fabricator"

	"taskapp/internal/core/domain"
)

// TaskAttributes is the flat shape fabricated before it is turned into a
// valid domain.TaskInput. Override fields by name, e.g. {"Title": "x"}.
type TaskAttributes struct {
	Title       string
	Description string
	Category    string
	Priority    int
	IsCompleted bool
}

func NewTaskAttributes(customData ...map[string]any) TaskAttributes {
	return fab.New(TaskAttributes{}).Build(customData...)
}

// NewTaskInput fabricates random attributes and clamps them into the
// accepted ranges, so the result always passes validation.
func NewTaskInput(customData ...map[string]any) domain.TaskInput {
	attrs := NewTaskAttributes(customData...)

	title := truncate(strings.TrimSpace(attrs.Title), domain.TitleMaxLength)

	if title == "" {
		title = "Task"
	}

	input := domain.TaskInput{Title: title}

	if desc := truncate(attrs.Description, domain.DescriptionMaxLength); desc != "" {
		input.Description = &desc
	}

	if cat := truncate(strings.TrimSpace(attrs.Category), domain.CategoryMaxLength); cat != "" {
		input.Category = &cat
	}

	priority := domain.Priority(attrs.Priority)

	if !priority.Valid() {
		priority = domain.Priority(abs(attrs.Priority)%3 + 1)
	}

	input.Priority = &priority

	return input
}

func truncate(s string, max int) string {
	runes := []rune(s)

	if len(runes) <= max {
		return s
	}

	return strings.TrimSpace(string(runes[:max]))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}

	return n
}
