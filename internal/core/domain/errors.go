package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("task not found")

// ValidationError reports client data that violates a field or shape
// constraint. Index is the 1-based position inside a batch, 0 otherwise.
type ValidationError struct {
	Field   string
	Index   int
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("item %d: %s", e.Index, e.Message)
	}

	return e.Message
}

// AtIndex returns a copy of the error tagged with a batch position.
func (e *ValidationError) AtIndex(index int) *ValidationError {
	tagged := *e
	tagged.Index = index

	return &tagged
}

func NotFoundError(id int64) error {
	return fmt.Errorf("task %d: %w", id, ErrNotFound)
}

func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
