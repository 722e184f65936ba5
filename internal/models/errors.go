package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// ErrPartialFailure marks a task that was created while its subtasks were not.
	ErrPartialFailure = errors.New("partial failure")

	// ErrStoreFailure wraps persistence errors that are not part of the domain taxonomy.
	ErrStoreFailure = errors.New("store failure")
)

// PartialFailureError is returned by task creation when the task row is committed
// but the subtask batch that followed it was rolled back.
type PartialFailureError struct {
	TaskID uuid.UUID
	Err    error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("task %s created without subtasks: %v", e.TaskID, e.Err)
}

func (e *PartialFailureError) Unwrap() []error {
	return []error{ErrPartialFailure, e.Err}
}
