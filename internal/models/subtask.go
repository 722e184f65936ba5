package models

import (
	"time"

	"github.com/google/uuid"
)

// Subtask is a checklist entry owned by a task. Order is dense within the task.
type Subtask struct {
	ID          uuid.UUID `json:"id"`
	TaskID      uuid.UUID `json:"task_id"`
	Description string    `json:"description"`
	Finished    bool      `json:"finished"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
