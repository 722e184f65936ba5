package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus names the column a task sits in.
type TaskStatus string

const (
	TaskStatusToDo       TaskStatus = "to_do"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// TaskStatuses lists the board columns in display order.
var TaskStatuses = []TaskStatus{TaskStatusToDo, TaskStatusInProgress, TaskStatusDone}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusToDo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// ParseTaskStatus converts various user inputs to a standard status value.
// An empty input yields TaskStatusToDo.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "todo", "to_do", "to-do", "backlog":
		return TaskStatusToDo, nil
	case "in-progress", "in_progress", "inprogress", "in progress":
		return TaskStatusInProgress, nil
	case "done":
		return TaskStatusDone, nil
	default:
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
}

// Task is a card on a board. Order is dense (0..n-1) within its (BoardID, Status) column.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	BoardID     uuid.UUID  `json:"board_id"`
	AuthorID    uuid.UUID  `json:"author_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Order       int        `json:"order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskDetails is a task together with its ordered subtasks and assignees.
type TaskDetails struct {
	Task
	Subtasks  []*Subtask  `json:"subtasks"`
	Assignees []uuid.UUID `json:"assignees"`
}
