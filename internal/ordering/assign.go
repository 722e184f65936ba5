// Package ordering keeps task columns and subtask lists densely ordered.
//
// Every group (the tasks sharing a board and a status, or the subtasks of a
// task) carries order values 0..n-1 with no gaps and no duplicates. The
// functions here read a group through the store, recompute it in memory and
// write every order back. They do no locking of their own; callers run them
// inside a store transaction and the isolation level of that transaction
// decides what concurrent movers observe.
package ordering

import (
	"context"

	"github.com/google/uuid"

	"github.com/chepyr/go-kanban/internal/models"
	"github.com/chepyr/go-kanban/internal/store"
)

// NextTaskOrder returns the order a task appended to the column would get.
func NextTaskOrder(ctx context.Context, tasks store.Tasks, boardID uuid.UUID, status models.TaskStatus) (int, error) {
	max, ok, err := tasks.MaxOrder(ctx, boardID, status)
	if err != nil {
		return 0, err
	}
	return next(max, ok), nil
}

// NextSubtaskOrder returns the order a subtask appended to the task would get.
func NextSubtaskOrder(ctx context.Context, subtasks store.Subtasks, taskID uuid.UUID) (int, error) {
	max, ok, err := subtasks.MaxOrder(ctx, taskID)
	if err != nil {
		return 0, err
	}
	return next(max, ok), nil
}

func next(max int, ok bool) int {
	if !ok {
		return 0
	}
	return max + 1
}
