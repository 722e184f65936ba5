package ordering

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/chepyr/go-kanban/internal/models"
	"github.com/chepyr/go-kanban/internal/store"
)

// Move describes a task changing position, column, or both.
//
// From is the column the task was in before the edit. To is the column it is
// in now; when To is empty or equal to From the move stays inside one column.
// For a cross-column move the caller must already have persisted the new
// status. Index is the 0-based target position in the destination column and
// is clamped to [0, len].
type Move struct {
	TaskID  uuid.UUID
	BoardID uuid.UUID
	From    models.TaskStatus
	To      models.TaskStatus
	Index   int
}

func (m Move) crossColumn() bool {
	return m.To != "" && m.To != m.From
}

// Reorder applies m and leaves every affected column dense.
func Reorder(ctx context.Context, tasks store.Tasks, m Move) error {
	if !m.crossColumn() {
		column, err := tasks.ListColumn(ctx, m.BoardID, m.From)
		if err != nil {
			return err
		}
		column, err = place(column, m.TaskID, m.Index)
		if err != nil {
			return err
		}
		return rewrite(ctx, tasks, column)
	}

	// the moved task already carries m.To, so the departure column lacks it
	if err := Compact(ctx, tasks, m.BoardID, m.From); err != nil {
		return err
	}

	column, err := tasks.ListColumn(ctx, m.BoardID, m.To)
	if err != nil {
		return err
	}
	column, err = place(column, m.TaskID, m.Index)
	if err != nil {
		return err
	}
	return rewrite(ctx, tasks, column)
}

// Compact rewrites one column to 0..n-1, keeping its current relative order.
func Compact(ctx context.Context, tasks store.Tasks, boardID uuid.UUID, status models.TaskStatus) error {
	column, err := tasks.ListColumn(ctx, boardID, status)
	if err != nil {
		return err
	}
	return rewrite(ctx, tasks, column)
}

// place removes taskID from column and splices it back in at index.
func place(column []*models.Task, taskID uuid.UUID, index int) ([]*models.Task, error) {
	pos := -1
	for i, t := range column {
		if t.ID == taskID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, fmt.Errorf("task %s is not in the target column: %w", taskID, models.ErrNotFound)
	}
	moved := column[pos]

	rest := make([]*models.Task, 0, len(column))
	rest = append(rest, column[:pos]...)
	rest = append(rest, column[pos+1:]...)

	index = clamp(index, 0, len(rest))
	out := make([]*models.Task, 0, len(column))
	out = append(out, rest[:index]...)
	out = append(out, moved)
	out = append(out, rest[index:]...)
	return out, nil
}

// rewrite writes order = position for every task, changed or not.
func rewrite(ctx context.Context, tasks store.Tasks, column []*models.Task) error {
	for i, t := range column {
		if err := tasks.SetOrder(ctx, t.ID, i); err != nil {
			return err
		}
		t.Order = i
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
