package service

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/chepyr/go-kanban/internal/models"
	"github.com/chepyr/go-kanban/internal/ordering"
	"github.com/chepyr/go-kanban/internal/store"
)

// TaskEdit is a partial update of a task. Nil fields are left alone.
type TaskEdit struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
	// Order is the target index in the destination column.
	Order            *int
	Subtasks         []ordering.SubtaskInput
	SubtasksToRemove []uuid.UUID
}

func (e TaskEdit) Empty() bool {
	return e.Title == nil && e.Description == nil && e.Status == nil && e.Order == nil &&
		len(e.Subtasks) == 0 && len(e.SubtasksToRemove) == 0
}

func (e TaskEdit) subtaskChanges() ordering.SubtaskChanges {
	return ordering.SubtaskChanges{Submitted: e.Subtasks, Remove: e.SubtasksToRemove}
}

// EditTask applies e to the task in a single transaction and returns the
// task with its subtasks in order.
//
// A status change without an Order appends the task to the end of the new
// column. Either way both the departure and the destination column stay
// densely ordered. Nothing is written when any step fails.
func (s *Service) EditTask(ctx context.Context, actorID, taskID uuid.UUID, e TaskEdit) (details *models.TaskDetails, err error) {
	ctx, span := s.startSpan(ctx, "tasks.edit", attribute.String("task.id", taskID.String()))
	defer func() { endSpan(span, err) }()

	task, err := s.authorizeTask(ctx, actorID, taskID)
	if err != nil {
		return nil, storeErr("edit task", err)
	}
	span.SetAttributes(attribute.String("board.id", task.BoardID.String()))

	if e.Empty() {
		return nil, fmt.Errorf("edit task: %w: nothing to change", models.ErrValidation)
	}
	if err := e.normalize(); err != nil {
		return nil, fmt.Errorf("edit task: %w", err)
	}

	now := s.now()
	err = s.store.Transaction(ctx, func(tx store.Tx) error {
		current, err := tx.Tasks().GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		previous := current.Status

		if e.Title != nil {
			current.Title = *e.Title
		}
		if e.Description != nil {
			current.Description = *e.Description
		}
		if e.Status != nil {
			current.Status = *e.Status
		}
		current.UpdatedAt = now
		if err := tx.Tasks().Update(ctx, current); err != nil {
			return err
		}

		if e.Order != nil || current.Status != previous {
			index := math.MaxInt
			if e.Order != nil {
				index = *e.Order
			}
			move := ordering.Move{
				TaskID:  taskID,
				BoardID: current.BoardID,
				From:    previous,
				To:      current.Status,
				Index:   index,
			}
			if err := ordering.Reorder(ctx, tx.Tasks(), move); err != nil {
				return err
			}
		}

		if changes := e.subtaskChanges(); !changes.Empty() {
			if _, err := ordering.ReconcileSubtasks(ctx, tx.Subtasks(), taskID, changes, now); err != nil {
				return err
			}
		}

		current, err = tx.Tasks().GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		details, err = loadDetails(ctx, tx, current)
		return err
	})
	if err != nil {
		return nil, storeErr("edit task", err)
	}
	s.cache.Invalidate(ctx, task.BoardID)

	s.log.WithFields(log.Fields{"board": task.BoardID, "task": taskID, "user": actorID}).Info("task edited")
	return details, nil
}

func (e *TaskEdit) normalize() error {
	if e.Title != nil {
		title, err := validateTitle("task", *e.Title, maxTaskTitleLength)
		if err != nil {
			return err
		}
		e.Title = &title
	}
	if e.Description != nil {
		description, err := validateDescription("task", *e.Description, maxTaskDescriptionLength)
		if err != nil {
			return err
		}
		e.Description = &description
	}
	if e.Status != nil && !e.Status.Valid() {
		return fmt.Errorf("%w: invalid status %q", models.ErrValidation, *e.Status)
	}
	return nil
}
