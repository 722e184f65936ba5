package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/chepyr/go-kanban/internal/models"
	"github.com/chepyr/go-kanban/internal/ordering"
	"github.com/chepyr/go-kanban/internal/store"
)

type TaskInput struct {
	BoardID     uuid.UUID
	Title       string
	Description string
	// Status defaults to models.TaskStatusToDo.
	Status   models.TaskStatus
	Subtasks []string
}

// CreateTask appends a task to the end of its column and then creates its
// subtasks in submission order.
//
// The task and the subtasks are written in two transactions. When the second
// one fails the task stays, and CreateTask returns it without subtasks
// together with a *models.PartialFailureError.
func (s *Service) CreateTask(ctx context.Context, actorID uuid.UUID, in TaskInput) (details *models.TaskDetails, err error) {
	ctx, span := s.startSpan(ctx, "tasks.create", attribute.String("board.id", in.BoardID.String()))
	defer func() { endSpan(span, err) }()

	title, err := validateTitle("task", in.Title, maxTaskTitleLength)
	if err != nil {
		return nil, err
	}
	description, err := validateDescription("task", in.Description, maxTaskDescriptionLength)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.TaskStatusToDo
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", models.ErrValidation, status)
	}
	subtasks := make([]string, len(in.Subtasks))
	for i, d := range in.Subtasks {
		if subtasks[i], err = ordering.NormalizeSubtaskDescription(d); err != nil {
			return nil, fmt.Errorf("subtask %d: %w", i, err)
		}
	}

	if err := s.gate.CheckBoard(ctx, actorID, in.BoardID); err != nil {
		return nil, storeErr("create task", err)
	}

	now := s.now()
	task := &models.Task{
		ID:          uuid.New(),
		BoardID:     in.BoardID,
		AuthorID:    actorID,
		Title:       title,
		Description: description,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	span.SetAttributes(attribute.String("task.id", task.ID.String()))

	err = s.store.Transaction(ctx, func(tx store.Tx) error {
		order, err := ordering.NextTaskOrder(ctx, tx.Tasks(), task.BoardID, task.Status)
		if err != nil {
			return err
		}
		task.Order = order
		return tx.Tasks().Create(ctx, task)
	})
	if err != nil {
		return nil, storeErr("create task", err)
	}
	s.cache.Invalidate(ctx, task.BoardID)

	details = &models.TaskDetails{Task: *task, Subtasks: []*models.Subtask{}, Assignees: []uuid.UUID{}}
	logger := s.log.WithFields(log.Fields{"board": task.BoardID, "task": task.ID, "user": actorID})

	if len(subtasks) > 0 {
		created := make([]*models.Subtask, 0, len(subtasks))
		err = s.store.Transaction(ctx, func(tx store.Tx) error {
			for i, d := range subtasks {
				st := &models.Subtask{
					ID:          uuid.New(),
					TaskID:      task.ID,
					Description: d,
					Order:       i,
					CreatedAt:   now,
					UpdatedAt:   now,
				}
				if err := tx.Subtasks().Create(ctx, st); err != nil {
					return err
				}
				created = append(created, st)
			}
			return nil
		})
		if err != nil {
			logger.WithError(err).Warn("task created without subtasks")
			return details, &models.PartialFailureError{TaskID: task.ID, Err: storeErr("create subtasks", err)}
		}
		details.Subtasks = created
	}

	logger.Info("task created")
	return details, nil
}

func (s *Service) GetTask(ctx context.Context, actorID, taskID uuid.UUID) (*models.TaskDetails, error) {
	task, err := s.authorizeTask(ctx, actorID, taskID)
	if err != nil {
		return nil, storeErr("get task", err)
	}
	details, err := loadDetails(ctx, s.store, task)
	if err != nil {
		return nil, storeErr("get task", err)
	}
	return details, nil
}

// DeleteTask removes the task and closes the gap it leaves in its column.
func (s *Service) DeleteTask(ctx context.Context, actorID, taskID uuid.UUID) (err error) {
	ctx, span := s.startSpan(ctx, "tasks.delete", attribute.String("task.id", taskID.String()))
	defer func() { endSpan(span, err) }()

	task, err := s.authorizeTask(ctx, actorID, taskID)
	if err != nil {
		return storeErr("delete task", err)
	}
	span.SetAttributes(attribute.String("board.id", task.BoardID.String()))

	err = s.store.Transaction(ctx, func(tx store.Tx) error {
		if err := tx.Tasks().Delete(ctx, taskID); err != nil {
			return err
		}
		return ordering.Compact(ctx, tx.Tasks(), task.BoardID, task.Status)
	})
	if err != nil {
		return storeErr("delete task", err)
	}
	s.cache.Invalidate(ctx, task.BoardID)

	s.log.WithFields(log.Fields{"board": task.BoardID, "task": taskID, "user": actorID}).Info("task deleted")
	return nil
}

// AssignUser assigns a board member to the task.
func (s *Service) AssignUser(ctx context.Context, actorID, taskID, userID uuid.UUID) error {
	task, err := s.authorizeTask(ctx, actorID, taskID)
	if err != nil {
		return storeErr("assign user", err)
	}
	ok, err := s.store.Members().IsMember(ctx, task.BoardID, userID)
	if err != nil {
		return storeErr("assign user", err)
	}
	if !ok {
		return fmt.Errorf("assign user: %w: user %s is not a member of board %s",
			models.ErrValidation, userID, task.BoardID)
	}
	if err := s.store.Assignees().Assign(ctx, taskID, userID); err != nil {
		return storeErr("assign user", err)
	}
	return nil
}

func (s *Service) UnassignUser(ctx context.Context, actorID, taskID, userID uuid.UUID) error {
	if _, err := s.authorizeTask(ctx, actorID, taskID); err != nil {
		return storeErr("unassign user", err)
	}
	if err := s.store.Assignees().Unassign(ctx, taskID, userID); err != nil {
		return storeErr("unassign user", err)
	}
	return nil
}

// authorizeTask loads the task and checks actorID against its board.
func (s *Service) authorizeTask(ctx context.Context, actorID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.store.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.CheckBoard(ctx, actorID, task.BoardID); err != nil {
		return nil, err
	}
	return task, nil
}

func loadDetails(ctx context.Context, q store.Tx, task *models.Task) (*models.TaskDetails, error) {
	subtasks, err := q.Subtasks().ListByTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	assignees, err := q.Assignees().ListByTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	return &models.TaskDetails{Task: *task, Subtasks: subtasks, Assignees: assignees}, nil
}
