// Package store declares the persistence contract the board service runs on.
// Implementations return errors matching models.ErrNotFound and models.ErrConflict
// for missing rows and uniqueness violations.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/chepyr/go-kanban/internal/models"
)

type Boards interface {
	Create(ctx context.Context, board *models.Board) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Board, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByMember(ctx context.Context, userID uuid.UUID) ([]*models.Board, error)
}

type Members interface {
	Add(ctx context.Context, boardID, userID uuid.UUID) error
	Remove(ctx context.Context, boardID, userID uuid.UUID) error
	IsMember(ctx context.Context, boardID, userID uuid.UUID) (bool, error)
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]uuid.UUID, error)
}

type Tasks interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	// Update writes title, description, status and updated_at. Order is left alone.
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByBoard returns every task of the board grouped by status, then by order.
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*models.Task, error)
	// ListColumn returns one column sorted by order ascending.
	ListColumn(ctx context.Context, boardID uuid.UUID, status models.TaskStatus) ([]*models.Task, error)
	// MaxOrder reports the highest order in the column; ok is false for an empty column.
	MaxOrder(ctx context.Context, boardID uuid.UUID, status models.TaskStatus) (max int, ok bool, err error)
	SetOrder(ctx context.Context, id uuid.UUID, order int) error
}

type Subtasks interface {
	Create(ctx context.Context, subtask *models.Subtask) error
	// Update writes description, finished and updated_at. Order is left alone.
	Update(ctx context.Context, subtask *models.Subtask) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Subtask, error)
	MaxOrder(ctx context.Context, taskID uuid.UUID) (max int, ok bool, err error)
	SetOrder(ctx context.Context, id uuid.UUID, order int) error
}

type Assignees interface {
	Assign(ctx context.Context, taskID, userID uuid.UUID) error
	Unassign(ctx context.Context, taskID, userID uuid.UUID) error
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error)
}

// Tx is a set of repositories bound to one database handle, either the pool or
// an open transaction.
type Tx interface {
	Boards() Boards
	Members() Members
	Tasks() Tasks
	Subtasks() Subtasks
	Assignees() Assignees
}

// Store is a Tx over the connection pool that can also open transactions.
// Transaction commits when fn returns nil and rolls back every write made
// through tx otherwise.
type Store interface {
	Tx
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}
