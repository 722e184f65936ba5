package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chepyr/go-kanban/internal/store"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repositories struct {
	boards    *BoardRepository
	members   *MemberRepository
	tasks     *TaskRepository
	subtasks  *SubtaskRepository
	assignees *AssigneeRepository
}

func newRepositories(q DBTX) *repositories {
	return &repositories{
		boards:    NewBoardRepository(q),
		members:   NewMemberRepository(q),
		tasks:     NewTaskRepository(q),
		subtasks:  NewSubtaskRepository(q),
		assignees: NewAssigneeRepository(q),
	}
}

func (r *repositories) Boards() store.Boards       { return r.boards }
func (r *repositories) Members() store.Members     { return r.members }
func (r *repositories) Tasks() store.Tasks         { return r.tasks }
func (r *repositories) Subtasks() store.Subtasks   { return r.subtasks }
func (r *repositories) Assignees() store.Assignees { return r.assignees }

// Store implements store.Store on top of database/sql.
type Store struct {
	*repositories
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{repositories: newRepositories(db), db: db}
}

// Transaction runs fn with repositories bound to a single transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
