package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AssigneeRepository stores the task <-> user assignment relation.
type AssigneeRepository struct {
	db DBTX
}

func NewAssigneeRepository(db DBTX) *AssigneeRepository {
	return &AssigneeRepository{db: db}
}

func (r *AssigneeRepository) Assign(ctx context.Context, taskID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_assignees (task_id, user_id, created_at) VALUES ($1, $2, $3)`,
		taskID, userID, time.Now().UTC())
	return mapErr(err)
}

func (r *AssigneeRepository) Unassign(ctx context.Context, taskID, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM task_assignees WHERE task_id = $1 AND user_id = $2`, taskID, userID)
	if err != nil {
		return mapErr(err)
	}
	return expectRow(res, "assignment", userID)
}

func (r *AssigneeRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	return listIDs(ctx, r.db,
		`SELECT user_id FROM task_assignees WHERE task_id = $1 ORDER BY created_at, user_id`, taskID)
}
