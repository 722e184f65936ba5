package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/chepyr/go-kanban/internal/models"
)

type SubtaskRepository struct {
	db DBTX
}

func NewSubtaskRepository(db DBTX) *SubtaskRepository {
	return &SubtaskRepository{db: db}
}

func (r *SubtaskRepository) Create(ctx context.Context, s *models.Subtask) error {
	query := `INSERT INTO subtasks (id, task_id, description, finished, position, created_at, updated_at)
	 VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.TaskID, s.Description, s.Finished, s.Order, s.CreatedAt, s.UpdatedAt)
	return mapErr(err)
}

func (r *SubtaskRepository) Update(ctx context.Context, s *models.Subtask) error {
	query := `UPDATE subtasks SET description = $1, finished = $2, updated_at = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, s.Description, s.Finished, s.UpdatedAt, s.ID)
	if err != nil {
		return mapErr(err)
	}
	return expectRow(res, "subtask", s.ID)
}

func (r *SubtaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subtasks WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return expectRow(res, "subtask", id)
}

func (r *SubtaskRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Subtask, error) {
	query := `SELECT id, task_id, description, finished, position, created_at, updated_at
	 FROM subtasks WHERE task_id = $1 ORDER BY position, created_at, id`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	subtasks := []*models.Subtask{}
	for rows.Next() {
		s := &models.Subtask{}
		if err := rows.Scan(
			&s.ID, &s.TaskID, &s.Description, &s.Finished, &s.Order, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		subtasks = append(subtasks, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subtasks, nil
}

func (r *SubtaskRepository) MaxOrder(ctx context.Context, taskID uuid.UUID) (int, bool, error) {
	var max sql.NullInt64
	query := `SELECT MAX(position) FROM subtasks WHERE task_id = $1`
	if err := r.db.QueryRowContext(ctx, query, taskID).Scan(&max); err != nil {
		return 0, false, mapErr(err)
	}
	return int(max.Int64), max.Valid, nil
}

func (r *SubtaskRepository) SetOrder(ctx context.Context, id uuid.UUID, order int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE subtasks SET position = $1 WHERE id = $2`, order, id)
	if err != nil {
		return mapErr(err)
	}
	return expectRow(res, "subtask", id)
}
