package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/chepyr/go-kanban/internal/models"
)

const taskColumns = `id, board_id, author_id, title, description, status, position, created_at, updated_at`

type TaskRepository struct {
	db DBTX
}

func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(
		ctx, query, task.ID, task.BoardID, task.AuthorID, task.Title, task.Description,
		task.Status, task.Order, task.CreatedAt, task.UpdatedAt)
	return mapErr(err)
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return task, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `UPDATE tasks SET title = $1, description = $2, status = $3, updated_at = $4 WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query,
		task.Title, task.Description, task.Status, task.UpdatedAt, task.ID)
	if err != nil {
		return mapErr(err)
	}
	return expectRow(res, "task", task.ID)
}

func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return expectRow(res, "task", id)
}

func (r *TaskRepository) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE board_id = $1
	 ORDER BY status, position, created_at, id`
	return r.list(ctx, query, boardID)
}

func (r *TaskRepository) ListColumn(ctx context.Context, boardID uuid.UUID, status models.TaskStatus) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE board_id = $1 AND status = $2
	 ORDER BY position, created_at, id`
	return r.list(ctx, query, boardID, status)
}

func (r *TaskRepository) MaxOrder(ctx context.Context, boardID uuid.UUID, status models.TaskStatus) (int, bool, error) {
	var max sql.NullInt64
	query := `SELECT MAX(position) FROM tasks WHERE board_id = $1 AND status = $2`
	if err := r.db.QueryRowContext(ctx, query, boardID, status).Scan(&max); err != nil {
		return 0, false, mapErr(err)
	}
	return int(max.Int64), max.Valid, nil
}

func (r *TaskRepository) SetOrder(ctx context.Context, id uuid.UUID, order int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET position = $1 WHERE id = $2`, order, id)
	if err != nil {
		return mapErr(err)
	}
	return expectRow(res, "task", id)
}

func (r *TaskRepository) list(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	err := row.Scan(
		&task.ID, &task.BoardID, &task.AuthorID, &task.Title, &task.Description,
		&task.Status, &task.Order, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}
