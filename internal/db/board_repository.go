package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/chepyr/go-kanban/internal/models"
)

type BoardRepository struct {
	db DBTX
}

func NewBoardRepository(db DBTX) *BoardRepository {
	return &BoardRepository{db: db}
}

func (r *BoardRepository) Create(ctx context.Context, board *models.Board) error {
	query := `INSERT INTO boards (id, author_id, title, description, created_at, updated_at)
	 VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(
		ctx, query, board.ID, board.AuthorID, board.Title, board.Description,
		board.CreatedAt, board.UpdatedAt)
	return mapErr(err)
}

func (r *BoardRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Board, error) {
	query := `SELECT id, author_id, title, description, created_at, updated_at
	 FROM boards WHERE id = $1`
	board := &models.Board{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&board.ID, &board.AuthorID, &board.Title, &board.Description,
		&board.CreatedAt, &board.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return board, nil
}

// Delete removes the board; tasks, subtasks and memberships go with it.
func (r *BoardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return expectRow(res, "board", id)
}

func (r *BoardRepository) ListByMember(ctx context.Context, userID uuid.UUID) ([]*models.Board, error) {
	query := `SELECT b.id, b.author_id, b.title, b.description, b.created_at, b.updated_at
	 FROM boards b JOIN board_members m ON m.board_id = b.id
	 WHERE m.user_id = $1 ORDER BY b.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	boards := []*models.Board{}
	for rows.Next() {
		board := &models.Board{}
		if err := rows.Scan(
			&board.ID, &board.AuthorID, &board.Title, &board.Description,
			&board.CreatedAt, &board.UpdatedAt,
		); err != nil {
			return nil, err
		}
		boards = append(boards, board)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return boards, nil
}
