package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MemberRepository stores the board <-> user membership relation.
type MemberRepository struct {
	db DBTX
}

func NewMemberRepository(db DBTX) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) Add(ctx context.Context, boardID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO board_members (board_id, user_id, created_at) VALUES ($1, $2, $3)`,
		boardID, userID, time.Now().UTC())
	return mapErr(err)
}

func (r *MemberRepository) Remove(ctx context.Context, boardID, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM board_members WHERE board_id = $1 AND user_id = $2`, boardID, userID)
	if err != nil {
		return mapErr(err)
	}
	return expectRow(res, "membership", userID)
}

func (r *MemberRepository) IsMember(ctx context.Context, boardID, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM board_members WHERE board_id = $1 AND user_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, boardID, userID).Scan(&exists); err != nil {
		return false, mapErr(err)
	}
	return exists, nil
}

func (r *MemberRepository) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]uuid.UUID, error) {
	return listIDs(ctx, r.db,
		`SELECT user_id FROM board_members WHERE board_id = $1 ORDER BY created_at, user_id`, boardID)
}

func listIDs(ctx context.Context, db DBTX, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
