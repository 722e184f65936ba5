package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/chepyr/go-kanban/internal/models"
	"github.com/chepyr/go-kanban/internal/store"
)

// Gate decides whether a user may act on a board.
type Gate interface {
	CheckBoard(ctx context.Context, userID, boardID uuid.UUID) error
}

// MembershipGate lets board members in and nobody else.
type MembershipGate struct {
	store store.Tx
}

func NewMembershipGate(st store.Tx) *MembershipGate {
	return &MembershipGate{store: st}
}

// CheckBoard returns models.ErrNotFound for a missing board and
// models.ErrForbidden when userID is not a member of it.
func (g *MembershipGate) CheckBoard(ctx context.Context, userID, boardID uuid.UUID) error {
	ok, err := g.store.Members().IsMember(ctx, boardID, userID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := g.store.Boards().GetByID(ctx, boardID); err != nil {
		return err
	}
	return fmt.Errorf("user %s is not a member of board %s: %w", userID, boardID, models.ErrForbidden)
}
