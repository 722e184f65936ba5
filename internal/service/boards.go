package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/chepyr/go-kanban/internal/models"
	"github.com/chepyr/go-kanban/internal/store"
)

type BoardInput struct {
	Title       string
	Description string
}

// CreateBoard stores a new board with actorID as its author and first member.
func (s *Service) CreateBoard(ctx context.Context, actorID uuid.UUID, in BoardInput) (board *models.Board, err error) {
	ctx, span := s.startSpan(ctx, "boards.create", attribute.String("user.id", actorID.String()))
	defer func() { endSpan(span, err) }()

	title, err := validateTitle("board", in.Title, maxBoardTitleLength)
	if err != nil {
		return nil, err
	}
	description, err := validateDescription("board", in.Description, maxBoardDescriptionLength)
	if err != nil {
		return nil, err
	}

	now := s.now()
	board = &models.Board{
		ID:          uuid.New(),
		AuthorID:    actorID,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	span.SetAttributes(attribute.String("board.id", board.ID.String()))

	err = s.store.Transaction(ctx, func(tx store.Tx) error {
		if err := tx.Boards().Create(ctx, board); err != nil {
			return err
		}
		return tx.Members().Add(ctx, board.ID, actorID)
	})
	if err != nil {
		return nil, storeErr("create board", err)
	}

	s.log.WithFields(log.Fields{"board": board.ID, "user": actorID}).Info("board created")
	return board, nil
}

func (s *Service) ListBoards(ctx context.Context, actorID uuid.UUID) ([]*models.Board, error) {
	boards, err := s.store.Boards().ListByMember(ctx, actorID)
	if err != nil {
		return nil, storeErr("list boards", err)
	}
	return boards, nil
}

// GetBoard returns the board with its members and its columns in display order.
func (s *Service) GetBoard(ctx context.Context, actorID, boardID uuid.UUID) (view *models.BoardView, err error) {
	ctx, span := s.startSpan(ctx, "boards.get", attribute.String("board.id", boardID.String()))
	defer func() { endSpan(span, err) }()

	if err := s.gate.CheckBoard(ctx, actorID, boardID); err != nil {
		return nil, storeErr("get board", err)
	}

	if view, ok := s.cache.Get(ctx, boardID); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return view, nil
	}

	view, err = s.loadBoardView(ctx, boardID)
	if err != nil {
		return nil, storeErr("get board", err)
	}
	s.cache.Set(ctx, view)
	return view, nil
}

func (s *Service) loadBoardView(ctx context.Context, boardID uuid.UUID) (*models.BoardView, error) {
	board, err := s.store.Boards().GetByID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.Members().ListByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.Tasks().ListByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	byStatus := make(map[models.TaskStatus][]*models.Task, len(models.TaskStatuses))
	for _, t := range tasks {
		byStatus[t.Status] = append(byStatus[t.Status], t)
	}
	columns := make([]models.Column, 0, len(models.TaskStatuses))
	for _, status := range models.TaskStatuses {
		column := byStatus[status]
		if column == nil {
			column = []*models.Task{}
		}
		columns = append(columns, models.Column{Status: status, Tasks: column})
	}

	return &models.BoardView{Board: *board, Members: members, Columns: columns}, nil
}

// DeleteBoard removes the board and everything on it. Only the author may do this.
func (s *Service) DeleteBoard(ctx context.Context, actorID, boardID uuid.UUID) (err error) {
	ctx, span := s.startSpan(ctx, "boards.delete", attribute.String("board.id", boardID.String()))
	defer func() { endSpan(span, err) }()

	board, err := s.store.Boards().GetByID(ctx, boardID)
	if err != nil {
		return storeErr("delete board", err)
	}
	if board.AuthorID != actorID {
		return fmt.Errorf("delete board: only the author can delete board %s: %w", boardID, models.ErrForbidden)
	}
	if err := s.store.Boards().Delete(ctx, boardID); err != nil {
		return storeErr("delete board", err)
	}
	s.cache.Invalidate(ctx, boardID)

	s.log.WithFields(log.Fields{"board": boardID, "user": actorID}).Info("board deleted")
	return nil
}

func (s *Service) AddMember(ctx context.Context, actorID, boardID, userID uuid.UUID) error {
	if err := s.gate.CheckBoard(ctx, actorID, boardID); err != nil {
		return storeErr("add member", err)
	}
	if err := s.store.Members().Add(ctx, boardID, userID); err != nil {
		return storeErr("add member", err)
	}
	s.cache.Invalidate(ctx, boardID)
	s.log.WithFields(log.Fields{"board": boardID, "user": userID}).Info("member added")
	return nil
}

// RemoveMember drops userID from the board together with its task assignments
// there. The author of a board cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, actorID, boardID, userID uuid.UUID) error {
	if err := s.gate.CheckBoard(ctx, actorID, boardID); err != nil {
		return storeErr("remove member", err)
	}
	board, err := s.store.Boards().GetByID(ctx, boardID)
	if err != nil {
		return storeErr("remove member", err)
	}
	if board.AuthorID == userID {
		return fmt.Errorf("remove member: the author of board %s cannot be removed: %w", boardID, models.ErrForbidden)
	}

	err = s.store.Transaction(ctx, func(tx store.Tx) error {
		if err := tx.Members().Remove(ctx, boardID, userID); err != nil {
			return err
		}
		tasks, err := tx.Tasks().ListByBoard(ctx, boardID)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if err := tx.Assignees().Unassign(ctx, t.ID, userID); err != nil && !errors.Is(err, models.ErrNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErr("remove member", err)
	}
	s.cache.Invalidate(ctx, boardID)
	s.log.WithFields(log.Fields{"board": boardID, "user": userID}).Info("member removed")
	return nil
}
