package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/chepyr/go-kanban/internal/service"
)

type boardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type memberRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

func (h *Handler) CreateBoard(c echo.Context) error {
	var req boardRequest
	if err := decode(c, &req); err != nil {
		return h.sendError(c, err)
	}
	board, err := h.Service.CreateBoard(c.Request().Context(), currentUser(c), service.BoardInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return h.sendError(c, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, "/boards/"+board.ID.String())
	return c.JSON(http.StatusCreated, board)
}

func (h *Handler) ListBoards(c echo.Context) error {
	boards, err := h.Service.ListBoards(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.sendError(c, err)
	}
	return c.JSON(http.StatusOK, boards)
}

func (h *Handler) GetBoard(c echo.Context) error {
	boardID, err := paramUUID(c, "id")
	if err != nil {
		return h.sendError(c, err)
	}
	view, err := h.Service.GetBoard(c.Request().Context(), currentUser(c), boardID)
	if err != nil {
		return h.sendError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) DeleteBoard(c echo.Context) error {
	boardID, err := paramUUID(c, "id")
	if err != nil {
		return h.sendError(c, err)
	}
	if err := h.Service.DeleteBoard(c.Request().Context(), currentUser(c), boardID); err != nil {
		return h.sendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddMember(c echo.Context) error {
	boardID, err := paramUUID(c, "id")
	if err != nil {
		return h.sendError(c, err)
	}
	var req memberRequest
	if err := decode(c, &req); err != nil {
		return h.sendError(c, err)
	}
	if err := h.Service.AddMember(c.Request().Context(), currentUser(c), boardID, req.UserID); err != nil {
		return h.sendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RemoveMember(c echo.Context) error {
	boardID, err := paramUUID(c, "id")
	if err != nil {
		return h.sendError(c, err)
	}
	userID, err := paramUUID(c, "user_id")
	if err != nil {
		return h.sendError(c, err)
	}
	if err := h.Service.RemoveMember(c.Request().Context(), currentUser(c), boardID, userID); err != nil {
		return h.sendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
