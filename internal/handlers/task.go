package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/chepyr/go-kanban/internal/models"
	"github.com/chepyr/go-kanban/internal/ordering"
	"github.com/chepyr/go-kanban/internal/service"
)

type newSubtaskRequest struct {
	Description string `json:"description"`
}

type createTaskRequest struct {
	BoardID     uuid.UUID           `json:"board_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      string              `json:"status"`
	Subtasks    []newSubtaskRequest `json:"subtasks"`
}

type editTaskRequest struct {
	Title            *string                 `json:"title"`
	Description      *string                 `json:"description"`
	Status           *string                 `json:"status"`
	Order            *int                    `json:"order"`
	Subtasks         []ordering.SubtaskInput `json:"subtasks"`
	SubtasksToRemove []uuid.UUID             `json:"subtasks_to_remove"`
}

func (r editTaskRequest) toEdit() (service.TaskEdit, error) {
	edit := service.TaskEdit{
		Title:            r.Title,
		Description:      r.Description,
		Order:            r.Order,
		Subtasks:         r.Subtasks,
		SubtasksToRemove: r.SubtasksToRemove,
	}
	if r.Status != nil {
		status, err := models.ParseTaskStatus(*r.Status)
		if err != nil {
			return edit, err
		}
		edit.Status = &status
	}
	return edit, nil
}

// partialResponse is sent with 207 when a task was created but its subtasks were not.
type partialResponse struct {
	Task  *models.TaskDetails `json:"task"`
	Error string              `json:"error"`
}

func (h *Handler) CreateTask(c echo.Context) error {
	var req createTaskRequest
	if err := decode(c, &req); err != nil {
		return h.sendError(c, err)
	}
	if req.BoardID == uuid.Nil {
		return h.sendError(c, fmt.Errorf("%w: board_id is required", models.ErrValidation))
	}
	status, err := models.ParseTaskStatus(req.Status)
	if err != nil {
		return h.sendError(c, err)
	}
	subtasks := make([]string, len(req.Subtasks))
	for i, s := range req.Subtasks {
		subtasks[i] = s.Description
	}

	details, err := h.Service.CreateTask(c.Request().Context(), currentUser(c), service.TaskInput{
		BoardID:     req.BoardID,
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		Subtasks:    subtasks,
	})
	if err != nil {
		if errors.Is(err, models.ErrPartialFailure) && details != nil {
			c.Response().Header().Set(echo.HeaderLocation, "/tasks/"+details.ID.String())
			return c.JSON(http.StatusMultiStatus, partialResponse{Task: details, Error: err.Error()})
		}
		return h.sendError(c, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, "/tasks/"+details.ID.String())
	return c.JSON(http.StatusCreated, details)
}

func (h *Handler) GetTask(c echo.Context) error {
	taskID, err := paramUUID(c, "id")
	if err != nil {
		return h.sendError(c, err)
	}
	details, err := h.Service.GetTask(c.Request().Context(), currentUser(c), taskID)
	if err != nil {
		return h.sendError(c, err)
	}
	return c.JSON(http.StatusOK, details)
}

func (h *Handler) EditTask(c echo.Context) error {
	taskID, err := paramUUID(c, "id")
	if err != nil {
		return h.sendError(c, err)
	}
	var req editTaskRequest
	if err := decode(c, &req); err != nil {
		return h.sendError(c, err)
	}
	edit, err := req.toEdit()
	if err != nil {
		return h.sendError(c, err)
	}
	details, err := h.Service.EditTask(c.Request().Context(), currentUser(c), taskID, edit)
	if err != nil {
		return h.sendError(c, err)
	}
	return c.JSON(http.StatusOK, details)
}

func (h *Handler) DeleteTask(c echo.Context) error {
	taskID, err := paramUUID(c, "id")
	if err != nil {
		return h.sendError(c, err)
	}
	if err := h.Service.DeleteTask(c.Request().Context(), currentUser(c), taskID); err != nil {
		return h.sendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AssignUser(c echo.Context) error {
	taskID, err := paramUUID(c, "id")
	if err != nil {
		return h.sendError(c, err)
	}
	var req memberRequest
	if err := decode(c, &req); err != nil {
		return h.sendError(c, err)
	}
	if err := h.Service.AssignUser(c.Request().Context(), currentUser(c), taskID, req.UserID); err != nil {
		return h.sendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UnassignUser(c echo.Context) error {
	taskID, err := paramUUID(c, "id")
	if err != nil {
		return h.sendError(c, err)
	}
	userID, err := paramUUID(c, "user_id")
	if err != nil {
		return h.sendError(c, err)
	}
	if err := h.Service.UnassignUser(c.Request().Context(), currentUser(c), taskID, userID); err != nil {
		return h.sendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
