// Package handlers exposes the board service over HTTP with echo.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/chepyr/go-kanban/internal/models"
	"github.com/chepyr/go-kanban/internal/service"
)

const maxBodySize = 1 << 20

type Handler struct {
	Service     *service.Service
	Log         *log.Logger
	Secret      []byte
	RateLimiter *RateLimiter
	// Timeout bounds every authenticated request; zero disables it.
	Timeout time.Duration
	// Health is called by /healthz when set.
	Health func(ctx context.Context) error
}

// NewEcho builds an echo instance with logging, recovery and all routes.
func (h *Handler) NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}
	e.Use(middleware.Recover())
	e.Use(h.requestLogger())
	h.Register(e)
	return e
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)

	api := e.Group("", h.AuthMiddleware, h.timeout)
	write := []echo.MiddlewareFunc{}
	if h.RateLimiter != nil {
		write = append(write, h.RateLimiter.Middleware())
	}

	api.GET("/boards", h.ListBoards)
	api.POST("/boards", h.CreateBoard, write...)
	api.GET("/boards/:id", h.GetBoard)
	api.DELETE("/boards/:id", h.DeleteBoard, write...)
	api.POST("/boards/:id/members", h.AddMember, write...)
	api.DELETE("/boards/:id/members/:user_id", h.RemoveMember, write...)

	api.POST("/tasks", h.CreateTask, write...)
	api.GET("/tasks/:id", h.GetTask)
	api.PATCH("/tasks/:id", h.EditTask, write...)
	api.DELETE("/tasks/:id", h.DeleteTask, write...)
	api.POST("/tasks/:id/assignees", h.AssignUser, write...)
	api.DELETE("/tasks/:id/assignees/:user_id", h.UnassignUser, write...)
}

func (h *Handler) Healthz(c echo.Context) error {
	if h.Health != nil {
		if err := h.Health(c.Request().Context()); err != nil {
			h.Log.WithError(err).Error("health check failed")
			return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "unavailable"})
		}
	}
	return c.NoContent(http.StatusOK)
}

func (h *Handler) timeout(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.Timeout <= 0 {
			return next(c)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
		defer cancel()
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (h *Handler) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := h.Log.WithFields(log.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": float64(v.Latency) / float64(time.Millisecond),
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Debug("request")
			return nil
		},
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrPartialFailure):
		return http.StatusMultiStatus
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (h *Handler) sendError(c echo.Context, err error) error {
	status := statusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		h.Log.WithError(err).WithField("uri", c.Request().RequestURI).Error("request failed")
		message = http.StatusText(status)
	}
	return c.JSON(status, errorResponse{Error: message})
}

func decode(c echo.Context, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: bad JSON: %v", models.ErrValidation, err)
	}
	return nil
}

func paramUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", models.ErrValidation, name)
	}
	return id, nil
}

// sonicSerializer is echo's JSON serializer backed by sonic.
type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (sonicSerializer) Deserialize(c echo.Context, i any) error {
	if err := sonic.ConfigStd.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bad JSON").SetInternal(err)
	}
	return nil
}
