// Package service implements the board and task operations of the kanban
// API on top of a store.Store. It owns transaction boundaries, authorization
// through a Gate, board view caching and tracing.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chepyr/go-kanban/internal/models"
	"github.com/chepyr/go-kanban/internal/store"
)

const tracerName = "github.com/chepyr/go-kanban/internal/service"

// BoardCache holds rendered board views. Implementations swallow their own
// errors; a miss is always safe.
type BoardCache interface {
	Get(ctx context.Context, boardID uuid.UUID) (*models.BoardView, bool)
	Set(ctx context.Context, view *models.BoardView)
	Invalidate(ctx context.Context, boardID uuid.UUID)
}

type noCache struct{}

func (noCache) Get(context.Context, uuid.UUID) (*models.BoardView, bool) { return nil, false }
func (noCache) Set(context.Context, *models.BoardView)                   {}
func (noCache) Invalidate(context.Context, uuid.UUID)                    {}

type Service struct {
	store  store.Store
	gate   Gate
	cache  BoardCache
	log    *log.Logger
	tracer trace.Tracer
	now    func() time.Time
}

type Option func(*Service)

func WithCache(c BoardCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(tracerName) }
}

// WithGate replaces the default MembershipGate.
func WithGate(g Gate) Option {
	return func(s *Service) { s.gate = g }
}

func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		gate:   NewMembershipGate(st),
		cache:  noCache{},
		log:    log.StandardLogger(),
		tracer: otel.Tracer(tracerName),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

var domainErrors = []error{
	models.ErrNotFound,
	models.ErrValidation,
	models.ErrConflict,
	models.ErrForbidden,
	models.ErrPartialFailure,
	models.ErrStoreFailure,
}

// storeErr prefixes err with op and marks anything outside the domain
// taxonomy as a store failure.
func storeErr(op string, err error) error {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrStoreFailure, err)
}
