// Package cache keeps rendered board views in Redis.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/chepyr/go-kanban/internal/models"
)

const (
	boardViewPrefix = "bv:"
	defaultTTL      = 10 * time.Minute
)

// BoardCache stores board views as JSON under "bv:<board id>". Redis errors
// are logged and reported as misses.
type BoardCache struct {
	redis *redis.Client
	ttl   time.Duration
	log   *log.Logger
}

func NewBoardCache(client *redis.Client, ttl time.Duration, logger *log.Logger) *BoardCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &BoardCache{redis: client, ttl: ttl, log: logger}
}

func boardKey(boardID uuid.UUID) string {
	return boardViewPrefix + boardID.String()
}

func (c *BoardCache) Get(ctx context.Context, boardID uuid.UUID) (*models.BoardView, bool) {
	raw, err := c.redis.Get(ctx, boardKey(boardID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).WithField("board", boardID).Warn("failed to read board cache entry")
		}
		return nil, false
	}
	var view models.BoardView
	if err := sonic.Unmarshal(raw, &view); err != nil {
		c.log.WithError(err).WithField("board", boardID).Warn("failed to decode board cache entry")
		return nil, false
	}
	return &view, true
}

func (c *BoardCache) Set(ctx context.Context, view *models.BoardView) {
	data, err := sonic.Marshal(view)
	if err != nil {
		c.log.WithError(err).WithField("board", view.Board.ID).Warn("failed to encode board cache entry")
		return
	}
	if err := c.redis.Set(ctx, boardKey(view.Board.ID), data, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("board", view.Board.ID).Warn("failed to store board cache entry")
	}
}

func (c *BoardCache) Invalidate(ctx context.Context, boardID uuid.UUID) {
	if err := c.redis.Del(ctx, boardKey(boardID)).Err(); err != nil {
		c.log.WithError(err).WithField("board", boardID).Warn("failed to delete board cache entry")
	}
}
