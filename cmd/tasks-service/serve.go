package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chepyr/go-kanban/internal/cache"
	"github.com/chepyr/go-kanban/internal/config"
	"github.com/chepyr/go-kanban/internal/db"
	"github.com/chepyr/go-kanban/internal/handlers"
	"github.com/chepyr/go-kanban/internal/service"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply the schema before serving")
	return cmd
}

func newLogger(cfg *config.Config) *log.Logger {
	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	logger := newLogger(cfg)

	conn, err := db.Connect(cfg.DBDriver, cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()
	if migrate {
		if err := db.Migrate(ctx, conn); err != nil {
			return err
		}
	}

	opts := []service.Option{service.WithLogger(logger)}
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rc := redis.NewClient(redisOpts)
		defer rc.Close()
		opts = append(opts, service.WithCache(cache.NewBoardCache(rc, cfg.BoardCacheTTL, logger)))
	}

	limiter := handlers.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	defer limiter.Stop()

	h := &handlers.Handler{
		Service:     service.New(db.NewStore(conn), opts...),
		Log:         logger,
		Secret:      []byte(cfg.JWTSecret),
		RateLimiter: limiter,
		Timeout:     cfg.RequestTimeout,
		Health:      conn.PingContext,
	}
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.NewEcho(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return startServer(ctx, server, logger)
}

func startServer(ctx context.Context, server *http.Server, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", server.Addr).Info("starting tasks server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
