package main

import (
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chepyr/go-kanban/internal/config"
	"github.com/chepyr/go-kanban/internal/db"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			conn, err := db.Connect(cfg.DBDriver, cfg.DSN)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer conn.Close()

			if err := db.Migrate(cmd.Context(), conn); err != nil {
				return err
			}
			log.WithField("driver", cfg.DBDriver).Info("schema applied")
			return nil
		},
	}
}
