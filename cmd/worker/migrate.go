package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/azhengyongqin/transcribe-hub/internal/logger"
	"github.com/azhengyongqin/transcribe-hub/internal/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}
		if cfg.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required")
		}

		db, err := postgres.Open(cmd.Context(), cfg.Postgres.DSN, postgres.DefaultPoolConfig())
		if err != nil {
			return fmt.Errorf("initializing data store: %w", err)
		}
		defer db.Close()

		if err := postgres.Migrate(cmd.Context(), db.SQL); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
		logger.L.Info().Msg("数据库迁移完成")
		return nil
	},
}
