package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-documind-backend/internal/repo"
)

func migrateCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := repo.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := repo.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info().Str("driver", cfg.DBDriver).Msg("schema migrated")
			return nil
		},
	}
	return command
}
