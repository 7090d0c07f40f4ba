package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-documind-backend/internal/repo"
	"github.com/tbourn/go-documind-backend/internal/services"
)

func seedCmd() *cobra.Command {
	var email, name string
	command := &cobra.Command{
		Use:   "seed",
		Short: "Create the demo user if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if email == "" {
				email = cfg.Demo.Email
			}
			if name == "" {
				name = cfg.Demo.Name
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

			svc := &services.UserService{DB: db}
			u, err := svc.EnsureDemoUser(cmd.Context(), email, name)
			if err != nil {
				return fmt.Errorf("seed demo user: %w", err)
			}
			logger.Info().Int64("user_id", u.ID).Str("email", u.Email).Msg("demo user ready")
			return nil
		},
	}
	command.Flags().StringVar(&email, "email", "", "demo user email (default from DEMO_USER_EMAIL)")
	command.Flags().StringVar(&name, "name", "", "demo user name (default from DEMO_USER_NAME)")
	return command
}
