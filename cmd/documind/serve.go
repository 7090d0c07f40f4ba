package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-documind-backend/internal/ai"
	"github.com/tbourn/go-documind-backend/internal/config"
	httpapi "github.com/tbourn/go-documind-backend/internal/http"
	"github.com/tbourn/go-documind-backend/internal/http/middleware"
	"github.com/tbourn/go-documind-backend/internal/observability"
	"github.com/tbourn/go-documind-backend/internal/repo"
)

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
)

func serveCmd() *cobra.Command {
	var migrate bool
	command := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger, migrate)
		},
	}
	command.Flags().BoolVar(&migrate, "migrate", true, "run schema migrations before serving")
	return command
}

func serve(ctx context.Context, cfg config.Config, logger zerolog.Logger, migrate bool) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion())
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if migrate {
		if err := repo.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	gen, err := ai.New(cfg.AI)
	if err != nil {
		return err
	}

	var opts []httpapi.Option
	if cfg.RedisAddr != "" {
		rdb, err := middleware.NewRedisClient(ctx, cfg.RedisAddr, "", 0)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		opts = append(opts, httpapi.WithRedisRateLimit(rdb))
		logger.Info().Str("addr", cfg.RedisAddr).Msg("rate limiter backed by redis")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, gen, cfg, opts...)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go purgeIdempotency(ctx, db, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("base_path", cfg.APIBasePath).
			Str("ai_provider", cfg.AI.Provider).
			Str("version", appVersion()).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// purgeIdempotency drops expired idempotency records until ctx ends.
func purgeIdempotency(ctx context.Context, db *gorm.DB, logger zerolog.Logger) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now)
			if err != nil {
				logger.Warn().Err(err).Msg("purge idempotency")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("rows", n).Msg("purged expired idempotency keys")
			}
		}
	}
}
