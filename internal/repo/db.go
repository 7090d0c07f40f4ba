// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and PostgreSQL, plus schema migrations.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-documind-backend/internal/config"
	"github.com/tbourn/go-documind-backend/internal/domain"
)

// Open selects the store driver from cfg, attaches the OpenTelemetry GORM
// plugin and returns the handle. It does not migrate.
func Open(cfg config.Config) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.DBDriver {
	case "postgres":
		db, err = OpenPostgres(cfg.DatabaseURL)
	case "", "sqlite":
		db, err = OpenSQLite(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("gorm tracing plugin: %w", err)
	}
	return db, nil
}

// sqlitePragmas are applied through the DSN so every pooled connection gets
// them, not only the first one.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
}

func tunePool(db *gorm.DB, maxOpen, maxIdle int) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
}

// OpenSQLite opens or creates the database file at path. The parent
// directory must already exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}
	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), gormConfig())
	if err != nil {
		return nil, err
	}
	tunePool(db, 10, 10)
	return db, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=" + strings.Join(sqlitePragmas, "&_pragma=")
}

// OpenPostgres connects with a libpq URL or key=value DSN.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	tunePool(db, 20, 10)
	return db, nil
}

// AutoMigrate creates or updates every table the service owns. Parents are
// listed before children so foreign keys resolve.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Document{},
		&domain.Source{},
		&domain.AiAssistanceResponse{},
		&domain.Idempotency{},
	)
}
