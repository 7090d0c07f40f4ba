package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-documind-backend/internal/domain"
)

// newTestDB opens a unique in-memory database per test. With no migrate
// arguments the schema is left empty so error paths can be exercised.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func allModels() []any {
	return []any{&domain.User{}, &domain.Document{}, &domain.Source{}, &domain.AiAssistanceResponse{}, &domain.Idempotency{}}
}

func seedUser(t *testing.T, db *gorm.DB, email string) *domain.User {
	t.Helper()
	u, err := CreateUser(context.Background(), db, email, "Tester")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedDocument(t *testing.T, db *gorm.DB, userID int64, title string) *domain.Document {
	t.Helper()
	d, err := CreateDocument(context.Background(), db, userID, title, "")
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return d
}
