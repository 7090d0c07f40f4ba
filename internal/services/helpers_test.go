package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-documind-backend/internal/domain"
	"github.com/tbourn/go-documind-backend/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())

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
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// docRepo forwards to the repo package, the same way the HTTP wiring does.
type docRepo struct{}

func (docRepo) UserExists(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	return repo.UserExists(ctx, db, id)
}
func (docRepo) CreateDocument(ctx context.Context, db *gorm.DB, userID int64, title, content string) (*domain.Document, error) {
	return repo.CreateDocument(ctx, db, userID, title, content)
}
func (docRepo) ListDocumentsPage(ctx context.Context, db *gorm.DB, userID int64, offset, limit int) ([]domain.Document, error) {
	return repo.ListDocumentsPage(ctx, db, userID, offset, limit)
}
func (docRepo) GetDocument(ctx context.Context, db *gorm.DB, id, userID int64) (*domain.Document, error) {
	return repo.GetDocument(ctx, db, id, userID)
}
func (docRepo) UpdateDocument(ctx context.Context, db *gorm.DB, id int64, ownerID *int64, patch repo.DocumentPatch) (*domain.Document, error) {
	return repo.UpdateDocument(ctx, db, id, ownerID, patch)
}
func (docRepo) DeleteDocument(ctx context.Context, db *gorm.DB, id, userID int64) (bool, error) {
	return repo.DeleteDocument(ctx, db, id, userID)
}
func (docRepo) DocumentsStats(ctx context.Context, db *gorm.DB, userID int64) (int64, *time.Time, error) {
	return repo.DocumentsStats(ctx, db, userID)
}

func mustUser(t *testing.T, db *gorm.DB, email string) *domain.User {
	t.Helper()
	u, err := (&UserService{DB: db}).Create(context.Background(), email, "Tester")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func ptr[T any](v T) *T { return &v }
