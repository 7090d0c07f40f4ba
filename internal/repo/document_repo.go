// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Document
// model.
//
// Functions:
//
//   - CreateDocument(ctx, db, userID, title, content) -> *domain.Document, error
//     Inserts a document with CreatedAt == UpdatedAt.
//
//   - ListDocumentsPage(ctx, db, userID, offset, limit) -> []domain.Document, error
//     Most recently updated first; id descending breaks ties.
//
//   - GetDocument(ctx, db, id, userID) -> *domain.Document, error
//     Owner-scoped lookup, or ErrNotFound.
//
//   - GetDocumentByID(ctx, db, id) -> *domain.Document, error
//     Unscoped lookup used by the source and assistance paths.
//
//   - UpdateDocument(ctx, db, id, ownerID, patch) -> *domain.Document, error
//     Partial update that always moves UpdatedAt forward.
//
//   - DeleteDocument(ctx, db, id, userID) -> (bool, error)
//     Owner-scoped delete; children go with it via ON DELETE CASCADE.
//
//   - DocumentExists(ctx, db, id) -> (bool, error)
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-documind-backend/internal/domain"
)

// DocumentPatch carries the optional fields of a partial document update.
// Nil fields are left untouched.
type DocumentPatch struct {
	Title   *string
	Content *string
}

// timestamps are kept at microsecond precision so that values read back
// from PostgreSQL and SQLite compare equal to the ones written.
func nowUTC() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// CreateDocument inserts a new document owned by userID.
func CreateDocument(ctx context.Context, db *gorm.DB, userID int64, title, content string) (*domain.Document, error) {
	now := nowUTC()
	d := &domain.Document{
		Title:     title,
		Content:   content,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// ListDocumentsPage returns a page of userID's documents ordered by
// updated_at descending, then id descending.
func ListDocumentsPage(ctx context.Context, db *gorm.DB, userID int64, offset, limit int) ([]domain.Document, error) {
	out := make([]domain.Document, 0)
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetDocument fetches a document by id and owner. If the record does not
// exist or belongs to someone else, it returns ErrNotFound.
func GetDocument(ctx context.Context, db *gorm.DB, id, userID int64) (*domain.Document, error) {
	var d domain.Document
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDocumentByID fetches a document by id regardless of owner.
func GetDocumentByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Document, error) {
	var d domain.Document
	if err := db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// DocumentExists reports whether a document with id exists.
func DocumentExists(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Document{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// UpdateDocument applies patch to the document identified by id. When
// ownerID is non-nil the row must also belong to that user. UpdatedAt is
// refreshed even when the patch is empty and is always strictly later than
// the previous value. Returns ErrNotFound when no row matches.
func UpdateDocument(ctx context.Context, db *gorm.DB, id int64, ownerID *int64, patch DocumentPatch) (*domain.Document, error) {
	var out domain.Document
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("id = ?", id)
		if ownerID != nil {
			q = q.Where("user_id = ?", *ownerID)
		}
		if err := q.First(&out).Error; err != nil {
			return err
		}

		now := nowUTC()
		if !now.After(out.UpdatedAt) {
			now = out.UpdatedAt.Add(time.Microsecond)
		}
		fields := map[string]any{"updated_at": now}
		if patch.Title != nil {
			fields["title"] = *patch.Title
		}
		if patch.Content != nil {
			fields["content"] = *patch.Content
		}

		res := tx.Model(&domain.Document{}).Where("id = ?", out.ID).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", out.ID).First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDocument removes the document identified by id and owned by userID.
// It reports whether a row was removed.
func DeleteDocument(ctx context.Context, db *gorm.DB, id, userID int64) (bool, error) {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Document{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
