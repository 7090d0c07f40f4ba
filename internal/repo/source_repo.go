package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-documind-backend/internal/domain"
)

// CreateSource inserts s as given; the caller sets DocumentID and fields.
func CreateSource(ctx context.Context, db *gorm.DB, s *domain.Source) (*domain.Source, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = nowUTC()
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// ListSources returns documentID's sources in insertion order.
func ListSources(ctx context.Context, db *gorm.DB, documentID int64) ([]domain.Source, error) {
	out := make([]domain.Source, 0)
	err := db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// DeleteSource removes a source only if it belongs to documentID.
func DeleteSource(ctx context.Context, db *gorm.DB, id, documentID int64) (bool, error) {
	res := db.WithContext(ctx).
		Where("id = ? AND document_id = ?", id, documentID).
		Delete(&domain.Source{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
