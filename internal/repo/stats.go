package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-documind-backend/internal/domain"
)

// newest counts the rows matched by q and reads the latest value of column.
// An empty set yields (0, nil). The timestamp is read with ORDER BY rather
// than MAX() because SQLite returns MAX() of a datetime as TEXT.
func newest(q *gorm.DB, column string) (int64, *time.Time, error) {
	q = q.Session(&gorm.Session{})
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}
	var ts []time.Time
	if err := q.Order(column+" DESC").Limit(1).Pluck(column, &ts).Error; err != nil {
		return 0, nil, err
	}
	if len(ts) == 0 {
		return count, nil, nil
	}
	return count, &ts[0], nil
}

// DocumentsStats returns how many documents userID owns and the newest
// updated_at among them. It feeds the weak ETag of the documents list.
func DocumentsStats(ctx context.Context, db *gorm.DB, userID int64) (int64, *time.Time, error) {
	return newest(db.WithContext(ctx).Model(&domain.Document{}).Where("user_id = ?", userID), "updated_at")
}

// SourcesStats is the per-document equivalent for sources, which are never
// edited in place, so created_at is the change marker.
func SourcesStats(ctx context.Context, db *gorm.DB, documentID int64) (int64, *time.Time, error) {
	return newest(db.WithContext(ctx).Model(&domain.Source{}).Where("document_id = ?", documentID), "created_at")
}
