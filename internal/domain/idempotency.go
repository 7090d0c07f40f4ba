// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency represents a recorded result of a previously processed request,
// keyed by (scope, key). Scope names the target resource (for example
// "assist:42" for assistance requests against document 42) so that the same
// client key can be reused against different documents. ResourceID points at
// the row that the original request produced.
type Idempotency struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Scope      string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_key,priority:1"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_key,priority:2"`
	ResourceID int64     `gorm:"not null"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
