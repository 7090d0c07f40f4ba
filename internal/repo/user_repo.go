// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - A unique violation on users.email is mapped to ErrDuplicate.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-documind-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that a unique constraint rejected the insert.
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation recognises unique-constraint failures across drivers.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations and
// postgres reports SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value") ||
		strings.Contains(low, "sqlstate 23505")
}

// CreateUser inserts a user. A second user with the same email yields
// ErrDuplicate.
func CreateUser(ctx context.Context, db *gorm.DB, email, name string) (*domain.User, error) {
	u := &domain.User{
		Email:     email,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// GetUserByEmail fetches a user by email, or ErrNotFound.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UserExists reports whether a user with id exists.
func UserExists(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}
