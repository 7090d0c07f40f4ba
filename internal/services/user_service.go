package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-documind-backend/internal/domain"
	"github.com/tbourn/go-documind-backend/internal/observability"
	"github.com/tbourn/go-documind-backend/internal/repo"
)

// UserService creates users. There is no authentication; a single demo user
// is provisioned through the same path.
type UserService struct {
	DB *gorm.DB
}

// Create registers a new user. Email must be unique; a second registration
// yields ErrDuplicateEmail.
func (s *UserService) Create(ctx context.Context, email, name string) (*domain.User, error) {
	ctx, span := observability.Tracer("services/UserService").Start(ctx, "Create")
	defer span.End()

	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return nil, invalid("email must be a valid address")
	}
	if name == "" {
		return nil, invalid("name must not be empty")
	}

	u, err := repo.CreateUser(ctx, s.DB, email, name)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("user.id", u.ID))
	return u, nil
}

// EnsureDemoUser returns the user registered under email, creating it first
// if needed. Concurrent callers converge on the same row.
func (s *UserService) EnsureDemoUser(ctx context.Context, email, name string) (*domain.User, error) {
	ctx, span := observability.Tracer("services/UserService").Start(ctx, "EnsureDemoUser",
		trace.WithAttributes(attribute.String("user.email", email)),
	)
	defer span.End()

	if u, err := repo.GetUserByEmail(ctx, s.DB, email); err == nil {
		return u, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	u, err := s.Create(ctx, email, name)
	if errors.Is(err, ErrDuplicateEmail) {
		// Lost a race with another creator.
		return repo.GetUserByEmail(ctx, s.DB, email)
	}
	return u, err
}
