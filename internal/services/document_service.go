// Package services: DocumentService
//
// This file implements DocumentService, which owns the lifecycle of
// documents: creation for an existing user, paginated listing, owner-scoped
// lookup and deletion, and partial updates.
//
// Lookups that find nothing are not errors here. Get and Update return a nil
// document with a nil error, Delete returns false. Only a missing parent (the
// user on Create) is reported as ErrUserNotFound.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-documind-backend/internal/domain"
	"github.com/tbourn/go-documind-backend/internal/observability"
	"github.com/tbourn/go-documind-backend/internal/repo"
	"github.com/tbourn/go-documind-backend/internal/utils"
)

// Paging bounds for List.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	MaxTitleRunes    = 255
)

// DocumentRepo defines the repository contract required by DocumentService.
type DocumentRepo interface {
	// UserExists reports whether the owner referenced by a new document exists.
	UserExists(ctx context.Context, db *gorm.DB, id int64) (bool, error)

	// CreateDocument inserts a new document owned by userID.
	CreateDocument(ctx context.Context, db *gorm.DB, userID int64, title, content string) (*domain.Document, error)

	// ListDocumentsPage returns a page ordered by updated_at descending.
	ListDocumentsPage(ctx context.Context, db *gorm.DB, userID int64, offset, limit int) ([]domain.Document, error)

	// GetDocument fetches a document by id and owner.
	GetDocument(ctx context.Context, db *gorm.DB, id, userID int64) (*domain.Document, error)

	// UpdateDocument applies a partial update, optionally owner-scoped.
	UpdateDocument(ctx context.Context, db *gorm.DB, id int64, ownerID *int64, patch repo.DocumentPatch) (*domain.Document, error)

	// DeleteDocument removes a document owned by userID.
	DeleteDocument(ctx context.Context, db *gorm.DB, id, userID int64) (bool, error)

	// DocumentsStats returns count and newest updated_at for ETags.
	DocumentsStats(ctx context.Context, db *gorm.DB, userID int64) (int64, *time.Time, error)
}

// DocumentUpdate lists the optional fields of an update. UserID, when set,
// restricts the update to that owner.
type DocumentUpdate struct {
	UserID  *int64
	Title   *string
	Content *string
}

// DocumentService provides document CRUD.
type DocumentService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the document repository used by this service.
	Repo DocumentRepo

	// EnforceOwnership makes Update require a matching UserID. When false,
	// Update only filters by owner if the caller supplies one.
	EnforceOwnership bool
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(db *gorm.DB, r DocumentRepo) *DocumentService {
	return &DocumentService{DB: db, Repo: r}
}

func (s *DocumentService) tracer() trace.Tracer { return observability.Tracer("services/DocumentService") }

// Create inserts a document for userID. Content may be empty.
func (s *DocumentService) Create(ctx context.Context, userID int64, title, content string) (*domain.Document, error) {
	ctx, span := s.tracer().Start(ctx, "Create",
		trace.WithAttributes(attribute.Int64("user.id", userID)),
	)
	defer span.End()

	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	ok, err := s.Repo.UserExists(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}

	d, err := s.Repo.CreateDocument(ctx, s.DB, userID, title, content)
	if err != nil {
		return nil, err
	}
	docMutations.WithLabelValues("create").Inc()
	span.SetAttributes(attribute.Int64("document.id", d.ID))
	return d, nil
}

// List returns userID's documents, most recently updated first. limit is
// clamped to [1, MaxListLimit] with 0 meaning DefaultListLimit; a negative
// offset is treated as 0. An unknown user simply has no documents.
func (s *DocumentService) List(ctx context.Context, userID int64, limit, offset int) ([]domain.Document, error) {
	ctx, span := s.tracer().Start(ctx, "List",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.Int("limit", limit),
			attribute.Int("offset", offset),
		),
	)
	defer span.End()

	limit, offset = utils.ClampPage(limit, offset, DefaultListLimit, MaxListLimit)
	return s.Repo.ListDocumentsPage(ctx, s.DB, userID, offset, limit)
}

// Get returns the document only if it belongs to userID. A document owned by
// someone else is indistinguishable from a missing one: (nil, nil).
func (s *DocumentService) Get(ctx context.Context, id, userID int64) (*domain.Document, error) {
	ctx, span := s.tracer().Start(ctx, "Get",
		trace.WithAttributes(
			attribute.Int64("document.id", id),
			attribute.Int64("user.id", userID),
		),
	)
	defer span.End()

	d, err := s.Repo.GetDocument(ctx, s.DB, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return d, err
}

// Update changes only the supplied fields and always refreshes updated_at.
// It returns (nil, nil) when no matching document exists.
func (s *DocumentService) Update(ctx context.Context, id int64, in DocumentUpdate) (*domain.Document, error) {
	ctx, span := s.tracer().Start(ctx, "Update",
		trace.WithAttributes(attribute.Int64("document.id", id)),
	)
	defer span.End()

	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if err := validateTitle(t); err != nil {
			return nil, err
		}
		in.Title = &t
	}
	if s.EnforceOwnership && in.UserID == nil {
		return nil, invalid("user_id is required")
	}

	d, err := s.Repo.UpdateDocument(ctx, s.DB, id, in.UserID, repo.DocumentPatch{Title: in.Title, Content: in.Content})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	docMutations.WithLabelValues("update").Inc()
	return d, nil
}

// Delete removes the document if it belongs to userID and reports whether a
// row was removed. Sources and assistance responses cascade.
func (s *DocumentService) Delete(ctx context.Context, id, userID int64) (bool, error) {
	ctx, span := s.tracer().Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.Int64("document.id", id),
			attribute.Int64("user.id", userID),
		),
	)
	defer span.End()

	ok, err := s.Repo.DeleteDocument(ctx, s.DB, id, userID)
	if err != nil {
		return false, err
	}
	if ok {
		docMutations.WithLabelValues("delete").Inc()
	}
	return ok, nil
}

// Stats returns (count, newest updated_at) for userID's documents.
func (s *DocumentService) Stats(ctx context.Context, userID int64) (int64, *time.Time, error) {
	return s.Repo.DocumentsStats(ctx, s.DB, userID)
}

func validateTitle(title string) error {
	if title == "" {
		return invalid("title must not be empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleRunes {
		return invalid("title must be at most %d characters", MaxTitleRunes)
	}
	return nil
}
