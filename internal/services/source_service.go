package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-documind-backend/internal/domain"
	"github.com/tbourn/go-documind-backend/internal/observability"
	"github.com/tbourn/go-documind-backend/internal/repo"
)

// SourceInput is the payload for SourceService.Create.
type SourceInput struct {
	Title      string
	Content    string
	SourceType string
	SourceURL  *string
}

// SourceService attaches reference material to documents.
type SourceService struct {
	DB *gorm.DB
}

// Create attaches a source to documentID. A url source needs SourceURL; for
// file and text sources the URL is dropped and stored as NULL.
func (s *SourceService) Create(ctx context.Context, documentID int64, in SourceInput) (*domain.Source, error) {
	tr := observability.Tracer("services/SourceService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.Int64("document.id", documentID),
			attribute.String("source.type", in.SourceType),
		),
	)
	defer span.End()

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, invalid("title must not be empty")
	}
	if !domain.IsSourceType(in.SourceType) {
		return nil, invalid("source_type must be one of: %s", strings.Join(domain.SourceTypes, ", "))
	}
	var url *string
	if in.SourceType == domain.SourceTypeURL {
		if in.SourceURL == nil || strings.TrimSpace(*in.SourceURL) == "" {
			return nil, invalid("source_url is required when source_type is url")
		}
		u := strings.TrimSpace(*in.SourceURL)
		url = &u
	}

	ok, err := repo.DocumentExists(ctx, s.DB, documentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDocumentNotFound
	}

	return repo.CreateSource(ctx, s.DB, &domain.Source{
		DocumentID: documentID,
		Title:      in.Title,
		Content:    in.Content,
		SourceType: in.SourceType,
		SourceURL:  url,
	})
}

// List returns documentID's sources in insertion order. The document must
// exist; an unknown id is ErrDocumentNotFound rather than an empty list.
func (s *SourceService) List(ctx context.Context, documentID int64) ([]domain.Source, error) {
	tr := observability.Tracer("services/SourceService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.Int64("document.id", documentID)),
	)
	defer span.End()

	ok, err := repo.DocumentExists(ctx, s.DB, documentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return repo.ListSources(ctx, s.DB, documentID)
}

// Stats returns the source count of documentID and its newest created_at,
// used for ETag computation.
func (s *SourceService) Stats(ctx context.Context, documentID int64) (int64, *time.Time, error) {
	return repo.SourcesStats(ctx, s.DB, documentID)
}

// Delete removes source id only if it belongs to documentID.
func (s *SourceService) Delete(ctx context.Context, id, documentID int64) (bool, error) {
	tr := observability.Tracer("services/SourceService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.Int64("source.id", id),
			attribute.Int64("document.id", documentID),
		),
	)
	defer span.End()

	return repo.DeleteSource(ctx, s.DB, id, documentID)
}
