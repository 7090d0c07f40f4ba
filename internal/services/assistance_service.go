// Package services: AssistanceService
//
// AssistanceService answers AI-assistance requests against a document. It
// loads the document and its sources, assembles a context blob, asks the
// configured ai.Generator for text and persists the exchange. Nothing is
// written unless generation succeeds.
//
// Retries that carry an idempotency key are answered from the stored record
// (RequestOnce), so a client can safely resend after a timeout.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-documind-backend/internal/ai"
	"github.com/tbourn/go-documind-backend/internal/domain"
	"github.com/tbourn/go-documind-backend/internal/observability"
	"github.com/tbourn/go-documind-backend/internal/repo"
	"github.com/tbourn/go-documind-backend/internal/search"
)

// SourceExcerptRunes is how much of each source's content enters the context.
const SourceExcerptRunes = 500

// AssistanceInput is the payload for AssistanceService.Request.
type AssistanceInput struct {
	Prompt         string
	Context        string
	AssistanceType string
}

// AssistanceService coordinates context assembly, generation and persistence.
type AssistanceService struct {
	DB        *gorm.DB
	Generator ai.Generator
	// Ranker orders sources by relevance to the prompt. Nil keeps insertion order.
	Ranker search.Ranker
	// IdempotencyTTL bounds how long RequestOnce replays a stored response.
	IdempotencyTTL time.Duration
}

// AssistanceScope is the idempotency scope for requests against documentID.
func AssistanceScope(documentID int64) string {
	return fmt.Sprintf("assist:%d", documentID)
}

// Request runs one assistance exchange. An unknown document yields
// ErrDocumentNotFound; no ownership check applies.
func (s *AssistanceService) Request(ctx context.Context, documentID int64, in AssistanceInput) (*domain.AiAssistanceResponse, error) {
	tr := observability.Tracer("services/AssistanceService")
	ctx, span := tr.Start(ctx, "Request",
		trace.WithAttributes(
			attribute.Int64("document.id", documentID),
			attribute.String("assistance.type", in.AssistanceType),
		),
	)
	defer span.End()

	if strings.TrimSpace(in.Prompt) == "" {
		return nil, invalid("prompt must not be empty")
	}
	if !domain.IsAssistanceType(in.AssistanceType) {
		return nil, invalid("assistance_type must be one of: %s", strings.Join(domain.AssistanceTypes, ", "))
	}

	doc, err := repo.GetDocumentByID(ctx, s.DB, documentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		aiRequests.WithLabelValues(in.AssistanceType, "not_found").Inc()
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		aiRequests.WithLabelValues(in.AssistanceType, "error").Inc()
		return nil, err
	}

	sources, err := repo.ListSources(ctx, s.DB, documentID)
	if err != nil {
		aiRequests.WithLabelValues(in.AssistanceType, "error").Inc()
		return nil, err
	}

	text, err := s.Generator.Generate(ctx, ai.Request{
		Prompt:         in.Prompt,
		Context:        BuildContext(doc, in.Context, sources, in.Prompt, s.Ranker),
		AssistanceType: in.AssistanceType,
		Title:          doc.Title,
		PlainText:      ai.PlainText(doc.Content),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		aiRequests.WithLabelValues(in.AssistanceType, "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	rec, err := repo.CreateAiResponse(ctx, s.DB, documentID, in.Prompt, text, in.AssistanceType)
	if err != nil {
		aiRequests.WithLabelValues(in.AssistanceType, "error").Inc()
		return nil, err
	}
	aiRequests.WithLabelValues(in.AssistanceType, "ok").Inc()
	span.SetAttributes(attribute.Int64("response.id", rec.ID), attribute.Int("sources", len(sources)))
	return rec, nil
}

// RequestOnce behaves like Request, but a repeated key within
// IdempotencyTTL returns the response recorded for the first call. The bool
// reports whether the result was replayed. An empty key disables replay.
func (s *AssistanceService) RequestOnce(ctx context.Context, documentID int64, key string, in AssistanceInput) (*domain.AiAssistanceResponse, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		rec, err := s.Request(ctx, documentID, in)
		return rec, false, err
	}
	scope := AssistanceScope(documentID)

	if idem, err := repo.GetIdempotency(ctx, s.DB, scope, key, time.Now().UTC()); err == nil {
		if rec, err := repo.GetAiResponse(ctx, s.DB, idem.ResourceID); err == nil {
			return rec, true, nil
		}
	}

	rec, err := s.Request(ctx, documentID, in)
	if err != nil {
		return nil, false, err
	}
	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	// Best effort: a concurrent duplicate simply keeps the first mapping.
	_, _ = repo.CreateIdempotency(ctx, s.DB, scope, key, rec.ID, http.StatusCreated, ttl)
	return rec, false, nil
}

// List returns documentID's responses newest first. A document without
// responses (or an unknown id) yields an empty slice.
func (s *AssistanceService) List(ctx context.Context, documentID int64) ([]domain.AiAssistanceResponse, error) {
	tr := observability.Tracer("services/AssistanceService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.Int64("document.id", documentID)),
	)
	defer span.End()

	return repo.ListAiResponses(ctx, s.DB, documentID)
}

// BuildContext assembles the text handed to the generator: the document
// title and content, the caller's extra context if any, then each source's
// title and the first SourceExcerptRunes runes of its raw content, with
// markdown markers flattened inside that window. When ranker
// is set, sources most relevant to prompt come first; all are included.
func BuildContext(doc *domain.Document, extra string, sources []domain.Source, prompt string, ranker search.Ranker) string {
	var b strings.Builder
	b.WriteString("Document title: ")
	b.WriteString(doc.Title)
	b.WriteString("\n\nDocument content:\n")
	b.WriteString(doc.Content)

	if extra = strings.TrimSpace(extra); extra != "" {
		b.WriteString("\n\nAdditional context:\n")
		b.WriteString(extra)
	}

	if len(sources) == 0 {
		return b.String()
	}

	order := make([]int, len(sources))
	for i := range order {
		order[i] = i
	}
	if ranker != nil {
		ps := make([]search.Passage, len(sources))
		for i, src := range sources {
			ps[i] = search.Passage{Pos: i, Text: src.Title + " " + src.Content}
		}
		for i, sc := range ranker.Rank(prompt, ps) {
			order[i] = sc.Pos
		}
	}

	b.WriteString("\n\nSources:")
	for _, i := range order {
		src := sources[i]
		b.WriteString("\n\n- ")
		b.WriteString(src.Title)
		b.WriteString(":\n")
		b.WriteString(search.FlattenMarkdown(ai.Excerpt(src.Content, SourceExcerptRunes)))
	}
	return b.String()
}
