// Package handlers exposes the DocuMind procedures over HTTP.
//
// Handlers are transport-thin: they bind and validate input with gin binding
// tags, call application services, and translate results into HTTP responses
// (including conditional responses). A request that fails validation is
// rejected with 400 before any service is called.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-documind-backend/internal/domain"
	"github.com/tbourn/go-documind-backend/internal/services"
	"github.com/tbourn/go-documind-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// UserService registers users.
type UserService interface {
	Create(ctx context.Context, email, name string) (*domain.User, error)
	// EnsureDemoUser returns the user with email, creating it if needed.
	EnsureDemoUser(ctx context.Context, email, name string) (*domain.User, error)
}

// DocumentService defines document lifecycle operations consumed by HTTP
// handlers. Get and Update return (nil, nil) when nothing matches.
type DocumentService interface {
	Create(ctx context.Context, userID int64, title, content string) (*domain.Document, error)
	List(ctx context.Context, userID int64, limit, offset int) ([]domain.Document, error)
	Get(ctx context.Context, id, userID int64) (*domain.Document, error)
	Update(ctx context.Context, id int64, in services.DocumentUpdate) (*domain.Document, error)
	Delete(ctx context.Context, id, userID int64) (bool, error)
	// Stats feeds the list ETag: document count and newest updated_at.
	Stats(ctx context.Context, userID int64) (int64, *time.Time, error)
}

// SourceService manages sources attached to a document.
type SourceService interface {
	Create(ctx context.Context, documentID int64, in services.SourceInput) (*domain.Source, error)
	List(ctx context.Context, documentID int64) ([]domain.Source, error)
	Delete(ctx context.Context, id, documentID int64) (bool, error)
	Stats(ctx context.Context, documentID int64) (int64, *time.Time, error)
}

// AssistanceService runs and lists AI-assistance exchanges.
type AssistanceService interface {
	RequestOnce(ctx context.Context, documentID int64, key string, in services.AssistanceInput) (*domain.AiAssistanceResponse, bool, error)
	List(ctx context.Context, documentID int64) ([]domain.AiAssistanceResponse, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for users, documents, sources and
// assistance. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	userSvc   UserService
	docSvc    DocumentService
	srcSvc    SourceService
	assistSvc AssistanceService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(userSvc UserService, docSvc DocumentService, srcSvc SourceService, assistSvc AssistanceService) *Handlers {
	return &Handlers{userSvc: userSvc, docSvc: docSvc, srcSvc: srcSvc, assistSvc: assistSvc}
}

// DeletedResponse reports whether a delete removed a row.
type DeletedResponse struct {
	Deleted bool `json:"deleted" example:"true"`
}

//
// Helpers
//

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, error) {
	n, ok := utils.PositiveID(c.Param(name))
	if !ok {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}

// userIDFallback supplies an owner id when the request carries none: first
// from the Gin context (set by upstream auth middleware), then from the
// X-User-ID demo header. It returns 0 when neither is present.
func userIDFallback(c *gin.Context) int64 {
	if v, ok := c.Get("userID"); ok {
		if n, ok := v.(int64); ok && n > 0 {
			return n
		}
	}
	if c != nil && c.Request != nil {
		if n, ok := utils.PositiveID(c.GetHeader("X-User-ID")); ok {
			return n
		}
	}
	return 0
}

// normalizer is implemented by payloads that clean their own fields before
// the binding tags run.
type normalizer interface {
	normalize()
}

// bindJSON is ShouldBindJSON with a normalize step between decoding and
// validation, so a padded email or an irrelevant source_url is judged after
// cleanup rather than before.
func bindJSON(c *gin.Context, req any) error {
	if c.Request == nil || c.Request.Body == nil {
		return errors.New("invalid request")
	}
	if err := json.NewDecoder(c.Request.Body).Decode(req); err != nil {
		return err
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	return binding.Validator.ValidateStruct(req)
}

// bindMessage renders a binding error as a short client-facing message.
func bindMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		parts := make([]string, 0, len(ve))
		for _, fe := range ve {
			field := toSnake(fe.Field())
			switch fe.Tag() {
			case "required":
				parts = append(parts, field+" is required")
			case "oneof":
				parts = append(parts, fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", ")))
			case "min", "gte":
				parts = append(parts, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
			case "max", "lte":
				parts = append(parts, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
			case "gt":
				parts = append(parts, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
			default:
				parts = append(parts, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
			}
		}
		return strings.Join(parts, "; ")
	}
	return "invalid request"
}

// toSnake converts a Go field name such as "SourceURL" or "UserID" to the
// JSON spelling used by the API ("source_url", "user_id").
func toSnake(s string) string {
	var b strings.Builder
	rs := []rune(s)
	for i, r := range rs {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := rs[i-1] >= 'a' && rs[i-1] <= 'z'
			nextLower := i+1 < len(rs) && rs[i+1] >= 'a' && rs[i+1] <= 'z'
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// resolveUserID returns given when positive, otherwise the context/header
// fallback. It writes a 400 and reports false when no owner can be found.
func resolveUserID(c *gin.Context, given int64) (int64, bool) {
	if given > 0 {
		return given, true
	}
	if uid := userIDFallback(c); uid > 0 {
		return uid, true
	}
	fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id is required")
	return 0, false
}
