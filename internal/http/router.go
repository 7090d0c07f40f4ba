// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, compression, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-documind-backend/docs"
	"github.com/tbourn/go-documind-backend/internal/ai"
	"github.com/tbourn/go-documind-backend/internal/config"
	"github.com/tbourn/go-documind-backend/internal/domain"
	"github.com/tbourn/go-documind-backend/internal/http/handlers"
	"github.com/tbourn/go-documind-backend/internal/http/middleware"
	"github.com/tbourn/go-documind-backend/internal/repo"
	"github.com/tbourn/go-documind-backend/internal/search"
	"github.com/tbourn/go-documind-backend/internal/services"
)

// documentRepoShim adapts the repository free functions to the
// services.DocumentRepo interface expected by the DocumentService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type documentRepoShim struct{}

// UserExists proxies repo.UserExists.
func (documentRepoShim) UserExists(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	return repo.UserExists(ctx, db, id)
}

// CreateDocument proxies repo.CreateDocument.
func (documentRepoShim) CreateDocument(ctx context.Context, db *gorm.DB, userID int64, title, content string) (*domain.Document, error) {
	return repo.CreateDocument(ctx, db, userID, title, content)
}

// ListDocumentsPage proxies repo.ListDocumentsPage.
func (documentRepoShim) ListDocumentsPage(ctx context.Context, db *gorm.DB, userID int64, offset, limit int) ([]domain.Document, error) {
	return repo.ListDocumentsPage(ctx, db, userID, offset, limit)
}

// GetDocument proxies repo.GetDocument.
func (documentRepoShim) GetDocument(ctx context.Context, db *gorm.DB, id, userID int64) (*domain.Document, error) {
	return repo.GetDocument(ctx, db, id, userID)
}

// UpdateDocument proxies repo.UpdateDocument.
func (documentRepoShim) UpdateDocument(ctx context.Context, db *gorm.DB, id int64, ownerID *int64, patch repo.DocumentPatch) (*domain.Document, error) {
	return repo.UpdateDocument(ctx, db, id, ownerID, patch)
}

// DeleteDocument proxies repo.DeleteDocument.
func (documentRepoShim) DeleteDocument(ctx context.Context, db *gorm.DB, id, userID int64) (bool, error) {
	return repo.DeleteDocument(ctx, db, id, userID)
}

// DocumentsStats proxies repo.DocumentsStats (ETag support).
func (documentRepoShim) DocumentsStats(ctx context.Context, db *gorm.DB, userID int64) (int64, *time.Time, error) {
	return repo.DocumentsStats(ctx, db, userID)
}

// Option customizes RegisterRoutes.
type Option func(*routeOptions)

type routeOptions struct {
	redis redis.Cmdable
}

// WithRedisRateLimit makes the rate limiter keep its counters in client
// instead of process memory.
func WithRedisRateLimit(client redis.Cmdable) Option {
	return func(o *routeOptions) { o.redis = client }
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger + ContextLogger: scrubbed access logs, request-scoped logger
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS, security headers and gzip
func RegisterRoutes(r *gin.Engine, db *gorm.DB, gen ai.Generator, cfg config.Config, opts ...Option) {
	var o routeOptions
	for _, opt := range opts {
		opt(&o)
	}
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction, plus a request-scoped logger
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
		SkipPaths:   []string{"/health", "/metrics"},
	}))
	r.Use(middleware.ContextLogger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scope:  assistanceScope,
		},
		func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, scope, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return rec != nil, err
		},
	))

	// 8) Rate limiter per user/IP: shared through Redis when configured
	// Assistance calls are charged RateAssistCost tokens.
	assistCost := middleware.CostByRoute(http.MethodPost, "/documents/:id/assistance", cfg.RateAssistCost)
	if o.redis != nil {
		limit := cfg.RateBurst
		if rps := int(cfg.RateRPS); rps > limit {
			limit = rps
		}
		rl := middleware.NewRedisRateLimiter(o.redis, limit, time.Second, middleware.KeyByUserOrIP()).WithCost(assistCost)
		r.Use(rl.Handler())
	} else {
		rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).WithCost(assistCost)
		r.Use(rl.Handler())
	}

	// 9) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "If-None-Match", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", handlers.HeaderIdempotencyReplayed}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:    cfg.Security.EnableHSTS,
		HSTSMaxAge:    cfg.Security.HSTSMaxAge,
		Cache:         middleware.CacheRevalidate,
		EnablePolicy:  true,
		ExposeHeaders: []string{"ETag", handlers.HeaderIdempotencyReplayed},
	}))

	// Document content can be large; compress JSON responses except metrics.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/generator
	userSvc := &services.UserService{DB: db}
	docSvc := services.NewDocumentService(db, documentRepoShim{})
	docSvc.EnforceOwnership = cfg.EnforceUpdateOwnership
	srcSvc := &services.SourceService{DB: db}
	assistSvc := &services.AssistanceService{
		DB:             db,
		Generator:      gen,
		Ranker:         search.NewJaccard(),
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
	h := handlers.New(userSvc, docSvc, srcSvc, assistSvc)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Users
		api.POST("/users", h.CreateUser)
		api.POST("/users/ensure", h.EnsureUser)

		// Documents
		api.POST("/documents", h.CreateDocument)
		api.GET("/documents", h.ListDocuments)
		api.GET("/documents/:id", h.GetDocument)
		api.PATCH("/documents/:id", h.UpdateDocument)
		api.DELETE("/documents/:id", h.DeleteDocument)

		// Sources
		api.POST("/documents/:id/sources", h.CreateSource)
		api.GET("/documents/:id/sources", h.ListSources)
		api.DELETE("/documents/:id/sources/:sourceId", h.DeleteSource)

		// Assistance
		api.POST("/documents/:id/assistance", h.RequestAssistance)
		api.GET("/documents/:id/assistance", h.ListAssistance)
	}
}

// assistanceScope keys idempotency records by target document, matching the
// scope AssistanceService records under. Other routes fall back to the path.
func assistanceScope(c *gin.Context) string {
	if strings.HasSuffix(c.FullPath(), "/documents/:id/assistance") {
		if id, err := strconv.ParseInt(c.Param("id"), 10, 64); err == nil && id > 0 {
			return services.AssistanceScope(id)
		}
	}
	return c.Request.URL.Path
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
