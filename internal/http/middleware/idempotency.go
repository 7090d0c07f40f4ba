// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key header on unsafe requests. A valid
// key is stashed in the Gin context for handlers; when a lookup reports that
// the key was already used within its scope the request is flagged as a
// replay, which also exempts it from rate limiting. Serving the stored result
// stays with the handler, which owns the persisted record.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client's retry key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

const defaultIdempotencyMaxLen = 200

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the key accepted by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the key of this request was already used.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the key length; <= 0 means 200.
	MaxLen int
	// Pattern restricts the key alphabet; nil means ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// Scope names what a key is unique within, e.g. "assist:42". nil uses the
	// request path.
	Scope func(c *gin.Context) string
	// Now replaces time.Now for the lookup.
	Now func() time.Time
}

// IdempotencyLookup reports whether a live record exists for (scope, key).
// Errors are logged and treated as a miss.
type IdempotencyLookup func(ctx context.Context, scope, key string, now time.Time) (bool, error)

// IdempotencyValidator checks the Idempotency-Key of POST, PUT, PATCH and
// DELETE requests. Safe methods ignore the header. A malformed key is
// answered with 400 bad_idempotency_key; everything else proceeds.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdempotencyMaxLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	scopeOf := opts.Scope
	if scopeOf == nil {
		scopeOf = func(c *gin.Context) string { return c.Request.URL.Path }
	}

	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			scope := scopeOf(c)
			seen, err := lookup(c.Request.Context(), scope, key, now().UTC())
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
			case seen:
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
