// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders: hardening headers for the JSON API,
// cache directives that keep document payloads out of shared caches while
// still letting clients revalidate listings with If-None-Match, and the
// Access-Control-Expose-Headers list browser clients need to read request
// ids, ETags and idempotency replay flags.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CachePolicy selects the Cache-Control directives SecurityHeaders emits.
type CachePolicy int

const (
	// CacheUnset leaves caching headers to handlers.
	CacheUnset CachePolicy = iota
	// CacheRevalidate marks safe reads "private, no-cache" so a client may
	// keep a copy but must revalidate it (ETag / 304); writes get no-store.
	CacheRevalidate
	// CacheNoStore forbids storing any response.
	CacheNoStore
)

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions configures SecurityHeaders.
//
// EnableHSTS must only be set when traffic is HTTPS end-to-end; the header is
// never sent on plain HTTP requests. HSTSMaxAge <= 0 means 180 days.
// ExposeHeaders are always added to Access-Control-Expose-Headers; X-Request-ID
// is added whenever the response carries one.
type SecurityOptions struct {
	EnableHSTS    bool
	HSTSMaxAge    time.Duration
	Cache         CachePolicy
	EnablePolicy  bool // Permissions-Policy and X-Permitted-Cross-Domain-Policies
	ExposeHeaders []string
}

// SecurityHeaders returns the hardening middleware. Always set:
//
//	X-Content-Type-Options: nosniff
//	X-Frame-Options: DENY
//	Referrer-Policy: no-referrer
//
// There is no Content-Security-Policy: the API serves no HTML of its own.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.FormatInt(int64(maxAge/time.Second), 10) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		switch opt.Cache {
		case CacheRevalidate:
			if isSafeMethod(c.Request.Method) {
				h.Set("Cache-Control", "private, no-cache")
			} else {
				h.Set("Cache-Control", "no-store")
			}
		case CacheNoStore:
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		expose := opt.ExposeHeaders
		if h.Get("X-Request-ID") != "" {
			expose = append([]string{"X-Request-ID"}, expose...)
		}
		appendExposed(h, expose)

		c.Next()
	}
}

// appendExposed merges names into Access-Control-Expose-Headers, keeping the
// existing order and skipping names already present (case-insensitive).
func appendExposed(h http.Header, names []string) {
	const hdr = "Access-Control-Expose-Headers"
	cur := h.Get(hdr)
	seen := map[string]struct{}{}
	for _, part := range strings.Split(cur, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			seen[p] = struct{}{}
		}
	}
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if cur == "" {
			cur = n
		} else {
			cur += ", " + n
		}
	}
	if cur != "" {
		h.Set(hdr, cur)
	}
}

func isSafeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

// isHTTPS reports whether the request used TLS directly or arrived through a
// proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
