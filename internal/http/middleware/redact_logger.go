// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access log. Request and response
// bodies are never logged: they carry document content and source excerpts.
// Query strings and header values are scrubbed of email addresses, phone
// numbers and UUIDs, and credential headers are masked outright.
package middleware

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-documind-backend/internal/utils"
)

const redacted = "[REDACTED]"

// RedactOptions configures RedactingLogger.
//
// MaskHeaders extends the always-masked set (Authorization, Cookie,
// Set-Cookie, Idempotency-Key). SkipPaths lists exact request paths that are
// not logged at all, typically /health and /metrics.
type RedactOptions struct {
	MaskHeaders []string
	SkipPaths   []string
}

var (
	// UUIDs go first so the phone pattern never eats their digit groups.
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// scrub replaces identifiers in s with typed placeholders.
func scrub(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

func lowerSet(base []string, extra []string) map[string]struct{} {
	set := make(map[string]struct{}, len(base)+len(extra))
	for _, group := range [][]string{base, extra} {
		for _, v := range group {
			if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
				set[v] = struct{}{}
			}
		}
	}
	return set
}

// RedactingLogger logs one line per request at info level, warn for 4xx and
// error for 5xx. Besides the usual method, route, status, size and latency it
// records the acting user (X-User-ID), the document id path parameter and
// whether the response was an idempotent replay.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := lowerSet([]string{"authorization", "cookie", "set-cookie", "idempotency-key"}, opts.MaskHeaders)
	skip := make(map[string]struct{}, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		start := time.Now()

		headers := zerolog.Dict()
		for k, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(k)]; ok {
				headers.Str(k, redacted)
				continue
			}
			headers.Str(k, scrub(strings.Join(vv, ", ")))
		}
		query := scrub(c.Request.URL.RawQuery)

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		reqID := c.Writer.Header().Get("X-Request-ID")
		if reqID == "" {
			reqID = c.GetHeader("X-Request-ID")
		}

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}

		ev = ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("route", route).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start))

		if uid, ok := utils.PositiveID(c.GetHeader("X-User-ID")); ok {
			ev = ev.Int64("user_id", uid)
		}
		if id, err := strconv.ParseInt(c.Param("id"), 10, 64); err == nil && strings.Contains(route, "/documents/:id") {
			ev = ev.Int64("document_id", id)
		}
		if c.Writer.Header().Get("Idempotency-Replayed") == "true" {
			ev = ev.Bool("idempotency_replayed", true)
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", scrub(c.Errors.String()))
		}

		ev.Dict("headers", headers).Msg("http_request")
	}
}
