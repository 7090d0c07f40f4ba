// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the correlation and logging plumbing:
//
//   - RequestID accepts a well-formed X-Request-ID or mints a UUID.
//   - ContextLogger attaches a request-scoped zerolog.Logger carrying the
//     request id, acting user, document id and route; LoggerFrom reads it.
//   - Recovery turns panics into the JSON 500 envelope.
//
// Mount them in that order, after tracing and before everything else.
package middleware

import (
	"net/http"
	"regexp"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-documind-backend/internal/utils"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"
)

// Client-supplied ids end up in every log line, so they are held to a short
// token alphabet.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:\-]{1,128}$`)

// RequestID propagates a valid incoming X-Request-ID or generates a UUIDv4,
// and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if !requestIDPattern.MatchString(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// actingUser returns the caller's user id from the context, the X-User-ID
// header or the user_id query parameter, in that order; 0 if none.
func actingUser(c *gin.Context) int64 {
	if v, ok := c.Get("userID"); ok {
		if id, ok := v.(int64); ok && id > 0 {
			return id
		}
	}
	for _, raw := range []string{c.GetHeader("X-User-ID"), c.Query("user_id")} {
		if id, ok := utils.PositiveID(raw); ok {
			return id
		}
	}
	return 0
}

// ContextLogger stores a logger enriched with the request id, method, route,
// remote IP and, when known, the acting user and document id.
func ContextLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx := log.With().
			Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("route", route).
			Str("remote_ip", c.ClientIP())
		if uid := actingUser(c); uid > 0 {
			ctx = ctx.Int64("user_id", uid)
		}
		if strings.Contains(route, "/documents/:id") {
			if id, err := strconv.ParseInt(c.Param("id"), 10, 64); err == nil {
				ctx = ctx.Int64("document_id", id)
			}
		}
		l := ctx.Logger()
		c.Set(loggerKey, &l)
		c.Next()
	}
}

// Recovery logs a panic with its stack and answers 500 internal_error unless
// the handler already started writing.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			rid := c.GetString(requestIDKey)
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request logger, or the global logger when
// ContextLogger did not run.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.Logger
	return &l
}
