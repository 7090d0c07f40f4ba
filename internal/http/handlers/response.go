// Package handlers implements the Gin handlers of the public API.
//
// Every failure is written as an ErrorResponse:
//
//	HTTP/1.1 404 Not Found
//	{"request_id": "123e4567-e89b-12d3-a456-426614174000", "code": "not_found", "message": "document not found"}
//
// Successful calls return the resource itself, or the literal null where an
// operation matched nothing for the acting user.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-documind-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code
	Code string `json:"code" example:"not_found"`
	// Safe to show to users
	Message string `json:"message" example:"document not found"`
}

// fail aborts with an ErrorResponse. 5xx replies are logged with the request
// logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is fail for callers outside the package, such as the router's 404 and
// 405 handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr answers with the mapping of a service error. The cause of an
// unclassified error is logged and attached to the Gin context, never sent.
func failErr(c *gin.Context, err error, fallbackCode string) {
	status, code, msg := classify(err, fallbackCode)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		middleware.LoggerFrom(c).Error().Err(err).Str("code", code).Msg("service error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
