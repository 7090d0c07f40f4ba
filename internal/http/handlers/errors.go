package handlers

import (
	"errors"
	"net/http"

	"github.com/tbourn/go-documind-backend/internal/services"
)

// Error codes carried in ErrorResponse.Code. Clients branch on these, so they
// never change once published.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	ErrCodeAssistanceFailed = "assistance_failed"
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeUpdateFailed     = "update_failed"
	ErrCodeDeleteFailed     = "delete_failed"
)

// internalMessage replaces the text of unclassified errors in responses; the
// cause is only logged.
const internalMessage = "internal server error"

// serviceErrors maps service sentinels to HTTP. The first match wins and the
// error text is passed through to the client.
var serviceErrors = []struct {
	target error
	status int
	code   string
}{
	{services.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrDocumentNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrDuplicateEmail, http.StatusConflict, ErrCodeConflict},
	{services.ErrGeneration, http.StatusBadGateway, ErrCodeAssistanceFailed},
}

// classify returns the status, code and client-facing message for err.
// Unknown errors become 500 with fallbackCode and a generic message.
func classify(err error, fallbackCode string) (int, string, string) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			return m.status, m.code, err.Error()
		}
	}
	return http.StatusInternalServerError, fallbackCode, internalMessage
}
