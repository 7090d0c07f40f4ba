// Package services defines the business logic for users, documents, sources,
// and AI assistance. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked by
// callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound indicates that a referenced user does not exist. It is
	// raised when a document is created for an unknown owner.
	ErrUserNotFound = errors.New("user not found")

	// ErrDocumentNotFound indicates that a referenced document does not
	// exist. It is raised by the source and assistance paths, which need the
	// parent document as context.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDuplicateEmail is returned when a user is created with an email
	// that is already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidInput wraps field-level validation failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGeneration wraps failures of the configured text generator.
	ErrGeneration = errors.New("assistance generation failed")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
