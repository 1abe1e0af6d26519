package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts domain sentinels and unknown errors to DomainError.
// Domain errors carry client-safe text; messages of unknown errors never
// reach the client.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return &DomainError{Code: "UNAUTHORIZED", Message: err.Error(), HTTPStatus: http.StatusUnauthorized, Err: err}
	case errors.Is(err, domain.ErrForbidden):
		return &DomainError{Code: "FORBIDDEN", Message: err.Error(), HTTPStatus: http.StatusForbidden, Err: err}
	case errors.Is(err, domain.ErrNotFound):
		return &DomainError{Code: "NOT_FOUND", Message: err.Error(), HTTPStatus: http.StatusNotFound, Err: err}
	case errors.Is(err, domain.ErrConflict):
		return &DomainError{Code: "CONFLICT", Message: err.Error(), HTTPStatus: http.StatusConflict, Err: err}
	case errors.Is(err, domain.ErrInvalidInput):
		return &DomainError{Code: "VALIDATION_FAILED", Message: err.Error(), HTTPStatus: http.StatusBadRequest, Err: err}
	case errors.Is(err, domain.ErrRateLimited):
		return &DomainError{Code: "TOO_MANY_REQUESTS", Message: err.Error(), HTTPStatus: http.StatusTooManyRequests, Err: err}
	}

	de, _ := NewInternalError(err).(*DomainError)
	return de
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	return ToDomainError(err)
}
