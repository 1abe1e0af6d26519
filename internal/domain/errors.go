package domain

import (
	"errors"
	"fmt"
)

// Base error kinds. Every failure surfaced by the services wraps exactly one
// of these so the transport layer can map it to a status code.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidInput    = errors.New("invalid input")
	ErrRateLimited     = errors.New("too many requests")
)

var (
	ErrAlreadyClosed      = fmt.Errorf("%w: complaint already closed", ErrConflict)
	ErrEmailTaken         = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrUsernameTaken      = fmt.Errorf("%w: username already taken", ErrConflict)
	ErrInvalidRole        = fmt.Errorf("%w: role must be 'admin' or 'customer'", ErrInvalidInput)
	ErrInvalidStatus      = fmt.Errorf("%w: status must be 'open' or 'closed'", ErrInvalidInput)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid username/email or password", ErrUnauthenticated)
	ErrComplaintNotFound  = fmt.Errorf("%w: complaint not found", ErrNotFound)
)
