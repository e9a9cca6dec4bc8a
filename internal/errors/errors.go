package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the session manager and its backend adapters.
// The messages are part of the contract: the classifier matches on them.
var (
	// Credential errors
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrInvalidGrant       = errors.New("invalid grant")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")

	// Rate limiting
	ErrRateLimited = errors.New("too many requests")

	// Session errors
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrNoSession            = errors.New("no session returned")
	ErrSessionSuperseded    = errors.New("session cleared while signing in")

	// Transport errors
	ErrNetwork = errors.New("network error")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// StatusError attaches an HTTP-like status code to an error returned by a
// remote collaborator.
type StatusError struct {
	Status int
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("status %d %s", e.Status, http.StatusText(e.Status))
	}
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// StatusCode returns the attached status.
func (e *StatusError) StatusCode() int {
	return e.Status
}

// WithStatus wraps err with a status code. A nil err yields nil.
func WithStatus(status int, err error) error {
	if err == nil {
		return nil
	}
	return &StatusError{Status: status, Err: err}
}

// StatusOf returns the first status code found in err's chain, or 0.
func StatusOf(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join is errors.Join
func Join(errs ...error) error {
	return errors.Join(errs...)
}
