package api

import (
	"errors"
	"fmt"
)

// Sentinel errors for the api package. 401 and 403 are treated uniformly:
// either way the caller must re-authenticate.
var (
	// ErrUnauthorized is returned for 401/403 responses.
	ErrUnauthorized = errors.New("not authenticated")

	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict is returned for 409 responses (e.g. duplicate upload).
	ErrConflict = errors.New("conflict")
)

// StatusError carries the HTTP status and server detail for a failed request.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Detail)
}

// TransientError marks a failure that is safe to retry: a transport
// error or a 5xx response. Polling retries these on its next tick.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is safe to retry.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ErrorResponse matches the server's error response format.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
