// Package embedding provides vector embedding generation for text.
//
// Providers talk to a concrete embedding API. Client wraps a Provider with the
// retry policy used by both the index build and the query path.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrEmbeddingService marks failures of the embedding capability that the
// retry policy could not recover from.
var ErrEmbeddingService = errors.New("embedding service error")

// StatusError is a non-2xx response from an embedding API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Transient reports whether the status signals rate limiting or a server error.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ServiceError is returned by Client when a request fails for good, either
// because the failure was not transient or because attempts ran out.
type ServiceError struct {
	Attempts int
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("embedding failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrEmbeddingService) hold for any ServiceError.
func (e *ServiceError) Is(target error) bool { return target == ErrEmbeddingService }

// IsTransient returns true if err is worth retrying: rate limiting, server
// errors, per-attempt timeouts and network failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden)
}
