package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError reports a request that failed in transport (StatusCode 0)
// or that the service answered with a non-2xx status.
type NetworkError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s (%d): %v", e.Method, e.Path, e.StatusCode, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s %s: %s (%d)", e.Method, e.Path, e.Body, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Unauthorized reports whether the service rejected the credentials.
func (e *NetworkError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsNetworkError reports whether err (or any error in its chain) is a NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsUnauthorized reports whether err is a NetworkError carrying 401 or 403.
func IsUnauthorized(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne) && ne.Unauthorized()
}
