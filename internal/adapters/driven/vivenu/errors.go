package vivenu

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Vivenu-specific errors.
var (
	// ErrMalformedResponse indicates a 2xx response that is not the expected JSON.
	ErrMalformedResponse = errors.New("vivenu: malformed response")
)

// APIError represents a non-2xx Vivenu API response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vivenu: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// TransportError represents a request that produced no HTTP response.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("vivenu: request %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RateLimitError represents a 429 response with the time requests may resume.
type RateLimitError struct {
	ResetAt time.Time
	URL     string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("vivenu: rate limit exceeded, resets at %s (URL: %s)", e.ResetAt.Format(time.RFC3339), e.URL)
}

// IsTransient reports whether err is a 503 or a transport failure.
// Cancellation and every other status are permanent.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusServiceUnavailable
	}
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}
