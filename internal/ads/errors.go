package ads

import (
	"errors"
	"fmt"
)

// Common errors returned by the ADS client.
var (
	// ErrAuthError indicates an authentication error (missing/invalid token).
	ErrAuthError = errors.New("ADS authentication error")

	// ErrRateLimited indicates the API rate limit has been exceeded.
	ErrRateLimited = errors.New("ADS rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with ADS")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response from ADS")
)

// APIError represents a non-2xx response from the ADS API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ADS API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ADS API error (status %d)", e.StatusCode)
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuthError) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
