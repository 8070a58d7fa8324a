package database

import (
	"context"
	"errors"
	"fmt"
)

// Common errors returned by database adapters.
var (
	// ErrNotFound indicates the paper is unknown to the database.
	ErrNotFound = errors.New("paper not found")

	// ErrAuthError indicates an authentication error (missing/invalid API key).
	ErrAuthError = errors.New("database authentication error")

	// ErrRateLimited indicates the database refused the request for exceeding its rate limit.
	ErrRateLimited = errors.New("database rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with database")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response from database")

	// ErrUnsupportedID indicates the database cannot be queried with this kind of identifier.
	ErrUnsupportedID = errors.New("identifier kind not supported by database")

	// ErrNeedsLookup indicates the paper lacks source data the request needs;
	// fetching the paper itself first supplies it.
	ErrNeedsLookup = errors.New("paper must be looked up first")
)

// APIError represents an HTTP-level error from a database API.
type APIError struct {
	Database   string
	StatusCode int
	Message    string
	PaperID    string // For context in paper-related errors
}

func (e *APIError) Error() string {
	if e.PaperID != "" {
		return fmt.Sprintf("%s API error (status %d): %s (paper: %s)", e.Database, e.StatusCode, e.Message, e.PaperID)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Database, e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a paper was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnsupportedID) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
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

// IsTransient returns true for genuine request failures: everything except
// "not found", context cancellation, and a nil error. Transient failures are
// what the error monitor counts toward a suspected block.
func IsTransient(err error) bool {
	if err == nil || IsNotFound(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// CheckStatus maps an HTTP status code to the error taxonomy. It returns nil
// for 2xx codes.
func CheckStatus(db string, statusCode int, paperID string) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == 404:
		return fmt.Errorf("%w: %s", ErrNotFound, paperID)
	case statusCode == 401 || statusCode == 403:
		return fmt.Errorf("%w: status %d", ErrAuthError, statusCode)
	case statusCode == 429:
		return fmt.Errorf("%w: status %d", ErrRateLimited, statusCode)
	default:
		return &APIError{
			Database:   db,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("HTTP %d", statusCode),
			PaperID:    paperID,
		}
	}
}
