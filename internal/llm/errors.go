package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Category classifies provider failures so callers can decide between
// retrying, backing off and giving up.
type Category string

const (
	// CategoryConnection covers network failures and 5xx responses.
	CategoryConnection Category = "connection"

	// CategoryTimeout covers deadline expiry waiting on the provider.
	CategoryTimeout Category = "timeout"

	// CategoryRateLimit covers 429 responses.
	CategoryRateLimit Category = "rate_limit"

	// CategoryAuth covers invalid or missing credentials.
	CategoryAuth Category = "auth"

	// CategoryResponse covers other non-retryable provider responses:
	// bad requests, unknown models, unsupported features.
	CategoryResponse Category = "response"
)

// Error is a classified provider failure.
type Error struct {
	Provider string
	Model    string
	Category Category

	// Status is the upstream HTTP status when one could be determined.
	Status int

	Err error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (%s): status %d: %v", e.Provider, e.Model, e.Status, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Provider, e.Model, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth retrying against the same
// provider: connection-level failures, timeouts and rate limits.
func (e *Error) Retryable() bool {
	switch e.Category {
	case CategoryConnection, CategoryTimeout, CategoryRateLimit:
		return true
	}
	return false
}

// Classify wraps a raw provider error into a classified *Error. Already
// classified errors pass through unchanged.
func Classify(err error, provider, model string) *Error {
	if err == nil {
		return nil
	}

	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}

	status := extractStatusCode(err.Error())
	return &Error{
		Provider: provider,
		Model:    model,
		Category: categorize(err, status),
		Status:   status,
		Err:      err,
	}
}

// categorize maps an error and optional status code to a Category.
func categorize(err error, status int) Category {
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	switch status {
	case http.StatusTooManyRequests:
		return CategoryRateLimit
	case http.StatusUnauthorized, http.StatusForbidden:
		return CategoryAuth
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return CategoryConnection
	}
	if status >= 400 {
		return CategoryResponse
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "deadline exceeded") || strings.Contains(errStr, "timeout"):
		return CategoryTimeout
	case strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "ratelimit"):
		return CategoryRateLimit
	case strings.Contains(errStr, "invalid api key") || strings.Contains(errStr, "authentication") || strings.Contains(errStr, "unauthorized"):
		return CategoryAuth
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "connection reset") || strings.Contains(errStr, "eof") ||
		strings.Contains(errStr, "overloaded"):
		return CategoryConnection
	}
	return CategoryConnection
}

// statusPatterns maps substrings that commonly appear in provider error
// messages to HTTP status codes. Checked in order; the "status NNN"
// variants come first so they win over bare code matches.
var statusPatterns = []struct {
	substr string
	code   int
}{
	{"status 429", http.StatusTooManyRequests},
	{"status 401", http.StatusUnauthorized},
	{"status 403", http.StatusForbidden},
	{"status 404", http.StatusNotFound},
	{"status 400", http.StatusBadRequest},
	{"status 500", http.StatusInternalServerError},
	{"status 502", http.StatusBadGateway},
	{"status 503", http.StatusServiceUnavailable},
	{"status 504", http.StatusGatewayTimeout},
	{"status: 429", http.StatusTooManyRequests},
	{"status: 401", http.StatusUnauthorized},
	{"status: 503", http.StatusServiceUnavailable},
	{"429", http.StatusTooManyRequests},
	{"503", http.StatusServiceUnavailable},
	{"502", http.StatusBadGateway},
	{"401", http.StatusUnauthorized},
}

// extractStatusCode attempts to pull an HTTP status code out of an error
// message. Provider SDKs embed the code in text rather than exposing it.
func extractStatusCode(errMsg string) int {
	errLower := strings.ToLower(errMsg)
	for _, p := range statusPatterns {
		if strings.Contains(errLower, p.substr) {
			return p.code
		}
	}
	return 0
}
