// Package extract implements the extraction strategy runtime: the strategy
// contract, the registry and factory that manage strategies, the LLM-backed
// strategy, and the composite, sequential and URL-routing combinators.
package extract

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies extraction failures. The string value doubles as the
// error_code surfaced by the HTTP API.
type Kind string

const (
	// KindAPIConnection covers network failures, timeouts while connecting
	// and 5xx responses from an LLM provider. Retryable.
	KindAPIConnection Kind = "APIConnection"

	// KindAPIResponse covers non-retryable provider responses (4xx other
	// than 429) and malformed provider payloads. 429s carry this kind with
	// Status set and are retried with backoff.
	KindAPIResponse Kind = "APIResponse"

	// KindContentParsing covers unparseable model output and aggregate
	// composite failure.
	KindContentParsing Kind = "ContentParsing"

	// KindTimeout covers deadline expiry during an extraction.
	KindTimeout Kind = "Timeout"

	// KindValidation covers schema violations in extracted records and
	// invalid caller input.
	KindValidation Kind = "Validation"

	// KindConfiguration covers unknown strategy names, bad strategy config
	// and missing credentials.
	KindConfiguration Kind = "Configuration"

	// KindNotFound covers lookups that matched nothing.
	KindNotFound Kind = "NotFound"

	// KindDuplicate covers uniqueness violations.
	KindDuplicate Kind = "Duplicate"

	// KindRateLimit covers dispatches rejected by a mapping's request
	// budget. The error carries the seconds until the window resets.
	KindRateLimit Kind = "RateLimitExceeded"

	// KindDatabase covers storage failures.
	KindDatabase Kind = "Database"
)

// Error is the extraction error type. Every failure crossing a strategy,
// store or dispatch boundary is wrapped into one so callers can branch on
// Kind instead of provider-specific error types.
type Error struct {
	Kind   Kind
	Detail string

	// Err is the wrapped cause, if any.
	Err error

	// Path names the offending field for KindValidation errors.
	Path string

	// Status is the upstream HTTP status for provider errors.
	Status int

	// RetryAfter is how long until a rate-limited caller may try again.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an extraction error.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Newf creates an extraction error with a formatted detail message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap creates an extraction error around a cause. If the cause is already
// an *Error its kind is preserved and only the detail is layered on.
func Wrap(kind Kind, detail string, err error) *Error {
	var ee *Error
	if errors.As(err, &ee) {
		kind = ee.Kind
	}
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var ee *Error
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or the empty string when err carries none.
func KindOf(err error) Kind {
	if ee, ok := AsError(err); ok {
		return ee.Kind
	}
	return ""
}

// IsKind reports whether err's chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether a failed LLM call is worth retrying: connection
// level failures, timeouts and 429 responses.
func Retryable(err error) bool {
	ee, ok := AsError(err)
	if !ok {
		return false
	}
	switch ee.Kind {
	case KindAPIConnection, KindTimeout:
		return true
	case KindAPIResponse:
		return ee.Status == 429
	}
	return false
}
