// Package constants defines centralized configuration for extraction operations.
package constants

import "time"

// LLM retry and backoff configuration.
const (
	// DefaultMaxRetries is the default number of retry attempts for a
	// failed LLM call before the error is surfaced.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the initial delay before the first retry.
	DefaultRetryDelay = 1 * time.Second

	// MaxBackoff is the maximum delay between retries (caps exponential growth).
	MaxBackoff = 30 * time.Second

	// BackoffMultiplier is the factor by which backoff increases after each retry.
	// With DefaultRetryDelay=1s and multiplier=2: delays are 1s, 2s, 4s, etc.
	BackoffMultiplier = 2.0
)

// Strategy execution configuration.
const (
	// DefaultStrategyTimeout bounds a single strategy invocation, including
	// all of its retries.
	DefaultStrategyTimeout = 60 * time.Second

	// DefaultMaxParallelSubstrategies is the default number of sub-strategies
	// a composite runs concurrently.
	DefaultMaxParallelSubstrategies = 6

	// DefaultMaxContentLength is the maximum number of characters of page
	// content forwarded to an LLM. Longer content is head-truncated.
	DefaultMaxContentLength = 50000

	// ClassifierSelectionThreshold is the minimum classifier confidence for
	// a content type before a composite selects the matching sub-strategy.
	ClassifierSelectionThreshold = 0.2

	// ClassifierFallbackTypes is how many top-ranked content types a
	// composite falls back to when no type clears the threshold.
	ClassifierFallbackTypes = 2
)

// Dispatch rate limiting configuration.
const (
	// RateLimitWindow is the fixed window over which per-mapping request
	// budgets are counted.
	RateLimitWindow = 60 * time.Second

	// DefaultRateLimit is the per-window request budget for a mapping that
	// does not declare its own.
	DefaultRateLimit = 60
)

// Content fetching configuration.
const (
	// DefaultFetchTimeout bounds a single page fetch.
	DefaultFetchTimeout = 30 * time.Second

	// MaxFetchBodySize limits how many bytes of a response body are read
	// when fetching page content.
	MaxFetchBodySize = 10 * 1024 * 1024
)

// API request limits.
const (
	// MaxPageSize is the largest accepted value for list pagination limits.
	MaxPageSize = 1000

	// DefaultPageSize is the pagination limit applied when none is given.
	DefaultPageSize = 100

	// MaxBulkStatusItems caps how many mapping IDs a single bulk
	// status update may address.
	MaxBulkStatusItems = 100
)

// HTTP request timeouts.
const (
	// DefaultRequestTimeout is the timeout for most API endpoints.
	DefaultRequestTimeout = 60 * time.Second

	// LLMRequestTimeout is the extended timeout for endpoints that run
	// LLM extractions.
	LLMRequestTimeout = 3 * time.Minute
)
