// Package mw provides HTTP middleware for the API.
package mw

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"
)

// TimeoutConfig defines per-path request deadlines.
type TimeoutConfig struct {
	// Default deadline for most endpoints.
	Default time.Duration

	// Extended deadline for long-running operations (LLM calls).
	Extended time.Duration

	// ExtendedPatterns selects paths that get the extended deadline,
	// matched as substrings (e.g. "/test-url").
	ExtendedPatterns []string
}

func (cfg TimeoutConfig) deadlineFor(path string) time.Duration {
	for _, pattern := range cfg.ExtendedPatterns {
		if strings.Contains(path, pattern) {
			return cfg.Extended
		}
	}
	return cfg.Default
}

// handlerPanic carries a panic out of the handler goroutine with the stack
// captured at the panic site.
type handlerPanic struct {
	value any
	stack []byte
}

// Timeout cancels the request context after the configured deadline and
// answers 504 with the API error envelope when the handler did not finish.
func Timeout(cfg TimeoutConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deadline := cfg.deadlineFor(r.URL.Path)
			ctx, cancel := context.WithTimeout(r.Context(), deadline)
			defer cancel()

			done := make(chan struct{})
			panicked := make(chan handlerPanic, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- handlerPanic{value: p, stack: debug.Stack()}
					}
				}()
				next.ServeHTTP(w, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case p := <-panicked:
				// Re-panic so the recoverer reports the real failure point.
				panic(fmt.Sprintf("%v\n\nOriginal stack trace:\n%s", p.value, p.stack))
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusGatewayTimeout)
					fmt.Fprintf(w, `{"detail":"request timed out after %s","error_code":"Timeout","timestamp":%d}`,
						deadline, time.Now().Unix())
				}
			}
		})
	}
}
