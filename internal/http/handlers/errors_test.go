package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jmylchreest/harvest-api/internal/extract"
	"github.com/jmylchreest/harvest-api/internal/repository"
)

// ============================================================================
// Kind and status mapping
// ============================================================================

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind extract.Kind
		want int
	}{
		{extract.KindNotFound, http.StatusNotFound},
		{extract.KindDuplicate, http.StatusConflict},
		{extract.KindValidation, http.StatusUnprocessableEntity},
		{extract.KindContentParsing, http.StatusUnprocessableEntity},
		{extract.KindRateLimit, http.StatusTooManyRequests},
		{extract.KindAPIConnection, http.StatusBadGateway},
		{extract.KindAPIResponse, http.StatusBadGateway},
		{extract.KindTimeout, http.StatusGatewayTimeout},
		{extract.KindConfiguration, http.StatusInternalServerError},
		{extract.KindDatabase, http.StatusInternalServerError},
		{extract.Kind("Unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusForKind(tt.kind); got != tt.want {
			t.Errorf("statusForKind(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusBadRequest, "Validation"},
		{http.StatusUnprocessableEntity, "Validation"},
		{http.StatusNotFound, "NotFound"},
		{http.StatusConflict, "Duplicate"},
		{http.StatusTooManyRequests, "RateLimitExceeded"},
		{http.StatusBadGateway, "APIResponse"},
		{http.StatusGatewayTimeout, "Timeout"},
		{http.StatusInternalServerError, "Database"},
		{http.StatusServiceUnavailable, "Database"},
		{http.StatusForbidden, "Forbidden"},
	}
	for _, tt := range tests {
		if got := codeForStatus(tt.status); got != tt.want {
			t.Errorf("codeForStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

// ============================================================================
// apiError mapping
// ============================================================================

func TestAPIErrorFromTaxonomy(t *testing.T) {
	err := extract.New(extract.KindNotFound, "extractor 'Missing' not found")

	ae := asAPIError(t, apiError(err))
	if ae.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", ae.Status)
	}
	if ae.ErrorCode != "NotFound" {
		t.Errorf("expected error_code NotFound, got %q", ae.ErrorCode)
	}
	if ae.Detail != "extractor 'Missing' not found" {
		t.Errorf("unexpected detail: %q", ae.Detail)
	}
	if ae.Timestamp == 0 {
		t.Error("expected timestamp to be set")
	}
}

func TestAPIErrorIncludesCause(t *testing.T) {
	err := extract.Wrap(extract.KindDatabase, "list configurations", errors.New("disk I/O error"))

	ae := asAPIError(t, apiError(err))
	if ae.Detail != "list configurations: disk I/O error" {
		t.Errorf("unexpected detail: %q", ae.Detail)
	}
	if ae.ErrorCode != "Database" {
		t.Errorf("expected error_code Database, got %q", ae.ErrorCode)
	}
}

func TestAPIErrorRateLimitCarriesRetryAfter(t *testing.T) {
	err := &extract.Error{
		Kind:       extract.KindRateLimit,
		Detail:     "rate limit exceeded for https://example.com",
		RetryAfter: 30 * time.Second,
	}

	ae := asAPIError(t, apiError(err))
	if ae.Status != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", ae.Status)
	}
	if got := ae.GetHeaders().Get("Retry-After"); got != "30" {
		t.Errorf("expected Retry-After 30, got %q", got)
	}
}

func TestAPIErrorRateLimitWithoutReset(t *testing.T) {
	err := extract.New(extract.KindRateLimit, "rate limit exceeded")

	ae := asAPIError(t, apiError(err))
	if ae.GetHeaders() != nil {
		t.Errorf("expected no headers, got %v", ae.GetHeaders())
	}
}

func TestAPIErrorDuplicateName(t *testing.T) {
	ae := asAPIError(t, apiError(fmt.Errorf("create configuration: %w", repository.ErrDuplicateName)))
	if ae.Status != http.StatusConflict {
		t.Errorf("expected status 409, got %d", ae.Status)
	}
	if ae.ErrorCode != "Duplicate" {
		t.Errorf("expected error_code Duplicate, got %q", ae.ErrorCode)
	}
}

func TestAPIErrorUntypedBecomesDatabase(t *testing.T) {
	ae := asAPIError(t, apiError(errors.New("sql: connection is already closed")))
	if ae.Status != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", ae.Status)
	}
	if ae.ErrorCode != "Database" {
		t.Errorf("expected error_code Database, got %q", ae.ErrorCode)
	}
}

func TestAPIErrorPassthrough(t *testing.T) {
	in := NewAPIError(http.StatusNotFound, "NotFound", "url mapping not found")
	if out := apiError(in); out != in {
		t.Errorf("expected the same *APIError back, got %#v", out)
	}
}

// ============================================================================
// huma.NewError replacement
// ============================================================================

func TestNewHumaErrorJoinsDetails(t *testing.T) {
	err := NewHumaError(http.StatusUnprocessableEntity, "validation failed",
		errors.New("expected required property url to be present"),
		nil,
		errors.New("expected number >= 1"),
	)

	ae, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if ae.GetStatus() != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", ae.GetStatus())
	}
	if ae.ErrorCode != "Validation" {
		t.Errorf("expected error_code Validation, got %q", ae.ErrorCode)
	}
	want := "validation failed: expected required property url to be present; expected number >= 1"
	if ae.Detail != want {
		t.Errorf("unexpected detail:\n got %q\nwant %q", ae.Detail, want)
	}
}

func TestNewHumaErrorWithoutCauses(t *testing.T) {
	err := NewHumaError(http.StatusNotFound, "unable to find route")

	ae := err.(*APIError)
	if ae.Detail != "unable to find route" {
		t.Errorf("unexpected detail: %q", ae.Detail)
	}
	if ae.ErrorCode != "NotFound" {
		t.Errorf("expected error_code NotFound, got %q", ae.ErrorCode)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{time.Millisecond, 1},
		{time.Second, 1},
		{1001 * time.Millisecond, 2},
		{59*time.Second + 500*time.Millisecond, 60},
		{2 * time.Minute, 120},
	}
	for _, tt := range tests {
		if got := retryAfterSeconds(tt.d); got != tt.want {
			t.Errorf("retryAfterSeconds(%s) = %d, want %d", tt.d, got, tt.want)
		}
	}
}
