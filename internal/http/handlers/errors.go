package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/harvest-api/internal/extract"
	"github.com/jmylchreest/harvest-api/internal/repository"
)

// APIError is the error body every endpoint returns: a human-readable
// detail, a stable error_code drawn from the extraction error taxonomy,
// and the unix time the error was produced. It implements huma.StatusError
// so handlers can return it directly.
type APIError struct {
	Status    int    `json:"-"`
	Detail    string `json:"detail" doc:"Human-readable error description"`
	ErrorCode string `json:"error_code" doc:"Stable machine-readable error code"`
	Timestamp int64  `json:"timestamp" doc:"Unix time the error was produced"`

	headers http.Header
}

func (e *APIError) Error() string {
	return e.Detail
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.Status
}

// GetHeaders implements huma.HeadersError. Rate limit errors carry a
// Retry-After header here.
func (e *APIError) GetHeaders() http.Header {
	return e.headers
}

// NewAPIError creates an APIError stamped with the current time.
func NewAPIError(status int, code, detail string) *APIError {
	return &APIError{
		Status:    status,
		Detail:    detail,
		ErrorCode: code,
		Timestamp: time.Now().Unix(),
	}
}

// NewHumaError replaces huma.NewError so framework-generated errors
// (unparseable bodies, schema validation failures) share the APIError
// shape. Installed by routes.Register.
func NewHumaError(status int, msg string, errs ...error) huma.StatusError {
	detail := msg
	var parts []string
	for _, err := range errs {
		if err != nil {
			parts = append(parts, err.Error())
		}
	}
	if len(parts) > 0 {
		detail = fmt.Sprintf("%s: %s", msg, strings.Join(parts, "; "))
	}
	return NewAPIError(status, codeForStatus(status), detail)
}

// WriteError renders the APIError body on a plain ResponseWriter, for
// responses produced outside huma (router fallbacks, middleware).
func WriteError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewAPIError(status, codeForStatus(status), detail))
}

// NotFound answers requests for unregistered paths.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
}

// MethodNotAllowed answers requests using the wrong verb on a known path.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed for %s", r.Method, r.URL.Path))
}

// apiError maps a service or store error onto the APIError shape.
// Taxonomy errors keep their kind as the error_code; untyped errors can
// only escape from the stores and are surfaced as Database failures.
func apiError(err error) error {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, repository.ErrDuplicateName) {
		return NewAPIError(http.StatusConflict, string(extract.KindDuplicate), err.Error())
	}
	ee, ok := extract.AsError(err)
	if !ok {
		return NewAPIError(http.StatusInternalServerError, string(extract.KindDatabase), err.Error())
	}

	out := NewAPIError(statusForKind(ee.Kind), string(ee.Kind), errorDetail(ee))
	if ee.Kind == extract.KindRateLimit && ee.RetryAfter > 0 {
		out.headers = http.Header{"Retry-After": []string{strconv.Itoa(retryAfterSeconds(ee.RetryAfter))}}
	}
	return out
}

// errorDetail renders the taxonomy error without its kind prefix; the
// error_code field already carries the kind.
func errorDetail(ee *extract.Error) string {
	if ee.Err != nil {
		return fmt.Sprintf("%s: %v", ee.Detail, ee.Err)
	}
	return ee.Detail
}

// retryAfterSeconds rounds a reset interval up to whole seconds, never
// reporting less than one.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// statusForKind maps taxonomy kinds to HTTP statuses.
func statusForKind(kind extract.Kind) int {
	switch kind {
	case extract.KindNotFound:
		return http.StatusNotFound
	case extract.KindDuplicate:
		return http.StatusConflict
	case extract.KindValidation, extract.KindContentParsing:
		return http.StatusUnprocessableEntity
	case extract.KindRateLimit:
		return http.StatusTooManyRequests
	case extract.KindAPIConnection, extract.KindAPIResponse:
		return http.StatusBadGateway
	case extract.KindTimeout:
		return http.StatusGatewayTimeout
	case extract.KindConfiguration, extract.KindDatabase:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// codeForStatus picks an error_code for statuses huma generates on its
// own. Statuses outside the taxonomy fall back to the status text.
func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(extract.KindValidation)
	case http.StatusNotFound:
		return string(extract.KindNotFound)
	case http.StatusConflict:
		return string(extract.KindDuplicate)
	case http.StatusTooManyRequests:
		return string(extract.KindRateLimit)
	case http.StatusBadGateway:
		return string(extract.KindAPIResponse)
	case http.StatusGatewayTimeout:
		return string(extract.KindTimeout)
	case http.StatusServiceUnavailable, http.StatusInternalServerError:
		return string(extract.KindDatabase)
	default:
		return strings.ReplaceAll(http.StatusText(status), " ", "")
	}
}
