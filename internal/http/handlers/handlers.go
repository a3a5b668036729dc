// Package handlers contains HTTP handlers for the API.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jmylchreest/harvest-api/internal/extract"
	"github.com/jmylchreest/harvest-api/internal/version"
)

// DBPinger checks database connectivity.
type DBPinger interface {
	Ping() error
}

// HealthHandler reports service health.
type HealthHandler struct {
	db DBPinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db DBPinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthCheckOutput represents health check response.
type HealthCheckOutput struct {
	Body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
		Time    string `json:"time"`
	}
}

// HealthCheck returns the health status of the API. Answers 503 when the
// database stops responding to pings.
func (h *HealthHandler) HealthCheck(ctx context.Context, input *struct{}) (*HealthCheckOutput, error) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			return nil, NewAPIError(http.StatusServiceUnavailable, string(extract.KindDatabase), "database ping failed: "+err.Error())
		}
	}

	output := &HealthCheckOutput{}
	output.Body.Status = "healthy"
	output.Body.Version = version.Get().Short()
	output.Body.Time = time.Now().UTC().Format(time.RFC3339)
	return output, nil
}

// LivezOutput represents liveness probe response.
type LivezOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// Livez reports process liveness for Kubernetes.
func Livez(ctx context.Context, input *struct{}) (*LivezOutput, error) {
	output := &LivezOutput{}
	output.Body.Status = "ok"
	return output, nil
}

// ReadyzHandler reports readiness, gated on database connectivity.
type ReadyzHandler struct {
	db DBPinger
}

// NewReadyzHandler creates a new readiness handler.
func NewReadyzHandler(db DBPinger) *ReadyzHandler {
	return &ReadyzHandler{db: db}
}

// ReadyzOutput represents readiness probe response.
type ReadyzOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// Readyz reports whether the service can take traffic.
func (h *ReadyzHandler) Readyz(ctx context.Context, input *struct{}) (*ReadyzOutput, error) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			return nil, NewAPIError(http.StatusServiceUnavailable, string(extract.KindDatabase), "database not ready: "+err.Error())
		}
	}

	output := &ReadyzOutput{}
	output.Body.Status = "ok"
	return output, nil
}
