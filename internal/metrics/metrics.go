// Package metrics exposes Prometheus instrumentation for dispatches and
// provider traffic, plus a standalone scrape server.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "harvest"

// Dispatch outcome label values.
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
	OutcomeNoMatch     = "no_match"
)

// Token direction label values.
const (
	DirectionPrompt     = "prompt"
	DirectionCompletion = "completion"
)

// Metrics holds the instrument set on a private registry so tests can run
// side by side without default-registry collisions.
type Metrics struct {
	registry *prometheus.Registry

	dispatches      *prometheus.CounterVec
	dispatchSeconds prometheus.Histogram
	llmRequests     *prometheus.CounterVec
	llmTokens       *prometheus.CounterVec
	rejections      prometheus.Counter
}

// New creates the instrument set on a fresh registry with the standard Go
// and process collectors attached.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Extraction dispatches by outcome.",
		}, []string{"outcome"}),
		dispatchSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "End-to-end dispatch duration.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		llmRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Model completions by provider and outcome.",
		}, []string{"provider", "outcome"}),
		llmTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Tokens exchanged with providers by direction.",
		}, []string{"provider", "direction"}),
		rejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_rejections_total",
			Help:      "Dispatches rejected by per-mapping rate limits.",
		}),
	}
}

// ObserveDispatch records one dispatch with its outcome and duration.
func (m *Metrics) ObserveDispatch(outcome string, elapsed time.Duration) {
	m.dispatches.WithLabelValues(outcome).Inc()
	m.dispatchSeconds.Observe(elapsed.Seconds())
}

// RecordLLMRequest counts one provider completion attempt.
func (m *Metrics) RecordLLMRequest(provider, outcome string) {
	m.llmRequests.WithLabelValues(provider, outcome).Inc()
}

// AddLLMTokens accumulates token usage reported by a provider.
func (m *Metrics) AddLLMTokens(provider string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		m.llmTokens.WithLabelValues(provider, DirectionPrompt).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokens.WithLabelValues(provider, DirectionCompletion).Add(float64(completionTokens))
	}
}

// RecordRateLimitRejection counts one rejected dispatch.
func (m *Metrics) RecordRateLimitRejection() {
	m.rejections.Inc()
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the scrape handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server serves /metrics on its own port, apart from the API listener.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer builds the scrape server for the given port.
func NewServer(m *Metrics, port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start begins listening in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("metrics server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server error", "error", err)
		}
	}()
}

// Shutdown stops the scrape server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
