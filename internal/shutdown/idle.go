// Package shutdown provides idle monitoring for scale-to-zero deployments.
package shutdown

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// IdleMonitor tracks request activity and closes its shutdown channel once
// the server has been idle for the configured timeout. Platforms like Fly.io
// use this to stop machines that receive no traffic.
type IdleMonitor struct {
	timeout       time.Duration
	checkInterval time.Duration
	logger        *slog.Logger

	mu           sync.Mutex
	active       int
	lastActivity time.Time

	shutdownChan chan struct{}
	stopChan     chan struct{}

	// excludePaths don't count as activity, so health probes can't keep
	// an otherwise idle instance alive.
	excludePaths []string
}

// IdleConfig holds idle monitor configuration.
type IdleConfig struct {
	// Timeout is how long the server may be idle before shutdown is
	// signaled. Zero disables the monitor.
	Timeout time.Duration
	// CheckInterval overrides how often idleness is evaluated. When zero
	// it derives from Timeout.
	CheckInterval time.Duration
	ExcludePaths  []string
	Logger        *slog.Logger
}

// NewIdleMonitor creates an idle monitor.
func NewIdleMonitor(cfg IdleConfig) *IdleMonitor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = cfg.Timeout / 6
		if interval < time.Second {
			interval = time.Second
		}
		if interval > 30*time.Second {
			interval = 30 * time.Second
		}
	}
	return &IdleMonitor{
		timeout:       cfg.Timeout,
		checkInterval: interval,
		logger:        cfg.Logger,
		lastActivity:  time.Now(),
		shutdownChan:  make(chan struct{}),
		stopChan:      make(chan struct{}),
		excludePaths:  cfg.ExcludePaths,
	}
}

// Start begins monitoring. With a zero timeout it does nothing.
func (m *IdleMonitor) Start() {
	if m.timeout <= 0 {
		m.logger.Debug("idle monitoring disabled")
		return
	}
	m.logger.Info("idle monitoring started", "timeout", m.timeout, "exclude_paths", m.excludePaths)
	go m.run()
}

// Stop stops the monitor without signaling shutdown.
func (m *IdleMonitor) Stop() {
	if m.timeout <= 0 {
		return
	}
	close(m.stopChan)
}

// ShutdownChan is closed when the idle timeout is reached.
func (m *IdleMonitor) ShutdownChan() <-chan struct{} {
	return m.shutdownChan
}

// Middleware tracks request activity. Requests to excluded path prefixes
// pass through without touching the idle clock.
func (m *IdleMonitor) Middleware(next http.Handler) http.Handler {
	if m.timeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.excluded(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		m.begin()
		defer m.end()
		next.ServeHTTP(w, r)
	})
}

func (m *IdleMonitor) excluded(path string) bool {
	for _, prefix := range m.excludePaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (m *IdleMonitor) begin() {
	m.mu.Lock()
	m.active++
	m.lastActivity = time.Now()
	m.mu.Unlock()
}

func (m *IdleMonitor) end() {
	m.mu.Lock()
	m.active--
	m.lastActivity = time.Now()
	m.mu.Unlock()
}

func (m *IdleMonitor) run() {
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			// Stop wins over a concurrently firing tick.
			select {
			case <-m.stopChan:
				return
			default:
			}

			m.mu.Lock()
			active := m.active
			if active > 0 {
				// In-flight requests keep the clock fresh so slow
				// responses get a full grace period afterwards.
				m.lastActivity = time.Now()
			}
			idle := time.Since(m.lastActivity)
			m.mu.Unlock()

			if active == 0 && idle >= m.timeout {
				m.logger.Info("idle timeout reached, signaling shutdown",
					"idle_time", idle,
					"timeout", m.timeout,
				)
				close(m.shutdownChan)
				return
			}

			m.logger.Debug("idle check", "idle_time", idle, "active_requests", active)
		}
	}
}
