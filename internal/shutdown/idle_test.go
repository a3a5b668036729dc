package shutdown

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestMonitor(timeout, interval time.Duration, exclude ...string) *IdleMonitor {
	return NewIdleMonitor(IdleConfig{
		Timeout:       timeout,
		CheckInterval: interval,
		ExcludePaths:  exclude,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func shutdownSignaled(m *IdleMonitor, within time.Duration) bool {
	select {
	case <-m.ShutdownChan():
		return true
	case <-time.After(within):
		return false
	}
}

func TestIdleMonitorSignalsAfterTimeout(t *testing.T) {
	m := newTestMonitor(30*time.Millisecond, 10*time.Millisecond)
	m.Start()

	if !shutdownSignaled(m, 500*time.Millisecond) {
		t.Fatal("shutdown channel not closed after idle timeout")
	}
}

func TestIdleMonitorActivityResetsClock(t *testing.T) {
	m := newTestMonitor(60*time.Millisecond, 10*time.Millisecond)
	m.Start()
	defer m.Stop()

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Keep touching the monitor for longer than the timeout.
	deadline := time.Now().Add(120 * time.Millisecond)
	for time.Now().Before(deadline) {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/extractors", nil))
		time.Sleep(15 * time.Millisecond)
	}

	select {
	case <-m.ShutdownChan():
		t.Fatal("shutdown signaled despite steady activity")
	default:
	}
}

func TestIdleMonitorInFlightRequestBlocksShutdown(t *testing.T) {
	m := newTestMonitor(30*time.Millisecond, 10*time.Millisecond)
	m.Start()
	defer m.Stop()

	release := make(chan struct{})
	served := make(chan struct{})
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(served)
		<-release
	}))

	go handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/test-url", nil))
	<-served

	if shutdownSignaled(m, 100*time.Millisecond) {
		t.Fatal("shutdown signaled while a request was in flight")
	}
	close(release)
}

func TestIdleMonitorExcludedPathsDoNotCountAsActivity(t *testing.T) {
	m := newTestMonitor(40*time.Millisecond, 10*time.Millisecond, "/healthz")
	m.Start()

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Health probes alone must not keep the instance alive.
	go func() {
		for i := 0; i < 20; i++ {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))
			time.Sleep(10 * time.Millisecond)
		}
	}()

	if !shutdownSignaled(m, 500*time.Millisecond) {
		t.Fatal("shutdown not signaled despite only excluded-path traffic")
	}
}

func TestIdleMonitorDisabled(t *testing.T) {
	m := newTestMonitor(0, 10*time.Millisecond)
	m.Start()
	m.Stop()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if got := m.Middleware(inner); got == nil {
		t.Fatal("Middleware() = nil")
	}

	select {
	case <-m.ShutdownChan():
		t.Fatal("disabled monitor signaled shutdown")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestIdleMonitorStopPreventsSignal(t *testing.T) {
	m := newTestMonitor(20*time.Millisecond, 5*time.Millisecond)
	m.Start()
	m.Stop()

	if shutdownSignaled(m, 80*time.Millisecond) {
		t.Fatal("shutdown signaled after Stop()")
	}
}
