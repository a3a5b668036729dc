// Package worker runs background maintenance for the service.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/harvest-api/internal/ratelimit"
)

// Worker prunes expired rate-limit windows on a fixed interval.
type Worker struct {
	ledger   *ratelimit.Ledger
	interval time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// Config holds worker configuration.
type Config struct {
	Interval time.Duration
}

// New creates a maintenance worker. A zero interval defaults to the
// ledger's window length.
func New(ledger *ratelimit.Ledger, cfg Config, logger *slog.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = ledger.Window()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		ledger:   ledger,
		interval: cfg.Interval,
		stop:     make(chan struct{}),
		logger:   logger.With("component", "worker"),
	}
}

// Start begins the maintenance loop.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting", "interval", w.interval)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.logger.Info("stopping")
	close(w.stop)
	w.wg.Wait()
	w.logger.Info("stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *Worker) sweep() {
	if n := w.ledger.Sweep(); n > 0 {
		w.logger.Debug("pruned rate limit windows", "removed", n)
	}
}
