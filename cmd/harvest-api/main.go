// Package main is the entry point for the harvest-api server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/jmylchreest/harvest-api/internal/config"
	"github.com/jmylchreest/harvest-api/internal/constants"
	"github.com/jmylchreest/harvest-api/internal/database"
	"github.com/jmylchreest/harvest-api/internal/extract"
	"github.com/jmylchreest/harvest-api/internal/fetcher"
	"github.com/jmylchreest/harvest-api/internal/http/handlers"
	"github.com/jmylchreest/harvest-api/internal/http/mw"
	"github.com/jmylchreest/harvest-api/internal/http/routes"
	"github.com/jmylchreest/harvest-api/internal/llm"
	"github.com/jmylchreest/harvest-api/internal/logging"
	"github.com/jmylchreest/harvest-api/internal/metrics"
	"github.com/jmylchreest/harvest-api/internal/ratelimit"
	"github.com/jmylchreest/harvest-api/internal/repository"
	"github.com/jmylchreest/harvest-api/internal/service"
	"github.com/jmylchreest/harvest-api/internal/shutdown"
	"github.com/jmylchreest/harvest-api/internal/version"
	"github.com/jmylchreest/harvest-api/internal/worker"
)

func main() {
	// Initialize logger with TTY detection, source paths, and format control
	logger := logging.SetDefault()

	// Log version info first thing
	v := version.Get()
	logger.Info("starting harvest-api",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// Run migrations (with logging for each migration applied)
	if err := database.Migrate(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Log current schema version
	if applied, err := database.GetAppliedMigrations(db); err != nil {
		logger.Warn("failed to get schema version", "error", err)
	} else if len(applied) > 0 {
		logger.Info("database schema ready",
			"schema_version", applied[len(applied)-1].Timestamp,
			"migrations_applied", len(applied),
		)
	}

	// Initialize repositories
	repos := repository.NewRepositories(db, logger)

	// Metrics registry; provider clients report through it
	m := metrics.New()

	// Content classifier, optionally overridden from a keyword file
	classifier := extract.NewClassifier()
	if cfg.ClassifierConfig != "" {
		classifier, err = extract.NewClassifierFromFile(cfg.ClassifierConfig)
		if err != nil {
			logger.Error("failed to load classifier config", "path", cfg.ClassifierConfig, "error", err)
			os.Exit(1)
		}
		logger.Info("classifier config loaded", "path", cfg.ClassifierConfig)
	}

	// Strategy registry and factory
	registry := extract.NewRegistry(logger)
	factory := extract.NewFactory(registry, extract.FactoryOptions{
		Clients: m.InstrumentClients(llm.New),
		Credentials: extract.Credentials{
			OpenAIAPIKey:     cfg.OpenAIAPIKey,
			OpenRouterAPIKey: cfg.OpenRouterAPIKey,
			AnthropicAPIKey:  cfg.AnthropicAPIKey,
			OllamaBaseURL:    cfg.OllamaBaseURL,
		},
		Defaults: extract.Defaults{
			StrategyTimeout:  cfg.StrategyTimeout,
			MaxRetries:       cfg.LLMMaxRetries,
			RetryDelay:       cfg.LLMRetryDelay,
			MaxContentLength: cfg.MaxContentLength,
			MaxParallel:      cfg.MaxParallelSubstrategies,
		},
		Classifier: classifier,
		Logger:     logger,
	})
	registry.AddLoader(extract.BuiltinLoader(factory))
	if cfg.StrategiesDir != "" {
		registry.AddLoader(extract.DirLoader(factory, cfg.StrategiesDir))
	}
	strategyCount, err := registry.Reload()
	if err != nil {
		logger.Error("failed to load strategies", "error", err)
		os.Exit(1)
	}
	logger.Info("strategy registry loaded", "strategies", strategyCount, "strategies_dir", cfg.StrategiesDir)

	// Dispatch infrastructure
	ledger := ratelimit.NewLedger(constants.RateLimitWindow)
	pages := fetcher.New(fetcher.Config{
		Timeout:     cfg.FetchTimeout,
		MaxBodySize: constants.MaxFetchBodySize,
	}, logger)

	// Initialize services
	services := service.NewServices(repos, factory, ledger, m, pages, logger)

	// Background maintenance: prune expired rate-limit windows
	maintenance := worker.New(ledger, worker.Config{}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	maintenance.Start(ctx)

	// Metrics scrape server on its own port
	var metricsServer *metrics.Server
	if cfg.EnableMetrics {
		metricsServer = metrics.NewServer(m, cfg.MetricsPort, logger)
		metricsServer.Start()
	}

	// Idle monitor for scale-to-zero deployments; probes don't count as
	// activity
	idle := shutdown.NewIdleMonitor(shutdown.IdleConfig{
		Timeout:      cfg.IdleTimeout,
		ExcludePaths: []string{"/healthz", "/readyz"},
		Logger:       logger,
	})
	idle.Start()

	// Create router. Unknown paths and wrong verbs share the API error body.
	router := chi.NewRouter()
	router.NotFound(handlers.NotFound)
	router.MethodNotAllowed(handlers.MethodNotAllowed)

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	// Request timeout middleware with different timeouts per endpoint type
	router.Use(mw.Timeout(mw.TimeoutConfig{
		Default:  constants.DefaultRequestTimeout,
		Extended: constants.LLMRequestTimeout,
		// Extraction tests run a page fetch plus inference
		ExtendedPatterns: []string{"/test-url"},
	}))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "X-API-Version", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Request size limit (1MB) - prevent large payload attacks
	router.Use(middleware.RequestSize(1 * 1024 * 1024))

	// Global rate limit by IP
	router.Use(httprate.LimitByIP(100, time.Minute))

	// Global concurrency throttle - prevent system overload
	router.Use(middleware.Throttle(100))

	router.Use(mw.APIVersion())
	router.Use(idle.Middleware)

	// Huma API with OpenAPI docs
	api := humachi.New(router, routes.NewHumaConfig(cfg.BaseURL))
	routes.Register(api, &routes.Handlers{
		HealthCheck:       handlers.NewHealthHandler(db).HealthCheck,
		Livez:             handlers.Livez,
		Readyz:            handlers.NewReadyzHandler(db).Readyz,
		Extractors:        handlers.NewExtractorHandler(services.Extractors),
		TestURL:           handlers.NewTestURLHandler(services.TestURL),
		URLConfigurations: handlers.NewURLConfigurationHandler(repos.URLConfigurations, logger),
		URLMappings:       handlers.NewURLMappingHandler(repos.URLMappings, repos.URLConfigurations, logger),
	})

	// Create server. The write timeout must outlast the extended request
	// timeout or long extractions get cut off mid-response.
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: constants.LLMRequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on signal or idle timeout
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		select {
		case sig := <-sigChan:
			logger.Info("shutting down server", "signal", sig.String())
		case <-idle.ShutdownChan():
			logger.Info("shutting down server", "reason", "idle timeout")
		}

		// Stop background work first
		cancel()
		maintenance.Stop()
		idle.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown error", "error", err)
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	// Start server
	logger.Info("starting server", "addr", server.Addr, "base_url", cfg.BaseURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
