// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/harvest-api/internal/constants"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Host    string
	Port    int
	BaseURL string

	// Database
	DatabaseURL string

	// CORS
	AllowedOrigins []string

	// Metrics
	EnableMetrics bool
	MetricsPort   int

	// LLM provider credentials
	OpenAIAPIKey     string
	OpenRouterAPIKey string
	AnthropicAPIKey  string
	OllamaBaseURL    string

	// Strategy execution
	StrategyTimeout          time.Duration
	MaxParallelSubstrategies int
	StrategiesDir            string // optional dir of YAML strategy definitions
	ClassifierConfig         string // optional path overriding the embedded classifier keywords
	MaxContentLength         int
	LLMMaxRetries            int
	LLMRetryDelay            time.Duration

	// Content fetching
	FetchTimeout time.Duration

	// Lifecycle
	IdleTimeout time.Duration // 0 disables idle shutdown
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Host:    getEnv("HOST", "0.0.0.0"),
		Port:    getEnvInt("PORT", 4000),
		BaseURL: getEnv("BASE_URL", ""),

		DatabaseURL: getEnv("DATABASE_URL", "file:url_configurations.db?_journal=WAL&_timeout=5000"),

		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),

		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		MetricsPort:   getEnvInt("METRICS_PORT", 8001),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),

		StrategyTimeout:          getEnvDuration("STRATEGY_TIMEOUT", constants.DefaultStrategyTimeout),
		MaxParallelSubstrategies: getEnvInt("MAX_PARALLEL_SUBSTRATEGIES", constants.DefaultMaxParallelSubstrategies),
		StrategiesDir:            getEnv("STRATEGIES_DIR", ""),
		ClassifierConfig:         getEnv("CLASSIFIER_CONFIG", ""),
		MaxContentLength:         getEnvInt("MAX_CONTENT_LENGTH", constants.DefaultMaxContentLength),
		LLMMaxRetries:            getEnvInt("LLM_MAX_RETRIES", constants.DefaultMaxRetries),
		LLMRetryDelay:            getEnvDuration("LLM_RETRY_DELAY", constants.DefaultRetryDelay),

		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", constants.DefaultFetchTimeout),

		IdleTimeout: getEnvDuration("IDLE_TIMEOUT", 0),
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that the loaded configuration is usable.
func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		return fmt.Errorf("METRICS_PORT must be between 1 and 65535, got %d", c.MetricsPort)
	}
	if c.EnableMetrics && c.MetricsPort == c.Port {
		return fmt.Errorf("METRICS_PORT must differ from PORT, both are %d", c.Port)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if c.StrategyTimeout <= 0 {
		return fmt.Errorf("STRATEGY_TIMEOUT must be positive, got %s", c.StrategyTimeout)
	}
	if c.MaxParallelSubstrategies < 1 {
		return fmt.Errorf("MAX_PARALLEL_SUBSTRATEGIES must be at least 1, got %d", c.MaxParallelSubstrategies)
	}
	if c.MaxContentLength < 1 {
		return fmt.Errorf("MAX_CONTENT_LENGTH must be positive, got %d", c.MaxContentLength)
	}
	if c.LLMMaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES must not be negative, got %d", c.LLMMaxRetries)
	}
	if c.LLMRetryDelay < 0 {
		return fmt.Errorf("LLM_RETRY_DELAY must not be negative, got %s", c.LLMRetryDelay)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout)
	}
	return nil
}

// getEnv returns the env var value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the env var as an int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the env var as a bool or a default.
// Accepts true/1/yes (case-insensitive) as true, anything else as false.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true
		default:
			return false
		}
	}
	return defaultValue
}

// getEnvDuration returns the env var as a duration or a default.
// Accepts Go duration strings ("90s", "2m") and bare integers, which are
// read as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvSlice returns the env var as a comma-separated slice or a default.
func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
