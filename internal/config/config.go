package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the settings shared by the API server and the reconcile
// worker, populated from environment variables.
type Config struct {
	DatabaseURL      string
	ServerPort       string
	BaseURL          string
	FrontendURL      string
	EnableHSTS       bool
	OIDCProvider     string
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
	LogFormat        string
	OTELEnabled      bool
	OTELEndpoint     string
}

// Load reads configuration from the environment. DATABASE_URL and
// RABBITMQ_URL have no usable defaults and must be set.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		ServerPort:       envOr("SERVER_PORT", "8080"),
		BaseURL:          envOr("BASE_URL", "http://localhost:8080"),
		FrontendURL:      envOr("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:       envBool("ENABLE_HSTS"),
		OIDCProvider:     envOr("OIDC_PROVIDER", "cognito"),
		RedisURL:         envOr("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		RabbitMQPrefetch: envInt("RABBITMQ_PREFETCH", 1),
		WorkerDebugMode:  envBool("WORKER_DEBUG_MODE"),
		ServerDebugMode:  envBool("SERVER_DEBUG_MODE"),
		LogFormat:        envOr("LOG_FORMAT", "json"),
		OTELEnabled:      envBool("OTEL_ENABLED"),
		OTELEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required for job queueing (profile reconciliation runs through RabbitMQ)")
	}
	if c.RabbitMQPrefetch < 1 {
		return fmt.Errorf("RABBITMQ_PREFETCH must be at least 1, got %d", c.RabbitMQPrefetch)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envBool treats "true", "1" and "yes" as true; anything else, including
// an unset variable, is false.
func envBool(key string) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
