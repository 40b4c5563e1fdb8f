package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	// Server settings
	ServerPort      string
	FrontendURL     string
	HealthcheckPath string
	RequestTimeout  time.Duration

	// Database settings
	DatabasePath string
	DBLogLevel   string

	// OpenTelemetry settings
	OTLPEndpoint string
	ServiceName  string
	Environment  string
}

// Load returns configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "4000"),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:3000"),
		HealthcheckPath: getEnv("HEALTHCHECK_PATH", "/health"),
		RequestTimeout:  getDuration("REQUEST_TIMEOUT", 60*time.Second),
		DatabasePath:    getEnv("DATABASE_PATH", "data/todos.db"),
		DBLogLevel:      getEnv("DB_LOG_LEVEL", "warn"),
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceName:     getEnv("OTEL_SERVICE_NAME", "to-do-backend"),
		Environment:     getEnv("ENVIRONMENT", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go durations ("30s") or plain seconds ("30").
func getDuration(key string, defaultValue time.Duration) time.Duration {
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
