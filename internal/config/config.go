// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Dataset
	DatasetPath      string // CSV of scored transactions from the scoring pipeline
	AttributionsPath string // CSV of per-transaction feature attributions (optional)

	// Review settings
	DefaultThreshold float64 // initial fraud decision threshold
	ExplanationTopK  int     // features returned per explanation

	// Rate limiting
	RateLimitRPM int

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint for traces (optional)
}

// Defaults
const (
	DefaultPort      = "8080"
	DefaultEnv       = "development"
	DefaultLogLevel  = "info"
	DefaultThreshold = 0.5
	DefaultTopK      = 5
	DefaultRateLimit = 120
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", DefaultPort),
		Env:              getEnv("ENV", DefaultEnv),
		LogLevel:         getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:      os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		DatasetPath:      getEnv("DATASET_PATH", "data/fraud_data.csv"),
		AttributionsPath: os.Getenv("ATTRIBUTIONS_PATH"),
		DefaultThreshold: getEnvFloat("DEFAULT_THRESHOLD", DefaultThreshold),
		ExplanationTopK:  int(getEnvInt64("EXPLANATION_TOP_K", DefaultTopK)),
		RateLimitRPM:     int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimit)),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.DatasetPath == "" {
		return fmt.Errorf("DATASET_PATH is required")
	}
	if c.DefaultThreshold < 0 || c.DefaultThreshold > 1 {
		return fmt.Errorf("DEFAULT_THRESHOLD must be in [0,1], got %v", c.DefaultThreshold)
	}
	if c.ExplanationTopK < 1 {
		return fmt.Errorf("EXPLANATION_TOP_K must be at least 1")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
