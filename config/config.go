package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"mtgateway/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Terminal credentials. Opaque to the core; the selected terminal
	// adapter decides how to interpret them.
	Login    string
	Password string
	Server   string

	// Connection policy
	MaxRetries    int           // attempts per retry cycle
	Cooldown      time.Duration // delay between attempts
	BackoffFactor float64       // 1.0 keeps the spacing fixed

	// DryRun routes all terminal calls to the in-memory simulator instead of
	// the live adapter.
	DryRun bool

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string // Collect validation errors

	// Terminal credentials
	cfg.Login = getEnv("TERMINAL_LOGIN", "")
	cfg.Password = getEnv("TERMINAL_PASSWORD", "")
	cfg.Server = getEnv("TERMINAL_SERVER", "testnet")

	cfg.DryRun = getEnvAsBool("DRY_RUN", true) // Default to dry-run for safety
	if !cfg.DryRun {
		if cfg.Login == "" {
			errs = append(errs, "TERMINAL_LOGIN must be set when DRY_RUN is false")
		}
		if cfg.Password == "" {
			errs = append(errs, "TERMINAL_PASSWORD must be set when DRY_RUN is false")
		}
	}

	// Connection policy
	cfg.MaxRetries = getEnvAsInt("MAX_RETRIES", 3)
	if cfg.MaxRetries <= 0 {
		errs = append(errs, "MAX_RETRIES must be positive")
	}

	cooldownSeconds := getEnvAsFloat("COOLDOWN_SECONDS", 2.0)
	if cooldownSeconds <= 0 {
		errs = append(errs, "COOLDOWN_SECONDS must be positive")
	}
	cfg.Cooldown = time.Duration(cooldownSeconds * float64(time.Second))

	cfg.BackoffFactor = getEnvAsFloat("BACKOFF_FACTOR", 1.0)
	if cfg.BackoffFactor < 1.0 {
		errs = append(errs, "BACKOFF_FACTOR must be >= 1.0")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/trade_journal.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Log warning? For non-required fields, default is often acceptable.
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
