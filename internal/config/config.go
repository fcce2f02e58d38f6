// Package config provides configuration management for the backtesting engine.
//
// Configuration Loading Order:
// 1. Load from .env file (if present)
// 2. Read environment variables with defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration for the backtest CLI and its
// providers/cache.
type Config struct {
	CacheDir           string  // Base directory for the dual-format price/dividend cache
	LogLevel           string  // Log level (debug, info, warn, error)
	LockTimeoutSec     int     // Cache file-lock acquisition timeout, in seconds
	DefaultRiskFreePct float64 // Flat annual risk-free rate in percent, used when no rate is given on the command line
	RunStorePath       string  // sqlite path for optional --save-run persistence
	DevMode            bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cacheDir := getEnv("SDBACKTEST_CACHE_DIR", "")
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "sdbacktest-cache")
	}
	absCacheDir, err := filepath.Abs(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	if err := os.MkdirAll(absCacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cfg := &Config{
		CacheDir:           absCacheDir,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LockTimeoutSec:     getEnvAsInt("SDBACKTEST_LOCK_TIMEOUT_SEC", 30),
		DefaultRiskFreePct: getEnvAsFloat("SDBACKTEST_RISK_FREE_PCT", 0.0),
		RunStorePath:       getEnv("SDBACKTEST_RUN_STORE", filepath.Join(absCacheDir, "runs.sqlite")),
		DevMode:            getEnvAsBool("DEV_MODE", false),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
