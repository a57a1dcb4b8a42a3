// Package config loads tool configuration from config/.env and the process
// environment, with compiled-in defaults for everything else.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for a creative-int run.
type Config struct {
	// Platform credentials
	Username string
	Password string

	// Platform endpoint
	BaseURL string

	// Upload behavior
	DryRun       bool // Simulate uploads without attaching files (default: true)
	Force        bool // Re-upload even when a creative ID is already recorded
	Limit        int  // Per-kind candidate cap for testing runs (0 = no limit)
	MaxBatchSize int  // Files per submitted batch
	MaxRetries   int  // Total submission attempts per batch

	// Timing
	RequestTimeout time.Duration // Per-request timeout on the platform client
	PollInterval   time.Duration // Processing poll interval
	PerFileTimeout time.Duration // Processing wait budget per file in a batch
	SettleDelay    time.Duration // Extra wait after processing completes, before the post snapshot

	// Proxy settings
	ProxyMode     string // "no-proxy", "system", "basic", "ntlm"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // Comma-separated bypass list

	// Logging
	Verbose bool
}

// Defaults returns a Config with the compiled-in default values.
func Defaults() *Config {
	return &Config{
		BaseURL:        "https://advertiser.trafficjunky.com",
		DryRun:         true,
		MaxBatchSize:   10,
		MaxRetries:     3,
		RequestTimeout: 30 * time.Second,
		PollInterval:   2 * time.Second,
		PerFileTimeout: 30 * time.Second,
		SettleDelay:    5 * time.Second,
		ProxyMode:      "no-proxy",
	}
}

// Load builds a Config from defaults overlaid with config/.env (if present
// under basePath) and the process environment. Environment variables win over
// the .env file; CLI flags are applied by the caller on top of the result.
func Load(basePath string) (*Config, error) {
	cfg := Defaults()

	envFile := filepath.Join(basePath, "config", ".env")
	if _, err := os.Stat(envFile); err == nil {
		// godotenv.Load does not override variables already set in the
		// process environment, which is the precedence we want.
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg.Username = getEnv("TJ_USERNAME", cfg.Username)
	cfg.Password = getEnv("TJ_PASSWORD", cfg.Password)
	cfg.BaseURL = strings.TrimSuffix(getEnv("TJ_BASE_URL", cfg.BaseURL), "/")

	cfg.DryRun = getEnvBool("DRY_RUN", cfg.DryRun)
	cfg.MaxBatchSize = getEnvInt("BATCH_SIZE", cfg.MaxBatchSize)
	cfg.MaxRetries = getEnvInt("MAX_RETRIES", cfg.MaxRetries)

	if ms := getEnvInt("TIMEOUT", 0); ms > 0 {
		cfg.RequestTimeout = time.Duration(ms) * time.Millisecond
	}

	cfg.ProxyMode = getEnv("PROXY_MODE", cfg.ProxyMode)
	cfg.ProxyHost = getEnv("PROXY_HOST", cfg.ProxyHost)
	cfg.ProxyPort = getEnvInt("PROXY_PORT", cfg.ProxyPort)
	cfg.ProxyUser = getEnv("PROXY_USER", cfg.ProxyUser)
	cfg.ProxyPassword = getEnv("PROXY_PASSWORD", cfg.ProxyPassword)
	cfg.NoProxy = getEnv("NO_PROXY", cfg.NoProxy)

	if cfg.MaxBatchSize < 1 {
		return nil, fmt.Errorf("BATCH_SIZE must be at least 1, got %d", cfg.MaxBatchSize)
	}
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("MAX_RETRIES must be at least 1, got %d", cfg.MaxRetries)
	}

	return cfg, nil
}

// HasCredentials reports whether both platform credentials are set.
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}
