// Package config provides configuration management for meepoo.
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

// Config holds everything needed to reach the model and run the tool.
type Config struct {
	// BaseURL is the root of the OpenAI-compatible server, without the
	// /v1/chat/completions suffix (e.g., "http://localhost:1234").
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Model is the model identifier. Empty means the client default.
	Model string

	// DataDir is the directory for persistent data (history DB, config file).
	DataDir string

	// DatabasePath is the full path to the SQLite history database.
	DatabasePath string

	// History turns recording of generated texts on or off.
	History bool

	// ServerAddr is the address `meepoo serve` listens on (e.g., ":7090").
	ServerAddr string

	// Concurrency bounds parallel per-file summary requests.
	Concurrency int

	// Timeout bounds one whole CLI invocation. Zero disables it.
	Timeout time.Duration

	// LogLevel is a zerolog level name.
	LogLevel string
}

// Load creates a Config from the config file and environment variables.
// Values are resolved in order: environment variable > config file > default.
func Load() (*Config, error) {
	// godotenv.Load never overrides variables that are already set, so the
	// environment wins over the file.
	if path := FilePath(); fileExists(path) {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	dataDir := envOr("MEEPOO_DATA_DIR", DefaultDataDir())

	cfg := &Config{
		BaseURL:      strings.TrimRight(envOr("MEEPOO_BASE_URL", "http://localhost:1234"), "/"),
		APIKey:       os.Getenv("MEEPOO_API_KEY"),
		Model:        os.Getenv("MEEPOO_MODEL"),
		DataDir:      dataDir,
		DatabasePath: filepath.Join(dataDir, "history.db"),
		History:      envOrBool("MEEPOO_HISTORY", true),
		ServerAddr:   envOr("MEEPOO_ADDR", ":7090"),
		Concurrency:  envOrInt("MEEPOO_CONCURRENCY", 4),
		Timeout:      envOrDuration("MEEPOO_TIMEOUT", 2*time.Minute),
		LogLevel:     envOr("MEEPOO_LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Validate checks that the configuration can be used.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("MEEPOO_BASE_URL is required")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("MEEPOO_CONCURRENCY must be at least 1, got %d", c.Concurrency)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("MEEPOO_TIMEOUT must not be negative, got %s", c.Timeout)
	}
	return nil
}

// EnsureDataDir creates DataDir if needed.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// FilePath returns the config file location, honouring MEEPOO_DATA_DIR.
func FilePath() string {
	return filepath.Join(envOr("MEEPOO_DATA_DIR", DefaultDataDir()), "config.env")
}

// DefaultDataDir returns ~/.meepoo, or .meepoo when there is no home directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".meepoo"
	}
	return filepath.Join(home, ".meepoo")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
