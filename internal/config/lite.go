// Package config provides configuration management for the curation servers.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/variant-curation-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases: aggregates and the ledger live in one SQLite file.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for data files

	// Cache settings
	CacheMaxItems int           // Maximum items in memory cache
	CacheTTL      time.Duration // Default cache TTL

	// Annotation settings
	AnnotationProvider string // ensembl, none
	AnnotationBaseURL  string

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".variant-curation")

	return &LiteConfig{
		DataDir:            dataDir,
		CacheMaxItems:      1000,
		CacheTTL:           24 * time.Hour,
		AnnotationProvider: domain.AnnotationProviderEnsembl,
		AnnotationBaseURL:  "https://rest.ensembl.org",
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	// Data directory
	if v := os.Getenv("VCS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Cache settings
	if v := os.Getenv("VCS_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("VCS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	// Annotation
	if v := os.Getenv("VCS_ANNOTATION_PROVIDER"); v != "" {
		cfg.AnnotationProvider = v
	}
	if v := os.Getenv("VCS_ANNOTATION_BASE_URL"); v != "" {
		cfg.AnnotationBaseURL = v
	}

	// Logging
	if v := os.Getenv("VCS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("VCS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// StoreDBPath returns the path to the SQLite database holding aggregates and the ledger.
func (c *LiteConfig) StoreDBPath() string {
	return filepath.Join(c.DataDir, "variants.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}

// Config expands the lite settings into a full configuration: SQLite store, in-process
// annotation cache only, and logs on stderr so stdout stays free for the MCP transport.
func (c *LiteConfig) Config() *domain.Config {
	return &domain.Config{
		Environment: "development",
		Store: domain.StoreConfig{
			Driver:     domain.StoreDriverSQLite,
			SQLitePath: c.StoreDBPath(),
		},
		Cache: domain.CacheConfig{
			DefaultTTL: c.CacheTTL,
			LocalSize:  c.CacheMaxItems,
		},
		Annotation: domain.AnnotationConfig{
			Provider:       c.AnnotationProvider,
			BaseURL:        c.AnnotationBaseURL,
			Timeout:        30 * time.Second,
			RateLimit:      15,
			MaxFailures:    3,
			BreakerTimeout: 60 * time.Second,
		},
		Curation: domain.CurationConfig{
			MaxUpdateRetries: 5,
			RetryBaseDelay:   10 * time.Millisecond,
		},
		Ledger: domain.LedgerConfig{Enabled: true},
		Logging: domain.LoggingConfig{
			Level:  c.LogLevel,
			Format: c.LogFormat,
			Output: "stderr",
		},
	}
}
