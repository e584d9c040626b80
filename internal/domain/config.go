package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Store       StoreConfig      `mapstructure:"store"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Annotation  AnnotationConfig `mapstructure:"annotation"`
	Curation    CurationConfig   `mapstructure:"curation"`
	Ledger      LedgerConfig     `mapstructure:"ledger"`
	Logging     LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

// StoreConfig selects the aggregate store implementation
type StoreConfig struct {
	Driver        string `mapstructure:"driver"` // "postgres", "sqlite", "memory"
	SQLitePath    string `mapstructure:"sqlite_path"`
	RunMigrations bool   `mapstructure:"run_migrations"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CacheConfig represents annotation cache configuration
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"` // empty disables the shared tier
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	LocalSize   int           `mapstructure:"local_size"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// Annotation providers
const (
	AnnotationProviderEnsembl = "ensembl"
	AnnotationProviderNone    = "none"
)

// AnnotationConfig configures the transcript annotator
type AnnotationConfig struct {
	Provider       string        `mapstructure:"provider"` // "ensembl", "none"
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      int           `mapstructure:"rate_limit"`
	MaxFailures    uint32        `mapstructure:"max_failures"`
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout"`
	Strict         bool          `mapstructure:"strict"`
}

// CurationConfig tunes the curation service
type CurationConfig struct {
	MaxUpdateRetries int           `mapstructure:"max_update_retries"`
	RetryBaseDelay   time.Duration `mapstructure:"retry_base_delay"`
}

// LedgerConfig configures the submission ledger
type LedgerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}
