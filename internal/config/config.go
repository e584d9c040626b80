package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/variant-curation-server/internal/domain"
)

// EnvPrefix is the prefix of environment variable overrides, e.g. VCS_STORE_DRIVER.
const EnvPrefix = "VCS"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	configPaths []string
	config      *domain.Config
}

// NewManager creates a new configuration manager. Extra paths are searched for config.yaml
// before the defaults.
func NewManager(configPaths ...string) (*Manager, error) {
	m := &Manager{configPaths: configPaths}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// NewStaticManager wraps an already built configuration, such as the one derived from
// LiteConfig, without reading files or the environment.
func NewStaticManager(config *domain.Config) *Manager {
	return &Manager{config: config}
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	// Set configuration file name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range m.configPaths {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/variant-curation-server/")

	// Set environment variable prefix and enable automatic env binding
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults registers a default for every key so env overrides bind during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Store defaults
	v.SetDefault("store.driver", domain.StoreDriverPostgres)
	v.SetDefault("store.sqlite_path", "./data/variants.db")
	v.SetDefault("store.run_migrations", true)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "variant_curation")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	// Cache defaults
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.default_ttl", "24h")
	v.SetDefault("cache.local_size", 1000)
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")

	// Annotation defaults
	v.SetDefault("annotation.provider", domain.AnnotationProviderEnsembl)
	v.SetDefault("annotation.base_url", "https://rest.ensembl.org")
	v.SetDefault("annotation.timeout", "30s")
	v.SetDefault("annotation.rate_limit", 15)
	v.SetDefault("annotation.max_failures", 3)
	v.SetDefault("annotation.breaker_timeout", "60s")
	v.SetDefault("annotation.strict", false)

	// Curation defaults
	v.SetDefault("curation.max_update_retries", 5)
	v.SetDefault("curation.retry_base_delay", "10ms")

	v.SetDefault("ledger.enabled", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.filename", "")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetStoreConfig returns store configuration
func (m *Manager) GetStoreConfig() *domain.StoreConfig {
	return &m.config.Store
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetAnnotationConfig returns annotation configuration
func (m *Manager) GetAnnotationConfig() *domain.AnnotationConfig {
	return &m.config.Annotation
}

// GetCacheConfig returns annotation cache configuration
func (m *Manager) GetCacheConfig() *domain.CacheConfig {
	return &m.config.Cache
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Validate store configuration
	switch config.Store.Driver {
	case domain.StoreDriverPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	case domain.StoreDriverSQLite:
		if config.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	case domain.StoreDriverMemory:
	default:
		return fmt.Errorf("invalid store driver: %s", config.Store.Driver)
	}

	// Validate annotation configuration
	switch config.Annotation.Provider {
	case domain.AnnotationProviderEnsembl:
		if config.Annotation.BaseURL == "" {
			return fmt.Errorf("annotation base URL is required")
		}
		if config.Annotation.RateLimit <= 0 {
			return fmt.Errorf("annotation rate limit must be positive: %d", config.Annotation.RateLimit)
		}
	case domain.AnnotationProviderNone:
	default:
		return fmt.Errorf("invalid annotation provider: %s", config.Annotation.Provider)
	}

	if config.Curation.MaxUpdateRetries < 0 {
		return fmt.Errorf("curation.max_update_retries must not be negative: %d", config.Curation.MaxUpdateRetries)
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetRedisConnectionString returns the Redis connection string
func (m *Manager) GetRedisConnectionString() string {
	return m.config.Cache.RedisURL
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

var _ domain.ConfigManager = (*Manager)(nil)
