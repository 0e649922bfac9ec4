// Package config defines all configuration structures for the
// KeyGap-Intelligence platform.  No I/O or parsing logic lives here, only
// plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP API server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ProviderConfig holds the ranking provider (DataForSEO Labs) connection and
// retry parameters.
type ProviderConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	Login            string        `mapstructure:"login"`
	Password         string        `mapstructure:"password"`
	Timeout          time.Duration `mapstructure:"timeout"`
	UserAgent        string        `mapstructure:"user_agent"`
	PageSize         int           `mapstructure:"page_size"`
	MaxRetryAttempts int           `mapstructure:"max_retry_attempts"`
	InitialBackoff   time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff       time.Duration `mapstructure:"max_backoff"`
	RateLimitRPS     float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst   int           `mapstructure:"rate_limit_burst"`
}

// AnalysisConfig holds the defaults applied to every gap analysis request.
type AnalysisConfig struct {
	LocationCode       int           `mapstructure:"location_code"`
	LanguageCode       string        `mapstructure:"language_code"`
	KeywordLimit       int           `mapstructure:"keyword_limit"`
	WeakPositionMargin int           `mapstructure:"weak_position_margin"`
	FetchConcurrency   int           `mapstructure:"fetch_concurrency"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects the snapshot persistence backend.
type StorageConfig struct {
	Backend   string        `mapstructure:"backend"` // "redis" | "postgres" | "minio" | "memory"
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// KafkaConfig holds Apache Kafka producer/consumer parameters.
type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	GroupID     string   `mapstructure:"group_id"`
	TimeoutMS   int      `mapstructure:"timeout_ms"`
	Concurrency int      `mapstructure:"concurrency"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Provider ProviderConfig    `mapstructure:"provider"`
	Analysis AnalysisConfig    `mapstructure:"analysis"`
	Storage  StorageConfig     `mapstructure:"storage"`
	Redis    RedisConfig       `mapstructure:"redis"`
	Postgres PostgresConfig    `mapstructure:"postgres"`
	MinIO    MinIOConfig       `mapstructure:"minio"`
	Kafka    KafkaConfig       `mapstructure:"kafka"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Log      logging.LogConfig `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config and
// returns the first error encountered.  Provider credentials are not checked
// here; commands that never call the provider (show, serve with remote
// workers) must still start without them.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	if c.Provider.BaseURL == "" {
		return fmt.Errorf("config: provider.base_url is required")
	}
	if c.Provider.PageSize < 1 {
		return fmt.Errorf("config: provider.page_size must be ≥ 1, got %d", c.Provider.PageSize)
	}
	if c.Provider.MaxRetryAttempts < 1 {
		return fmt.Errorf("config: provider.max_retry_attempts must be ≥ 1, got %d", c.Provider.MaxRetryAttempts)
	}
	if c.Provider.RateLimitRPS <= 0 {
		return fmt.Errorf("config: provider.rate_limit_rps must be > 0, got %v", c.Provider.RateLimitRPS)
	}
	if c.Provider.RateLimitBurst < 1 {
		return fmt.Errorf("config: provider.rate_limit_burst must be ≥ 1, got %d", c.Provider.RateLimitBurst)
	}
	if c.Provider.MaxBackoff < c.Provider.InitialBackoff {
		return fmt.Errorf("config: provider.max_backoff %s is below provider.initial_backoff %s",
			c.Provider.MaxBackoff, c.Provider.InitialBackoff)
	}

	if c.Analysis.LocationCode < 1 {
		return fmt.Errorf("config: analysis.location_code must be ≥ 1, got %d", c.Analysis.LocationCode)
	}
	if c.Analysis.LanguageCode == "" {
		return fmt.Errorf("config: analysis.language_code is required")
	}
	if c.Analysis.KeywordLimit < 1 {
		return fmt.Errorf("config: analysis.keyword_limit must be ≥ 1, got %d", c.Analysis.KeywordLimit)
	}
	if c.Analysis.WeakPositionMargin < 0 {
		return fmt.Errorf("config: analysis.weak_position_margin must be ≥ 0, got %d", c.Analysis.WeakPositionMargin)
	}
	if c.Analysis.FetchConcurrency < 1 {
		return fmt.Errorf("config: analysis.fetch_concurrency must be ≥ 1, got %d", c.Analysis.FetchConcurrency)
	}

	switch c.Storage.Backend {
	case StorageRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required for the redis storage backend")
		}
	case StoragePostgres:
		if c.Postgres.Host == "" || c.Postgres.DBName == "" {
			return fmt.Errorf("config: postgres.host and postgres.db_name are required for the postgres storage backend")
		}
	case StorageMinIO:
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.endpoint and minio.bucket are required for the minio storage backend")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("config: storage.backend %q is invalid; expected redis|postgres|minio|memory", c.Storage.Backend)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
	}

	switch c.Log.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

//Personal.AI order the ending
