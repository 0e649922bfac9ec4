package config

import (
	"time"

	"github.com/spf13/viper"
)

// Storage backend names accepted by storage.backend.
const (
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageMinIO    = "minio"
	StorageMemory   = "memory"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultServerWriteTimeout    = 5 * time.Minute
	DefaultServerShutdownTimeout = 15 * time.Second

	DefaultProviderBaseURL          = "https://api.dataforseo.com"
	DefaultProviderTimeout          = 60 * time.Second
	DefaultProviderUserAgent        = "keygap/1.0"
	DefaultProviderPageSize         = 100
	DefaultProviderMaxRetryAttempts = 3
	DefaultProviderInitialBackoff   = 500 * time.Millisecond
	DefaultProviderMaxBackoff       = 10 * time.Second
	DefaultProviderRateLimitRPS     = 2.0
	DefaultProviderRateLimitBurst   = 2

	DefaultLocationCode       = 2840 // United States
	DefaultLanguageCode       = "en"
	DefaultKeywordLimit       = 200
	DefaultWeakPositionMargin = 5
	DefaultFetchConcurrency   = 4
	DefaultAnalysisTimeout    = 5 * time.Minute

	DefaultStorageBackend   = StorageRedis
	DefaultStorageKeyPrefix = "keygap:"

	DefaultRedisAddr     = "localhost:6379"
	DefaultRedisPoolSize = 10

	DefaultPostgresHost     = "localhost"
	DefaultPostgresPort     = 5432
	DefaultPostgresDBName   = "keygap"
	DefaultPostgresMaxConns = 10

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "keygap-analyses"

	DefaultKafkaBroker      = "localhost:9092"
	DefaultKafkaGroupID     = "keygap-worker"
	DefaultKafkaTimeoutMS   = 10000
	DefaultKafkaConcurrency = 2

	DefaultMetricsNamespace = "keygap"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// registerDefaults seeds v with every key so that AutomaticEnv overrides are
// visible to Unmarshal even when no config file mentions the key.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.mode", DefaultServerMode)
	v.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	v.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)

	v.SetDefault("provider.base_url", DefaultProviderBaseURL)
	v.SetDefault("provider.login", "")
	v.SetDefault("provider.password", "")
	v.SetDefault("provider.timeout", DefaultProviderTimeout)
	v.SetDefault("provider.user_agent", DefaultProviderUserAgent)
	v.SetDefault("provider.page_size", DefaultProviderPageSize)
	v.SetDefault("provider.max_retry_attempts", DefaultProviderMaxRetryAttempts)
	v.SetDefault("provider.initial_backoff", DefaultProviderInitialBackoff)
	v.SetDefault("provider.max_backoff", DefaultProviderMaxBackoff)
	v.SetDefault("provider.rate_limit_rps", DefaultProviderRateLimitRPS)
	v.SetDefault("provider.rate_limit_burst", DefaultProviderRateLimitBurst)

	v.SetDefault("analysis.location_code", DefaultLocationCode)
	v.SetDefault("analysis.language_code", DefaultLanguageCode)
	v.SetDefault("analysis.keyword_limit", DefaultKeywordLimit)
	v.SetDefault("analysis.weak_position_margin", DefaultWeakPositionMargin)
	v.SetDefault("analysis.fetch_concurrency", DefaultFetchConcurrency)
	v.SetDefault("analysis.timeout", DefaultAnalysisTimeout)

	v.SetDefault("storage.backend", DefaultStorageBackend)
	v.SetDefault("storage.key_prefix", DefaultStorageKeyPrefix)
	v.SetDefault("storage.ttl", time.Duration(0))

	v.SetDefault("redis.addr", DefaultRedisAddr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", DefaultRedisPoolSize)

	v.SetDefault("postgres.host", DefaultPostgresHost)
	v.SetDefault("postgres.port", DefaultPostgresPort)
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.db_name", DefaultPostgresDBName)
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", DefaultPostgresMaxConns)
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("minio.endpoint", DefaultMinIOEndpoint)
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", DefaultMinIOBucket)
	v.SetDefault("minio.use_ssl", false)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{DefaultKafkaBroker})
	v.SetDefault("kafka.group_id", DefaultKafkaGroupID)
	v.SetDefault("kafka.timeout_ms", DefaultKafkaTimeoutMS)
	v.SetDefault("kafka.concurrency", DefaultKafkaConcurrency)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", DefaultMetricsNamespace)
	v.SetDefault("metrics.path", DefaultMetricsPath)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
}

// ApplyDefaults fills every zero-value field in cfg with the platform default.
// Fields already set are left unchanged.  It covers configs built in code
// (tests, embedding callers) that never went through viper.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}

	// ── Provider ──────────────────────────────────────────────────────────────
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = DefaultProviderBaseURL
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = DefaultProviderTimeout
	}
	if cfg.Provider.UserAgent == "" {
		cfg.Provider.UserAgent = DefaultProviderUserAgent
	}
	if cfg.Provider.PageSize == 0 {
		cfg.Provider.PageSize = DefaultProviderPageSize
	}
	if cfg.Provider.MaxRetryAttempts == 0 {
		cfg.Provider.MaxRetryAttempts = DefaultProviderMaxRetryAttempts
	}
	if cfg.Provider.InitialBackoff == 0 {
		cfg.Provider.InitialBackoff = DefaultProviderInitialBackoff
	}
	if cfg.Provider.MaxBackoff == 0 {
		cfg.Provider.MaxBackoff = DefaultProviderMaxBackoff
	}
	if cfg.Provider.RateLimitRPS == 0 {
		cfg.Provider.RateLimitRPS = DefaultProviderRateLimitRPS
	}
	if cfg.Provider.RateLimitBurst == 0 {
		cfg.Provider.RateLimitBurst = DefaultProviderRateLimitBurst
	}

	// ── Analysis ──────────────────────────────────────────────────────────────
	if cfg.Analysis.LocationCode == 0 {
		cfg.Analysis.LocationCode = DefaultLocationCode
	}
	if cfg.Analysis.LanguageCode == "" {
		cfg.Analysis.LanguageCode = DefaultLanguageCode
	}
	if cfg.Analysis.KeywordLimit == 0 {
		cfg.Analysis.KeywordLimit = DefaultKeywordLimit
	}
	// WeakPositionMargin: 0 is a meaningful explicit value; viper supplies the
	// default for file/env configs.
	if cfg.Analysis.FetchConcurrency == 0 {
		cfg.Analysis.FetchConcurrency = DefaultFetchConcurrency
	}
	if cfg.Analysis.Timeout == 0 {
		cfg.Analysis.Timeout = DefaultAnalysisTimeout
	}

	// ── Storage ───────────────────────────────────────────────────────────────
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = DefaultStorageKeyPrefix
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = DefaultPostgresHost
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Postgres.DBName == "" {
		cfg.Postgres.DBName = DefaultPostgresDBName
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Postgres.MaxConns == 0 {
		cfg.Postgres.MaxConns = DefaultPostgresMaxConns
	}
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.TimeoutMS == 0 {
		cfg.Kafka.TimeoutMS = DefaultKafkaTimeoutMS
	}
	if cfg.Kafka.Concurrency == 0 {
		cfg.Kafka.Concurrency = DefaultKafkaConcurrency
	}

	// ── Metrics / Log ─────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

//Personal.AI order the ending
