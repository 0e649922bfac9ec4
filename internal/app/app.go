// Package app assembles the keyword gap engine from configuration. The API
// server, the worker and the local CLI all build their dependency graph here.
package app

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/turtacn/KeyGap-Intelligence/internal/application/analysis"
	"github.com/turtacn/KeyGap-Intelligence/internal/application/ranking"
	"github.com/turtacn/KeyGap-Intelligence/internal/config"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/provider/dataforseo"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/ratelimit"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// EventSource names this engine in published event envelopes.
const EventSource = "keygap"

// DefaultJanitorInterval is how often RunJanitor purges expired snapshots.
const DefaultJanitorInterval = time.Hour

// Purger is implemented by stores whose expired entries linger until
// removed explicitly.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// HealthCheck checks one backing dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// App holds the long-lived dependencies of a keygap process.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector // nil when metrics are disabled
	Metrics   *prometheus.GapMetrics      // nil when metrics are disabled
	Gateway   *analysis.Gateway
	Limiter   *ratelimit.TokenBucket
	Producer  *kafka.Producer // nil when kafka is disabled
	Checks    []HealthCheck

	redis   *redis.Client
	purger  Purger
	closers []func() error
}

// New connects the storage backend, the provider rate limiter and, when
// enabled, the metrics registry and the Kafka producer.  Close releases
// whatever was opened, including on a partial failure.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrCodeValidation, "app requires a config")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	a := &App{Config: cfg, Logger: logger}

	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to create metrics collector")
		}
		a.Collector = collector
		a.Metrics = prometheus.NewGapMetrics(collector)
	}

	limiter, err := ratelimit.NewTokenBucket(cfg.Provider.RateLimitRPS, cfg.Provider.RateLimitBurst)
	if err != nil {
		return nil, err
	}
	a.Limiter = limiter

	store, err := a.openStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	gw, err := analysis.NewGateway(store)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Gateway = gw

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Acks:         "all",
			WriteTimeout: msDuration(cfg.Kafka.TimeoutMS),
		}, logger)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Producer = producer
		a.closers = append(a.closers, producer.Close)
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context) (analysis.KVStore, error) {
	cfg := a.Config
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		return analysis.NewMemoryStore(), nil

	case config.StorageRedis:
		client, err := a.RedisClient()
		if err != nil {
			return nil, err
		}
		return redis.NewSnapshotStore(client, a.Logger,
			redis.WithPrefix(cfg.Storage.KeyPrefix),
			redis.WithTTL(cfg.Storage.TTL),
			redis.WithTTLJitter(true))

	case config.StoragePostgres:
		conn, err := postgres.NewConnection(ctx, cfg.Postgres, a.Logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { conn.Close(); return nil })
		if cfg.Postgres.AutoMigrate {
			if err := postgres.RunMigrations(conn.URL()); err != nil {
				return nil, errors.Storage(err, "failed to migrate snapshot schema")
			}
		}
		a.Checks = append(a.Checks, HealthCheck{Name: "postgres", Check: conn.HealthCheck})
		store, err := postgres.NewSnapshotStore(conn.Pool(), a.Logger, postgres.WithTTL(cfg.Storage.TTL))
		if err != nil {
			return nil, err
		}
		if cfg.Storage.TTL > 0 {
			a.purger = store
		}
		return store, nil

	case config.StorageMinIO:
		client, err := minio.NewClient(ctx, cfg.MinIO, a.Logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		a.Checks = append(a.Checks, HealthCheck{Name: "minio", Check: func(ctx context.Context) error {
			_, err := client.HealthCheck(ctx)
			return err
		}})
		return minio.NewObjectStore(ctx, client, a.Logger, cfg.Storage.TTL, minio.WithPrefix(cfg.Storage.KeyPrefix))
	}
	return nil, errors.New(errors.ErrCodeValidation, "unknown storage backend").WithDetail(cfg.Storage.Backend)
}

// RedisClient returns the shared Redis client, connecting on first use.  The
// worker uses it for analysis locks even when snapshots live elsewhere.
func (a *App) RedisClient() (*redis.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	rc := a.Config.Redis
	client, err := redis.NewClient(&redis.RedisConfig{
		Addr:         rc.Addr,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	}, a.Logger)
	if err != nil {
		return nil, err
	}
	a.redis = client
	a.closers = append(a.closers, client.Close)
	a.Checks = append(a.Checks, HealthCheck{Name: "redis", Check: client.Ping})
	return client, nil
}

// NewService builds the analysis service.  A nil provider means the
// DataForSEO client configured under provider.*.
func (a *App) NewService(provider ranking.Provider) (analysis.Service, error) {
	cfg := a.Config
	if provider == nil {
		var opts []dataforseo.Option
		if a.Metrics != nil {
			opts = append(opts, dataforseo.WithMetrics(a.Metrics))
		}
		client, err := dataforseo.NewClient(dataforseo.Config{
			BaseURL:   cfg.Provider.BaseURL,
			Login:     cfg.Provider.Login,
			Password:  cfg.Provider.Password,
			Timeout:   cfg.Provider.Timeout,
			UserAgent: cfg.Provider.UserAgent,
		}, a.Logger, opts...)
		if err != nil {
			return nil, err
		}
		provider = client
	}

	fc := ranking.FetcherConfig{
		Provider:         provider,
		Limiter:          a.Limiter,
		Logger:           a.Logger,
		PageSize:         cfg.Provider.PageSize,
		MaxRetryAttempts: cfg.Provider.MaxRetryAttempts,
		InitialBackoff:   cfg.Provider.InitialBackoff,
		MaxBackoff:       cfg.Provider.MaxBackoff,
	}
	sc := analysis.ServiceConfig{
		Gateway: a.Gateway,
		Logger:  a.Logger,
		Defaults: analysis.Defaults{
			LocationCode:       cfg.Analysis.LocationCode,
			LanguageCode:       cfg.Analysis.LanguageCode,
			KeywordLimit:       cfg.Analysis.KeywordLimit,
			WeakPositionMargin: cfg.Analysis.WeakPositionMargin,
		},
		FetchConcurrency: cfg.Analysis.FetchConcurrency,
	}
	if a.Metrics != nil {
		fc.Metrics = a.Metrics
		sc.Metrics = a.Metrics
	}
	if a.Producer != nil {
		sc.Events = analysis.NewKafkaEvents(a.Producer, EventSource)
	}

	fetcher, err := ranking.NewFetcher(fc)
	if err != nil {
		return nil, err
	}
	sc.Fetcher = fetcher
	return analysis.NewService(sc)
}

// EnsureTopics provisions the analysis topics.  It is a no-op when Kafka is
// disabled.
func (a *App) EnsureTopics(ctx context.Context) error {
	if !a.Config.Kafka.Enabled {
		return nil
	}
	tm, err := kafka.NewTopicManager(a.Config.Kafka.Brokers, a.Logger)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureDefaultTopics(ctx)
}

// Reload applies the hot-reloadable settings of cfg: log level and provider
// rate.
func (a *App) Reload(cfg *config.Config) {
	if cfg == nil {
		return
	}
	if logging.SetLevel(a.Logger, cfg.Log.Level) {
		a.Logger.Info("log level applied", logging.String("level", cfg.Log.Level))
	}
	if cfg.Provider.RateLimitRPS > 0 && cfg.Provider.RateLimitRPS != a.Limiter.Rate() {
		a.Limiter.SetRate(cfg.Provider.RateLimitRPS)
		a.Logger.Info("provider rate changed", logging.Float64("rps", cfg.Provider.RateLimitRPS))
	}
}

// RunJanitor purges expired snapshots every interval until ctx is done.  It
// returns at once when the storage backend expires entries on its own.
func (a *App) RunJanitor(ctx context.Context, interval time.Duration) {
	if a.purger == nil {
		return
	}
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.purger.PurgeExpired(ctx); err != nil {
				a.Logger.Warn("snapshot purge failed", logging.Err(err))
			}
		}
	}
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Close releases every opened resource in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return stderrors.Join(errs...)
}

//Personal.AI order the ending
