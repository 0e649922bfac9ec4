// Worker entry point for KeyGap-Intelligence: runs analyses queued on
// gap.analysis.requested and publishes their outcome.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyGap-Intelligence/internal/app"
	"github.com/turtacn/KeyGap-Intelligence/internal/application/analysis"
	"github.com/turtacn/KeyGap-Intelligence/internal/config"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/KeyGap-Intelligence/internal/interfaces/http"
	"github.com/turtacn/KeyGap-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyGap-Intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

var version = "dev"

const (
	defaultHealthPort = 8081
	maxRetries        = 3
	lockTTL           = time.Minute
	shutdownTimeout   = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (environment only when empty)")
	workerCount := flag.Int("workers", 0, "number of concurrent consumers (default: kafka.concurrency)")
	healthPort := flag.Int("health-port", defaultHealthPort, "port serving /healthz, /readyz and metrics")
	flag.Parse()

	if err := run(*configPath, *workerCount, *healthPort); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, workerCount, healthPort int) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return errors.New(errors.ErrCodeValidation, "worker requires kafka.enabled")
	}
	if workerCount <= 0 {
		workerCount = cfg.Kafka.Concurrency
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger.Info("starting KeyGap-Intelligence worker",
		logging.String("version", version),
		logging.Int("workers", workerCount),
		logging.String("topic", kafka.TopicAnalysisRequested),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to release resources", logging.Err(err))
		}
	}()

	if err := a.EnsureTopics(ctx); err != nil {
		return err
	}

	svc, err := a.NewService(nil)
	if err != nil {
		return err
	}

	var opts []analysis.HandlerOption
	if client, err := a.RedisClient(); err != nil {
		logger.Warn("redis unavailable, redelivered requests may run twice", logging.Err(err))
	} else {
		locks := redis.NewLockFactory(client, logger, redis.WithLockTTL(lockTTL), redis.WithWatchdog(true))
		opts = append(opts, analysis.WithLocker(locks))
	}

	var record func(topic string, err error)
	if a.Metrics != nil {
		record = a.Metrics.RecordMessage
	}
	handler := instrument(analysis.NewRequestHandler(svc, logger, opts...), cfg.Analysis.Timeout, record)

	consumers := make([]*kafka.Consumer, 0, workerCount)
	defer func() {
		for _, c := range consumers {
			if err := c.Close(); err != nil {
				logger.Error("consumer close failed", logging.Err(err))
			}
		}
	}()
	for i := 0; i < workerCount; i++ {
		c, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:         cfg.Kafka.Brokers,
			GroupID:         cfg.Kafka.GroupID,
			Topics:          []string{kafka.TopicAnalysisRequested},
			AutoOffsetReset: "earliest",
			RetryConfig: kafka.RetryConfig{
				MaxRetries:      maxRetries,
				RetryBackoff:    time.Second,
				MaxRetryBackoff: 30 * time.Second,
				DeadLetterTopic: kafka.TopicDeadLetter,
			},
		}, a.Producer, logger.With(logging.Int("worker_id", i)))
		if err != nil {
			return err
		}
		c.Subscribe(kafka.TopicAnalysisRequested, handler)
		if err := c.Start(ctx); err != nil {
			return err
		}
		consumers = append(consumers, c)
	}

	go a.RunJanitor(ctx, app.DefaultJanitorInterval)
	srv := startHealthServer(a, cfg, healthPort, logger)

	if configPath != "" {
		err := config.Watch(configPath, a.Reload, func(err error) {
			logger.Warn("configuration reload rejected", logging.Err(err))
		})
		if err != nil {
			logger.Warn("configuration hot reload disabled", logging.Err(err))
		}
	}

	<-ctx.Done()
	logger.Info("shutting down worker")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		logger.Error("health server shutdown error", logging.Err(err))
	}

	var processed, deadLettered int64
	for _, c := range consumers {
		processed += c.Processed()
		deadLettered += c.DeadLettered()
	}
	logger.Info("worker stopped",
		logging.Int64("processed", processed),
		logging.Int64("dead_lettered", deadLettered))
	return nil
}

// instrument bounds every delivery of a request by timeout and reports its
// outcome to record.  Either may be zero.
func instrument(h kafka.MessageHandler, timeout time.Duration, record func(topic string, err error)) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.Message) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		err := h(ctx, msg)
		if record != nil {
			record(msg.Topic, err)
		}
		return err
	}
}

// startHealthServer serves health checks and, when enabled, metrics on port.
func startHealthServer(a *app.App, cfg *config.Config, port int, logger logging.Logger) *httpserver.Server {
	checkers := make([]handlers.HealthChecker, 0, len(a.Checks))
	for _, c := range a.Checks {
		checkers = append(checkers, handlers.CheckFunc(c.Name, c.Check))
	}

	gin.SetMode(gin.ReleaseMode)
	routerCfg := httpserver.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(version, checkers...),
		Logging:       middleware.DefaultLoggingConfig(),
		Logger:        logger,
	}
	if a.Collector != nil {
		routerCfg.MetricsHandler = a.Collector.Handler()
		routerCfg.MetricsPath = cfg.Metrics.Path
	}

	serverCfg := cfg.Server
	serverCfg.Port = port
	srv := httpserver.NewServer(serverCfg, httpserver.NewRouter(routerCfg), logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("health server error", logging.Err(err))
		}
	}()
	return srv
}

//Personal.AI order the ending
