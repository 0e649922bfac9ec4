// API server entry point for KeyGap-Intelligence.
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
	"github.com/turtacn/KeyGap-Intelligence/internal/config"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/KeyGap-Intelligence/internal/interfaces/http"
	"github.com/turtacn/KeyGap-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyGap-Intelligence/internal/interfaces/http/middleware"
)

// version is injected via ldflags.
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file (environment only when empty)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *httpPort); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, httpPort int) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	if httpPort > 0 {
		cfg.Server.Port = httpPort
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}

	gin.SetMode(cfg.Server.Mode)
	logger.Info("starting KeyGap-Intelligence API server",
		logging.String("version", version),
		logging.Int("http_port", cfg.Server.Port),
		logging.String("storage", cfg.Storage.Backend),
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
		// Brokers with auto-create still accept the events.
		logger.Warn("failed to ensure kafka topics", logging.Err(err))
	}

	svc, err := a.NewService(nil)
	if err != nil {
		return err
	}

	rl := middleware.DefaultRateLimitConfig()
	limiter, err := middleware.NewKeyedLimiter(rl.RequestsPerSecond, rl.BurstSize, rl.CleanupInterval, nil)
	if err != nil {
		return err
	}
	defer limiter.Stop()

	cors := middleware.DefaultCORSConfig()
	routerCfg := httpserver.RouterConfig{
		AnalysisHandler: handlers.NewAnalysisHandler(svc, logger.Named("api")),
		HealthHandler:   handlers.NewHealthHandler(version, healthCheckers(a)...),
		CORS:            &cors,
		RateLimiter:     limiter,
		RateLimit:       rl,
		Logging:         middleware.DefaultLoggingConfig(),
		Logger:          logger,
	}
	if a.Collector != nil {
		routerCfg.MetricsHandler = a.Collector.Handler()
		routerCfg.MetricsPath = cfg.Metrics.Path
		routerCfg.HTTPMetrics = a.Metrics
	}

	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()

	if configPath != "" {
		err := config.Watch(configPath, a.Reload, func(err error) {
			logger.Warn("configuration reload rejected", logging.Err(err))
		})
		if err != nil {
			logger.Warn("configuration hot reload disabled", logging.Err(err))
		}
	}

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down API server")
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
	}
	logger.Info("API server stopped")
	return nil
}

// healthCheckers exposes the app's dependency checks on /readyz.
func healthCheckers(a *app.App) []handlers.HealthChecker {
	checkers := make([]handlers.HealthChecker, 0, len(a.Checks))
	for _, c := range a.Checks {
		checkers = append(checkers, handlers.CheckFunc(c.Name, c.Check))
	}
	return checkers
}

//Personal.AI order the ending
