package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyGap-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyGap-Intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// RouterConfig holds everything NewRouter wires together. Nil handlers leave
// their routes unregistered.
type RouterConfig struct {
	AnalysisHandler *handlers.AnalysisHandler
	HealthHandler   *handlers.HealthHandler

	// MetricsHandler is served at MetricsPath (default /metrics).
	MetricsHandler http.Handler
	MetricsPath    string
	HTTPMetrics    middleware.HTTPMetrics

	CORS        *middleware.CORSConfig
	RateLimiter middleware.RateLimiter
	RateLimit   middleware.RateLimitConfig
	Logging     middleware.LoggingConfig

	Logger logging.Logger
}

// NewRouter builds the gin engine. Middleware order:
// Recovery → RequestID → Logging → CORS → RateLimit.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error("panic serving request",
			logging.String("path", c.Request.URL.Path),
			logging.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, handlers.ErrorResponse{
			Code:    errors.ErrCodeInternal.String(),
			Message: errors.DefaultMessageForCode(errors.ErrCodeInternal),
		})
	}))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging(log, cfg.Logging, cfg.HTTPMetrics))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit))
	}

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	v1 := r.Group("/api/v1")
	if cfg.AnalysisHandler != nil {
		cfg.AnalysisHandler.RegisterRoutes(v1)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Code: errors.ErrCodeNotFound.String(), Message: "route not found"})
	})
	return r
}

//Personal.AI order the ending
