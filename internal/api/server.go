package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"cio-consistency/internal/version"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wire the HTTP server. Health is optional; when set /healthz fails while it is unreachable.
type Options struct {
	Environment    string
	Provider       ReportProvider
	MetricsHandler http.Handler
	Health         Pinger
}

const healthTimeout = 2 * time.Second

// NewEngine builds the gin engine with every route registered.
func NewEngine(opts Options, logger zerolog.Logger) *gin.Engine {
	if strings.EqualFold(opts.Environment, "development") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	engine.GET("/healthz", func(c *gin.Context) {
		if opts.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := opts.Health.Ping(ctx); err != nil {
				logger.Warn().Err(err).Msg("health check failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unreachable", "build": version.Get()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "build": version.Get()})
	})
	if opts.MetricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	reports := &ReportHandler{Provider: opts.Provider, Logger: logger}
	reports.Register(engine)
	return engine
}

// NewServer wraps the engine in an http.Server bound to addr.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(started)).
			Msg("http request")
	}
}
