package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"SignalDeck/pkg/http/middleware"
	applogger "SignalDeck/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORS            bool
	SlowRequest     time.Duration
	MetricsPath     string
	Registry        *prometheus.Registry
	Limiter         middleware.Allower
	RateLimitSkip   []string
	Logger          *applogger.Logger
}

// Server wraps Echo HTTP server.
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
	errCh  chan error
}

// NewServer creates a new HTTP server with Echo and registers every handler.
func NewServer(handlers []Handler, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CORS:            true,
		SlowRequest:     time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	// WriteTimeout would cut websocket streams; handlers bound their own work.
	e.Server.ReadHeaderTimeout = cfg.ReadTimeout

	if cfg.MetricsPath != "" {
		var reg prometheus.Registerer = prometheus.DefaultRegisterer
		var gather prometheus.Gatherer = prometheus.DefaultGatherer
		if cfg.Registry != nil {
			reg, gather = cfg.Registry, cfg.Registry
		}
		e.Use(middleware.NewHTTPMetrics(reg).Middleware())
		e.GET(cfg.MetricsPath, echo.WrapHandler(promhttp.HandlerFor(gather, promhttp.HandlerOpts{})))
	}
	e.Use(middleware.RequestLogging(cfg.Logger, cfg.SlowRequest))
	e.Use(middleware.Recover(cfg.Logger))
	if cfg.CORS {
		e.Use(middleware.CORS(middleware.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{http.MethodGet, http.MethodOptions},
			AllowHeaders: []string{
				echo.HeaderOrigin,
				echo.HeaderContentType,
				echo.HeaderAccept,
			},
		}))
	}
	if cfg.Limiter != nil {
		e.Use(middleware.RateLimit(cfg.Limiter, cfg.RateLimitSkip...))
	}

	for _, h := range handlers {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}

	return &Server{
		echo:   e,
		config: cfg,
		errCh:  make(chan error, 1),
	}
}

// Start begins serving in the background. Listener failures are reported
// on Errors.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	go func() {
		if s.config.Logger != nil {
			s.config.Logger.Info("http server listening", applogger.String("addr", addr))
		}
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	return nil
}

// Errors delivers a fatal listener error, if any.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ShutdownTimeout returns the configured graceful shutdown budget.
func (s *Server) ShutdownTimeout() time.Duration {
	return s.config.ShutdownTimeout
}

// WithHost sets server host.
func WithHost(host string) ServerOption {
	return func(c *ServerConfig) {
		c.Host = host
	}
}

// WithPort sets server port.
func WithPort(port int) ServerOption {
	return func(c *ServerConfig) {
		c.Port = port
	}
}

// WithTimeouts sets read/write timeouts.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ReadTimeout = read
		c.WriteTimeout = write
		c.ShutdownTimeout = shutdown
	}
}

// WithCORS enables/disables CORS.
func WithCORS(enabled bool) ServerOption {
	return func(c *ServerConfig) {
		c.CORS = enabled
	}
}

// WithLogger sets the logger used by request logging and panic recovery.
func WithLogger(l *applogger.Logger, slow time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.Logger = l
		c.SlowRequest = slow
	}
}

// WithMetrics exposes Prometheus metrics at path. A nil registry means the
// default registry.
func WithMetrics(path string, reg *prometheus.Registry) ServerOption {
	return func(c *ServerConfig) {
		c.MetricsPath = path
		c.Registry = reg
	}
}

// WithRateLimit applies a per-client limiter to every route except skip.
func WithRateLimit(a middleware.Allower, skip ...string) ServerOption {
	return func(c *ServerConfig) {
		c.Limiter = a
		c.RateLimitSkip = skip
	}
}
