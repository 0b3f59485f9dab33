package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"SignalDeck/internal/usecase"
	"SignalDeck/pkg/config"
	xhttp "SignalDeck/pkg/http"
	applogger "SignalDeck/pkg/logger"
)

// Closer releases one infrastructure resource during shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// Scheduler is the part of the refresh scheduler the lifecycle drives.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var _ Scheduler = (*usecase.Scheduler)(nil)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	scheduler  Scheduler
	httpServer *xhttp.Server
	closers    []Closer
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, scheduler Scheduler, httpServer *xhttp.Server, closers ...Closer) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		l:          l,
		scheduler:  scheduler,
		httpServer: httpServer,
		closers:    closers,
	}
}

// Run starts the scheduler and the HTTP server and blocks until SIGINT,
// SIGTERM, ctx cancellation or a listener failure.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	if err := a.scheduler.Start(ctx); err != nil {
		_ = a.shutdown()
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.l.Info("dashboard refresh running",
		applogger.String("source", a.cfg.Source.Type),
		applogger.Strings("symbols", a.cfg.Quotes.Symbols),
	)

	var runErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case err := <-a.httpServer.Errors():
		a.l.Error("http server failed", applogger.Error(err))
		runErr = err
	}

	if err := a.shutdown(); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// shutdown stops the scheduler, drains HTTP and closes resources in reverse
// order of registration.
func (a *App) shutdown() error {
	a.l.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()

	var errs []error
	if err := a.scheduler.Stop(ctx); err != nil {
		a.l.Warn("scheduler stop error", applogger.Error(err))
		errs = append(errs, err)
	}
	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.Close(); err != nil {
			a.l.Warn("close error", applogger.String("resource", c.Name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.Name, err))
		}
	}

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}
