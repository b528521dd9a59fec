package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/romkarus000/analytics-product/pkg/config"
	xhttp "github.com/romkarus000/analytics-product/pkg/http"
	pkgkafka "github.com/romkarus000/analytics-product/pkg/kafka"
	applogger "github.com/romkarus000/analytics-product/pkg/logger"
	"github.com/romkarus000/analytics-product/pkg/queue"
)

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	handlers   []pkgkafka.MessageHandler
	queue      *queue.RedisQueue
	background []func(ctx context.Context)
	closers    []closer
}

// New creates a new App instance. Optional parts are attached with the With* methods.
func New(cfg *config.Config, lgr *applogger.Logger, httpServer *xhttp.Server) *App {
	return &App{cfg: cfg, logger: lgr, httpServer: httpServer}
}

// WithConsumer attaches a Kafka consumer and the handlers it serves.
func (a *App) WithConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) *App {
	a.consumer = c
	a.handlers = append(a.handlers, handlers...)
	return a
}

// WithQueue attaches the background job queue.
func (a *App) WithQueue(q *queue.RedisQueue) *App {
	a.queue = q
	return a
}

// Go registers a background task that runs until shutdown.
func (a *App) Go(fn func(ctx context.Context)) *App {
	a.background = append(a.background, fn)
	return a
}

// OnShutdown registers a resource to close after every component stopped.
// Closers run in reverse registration order.
func (a *App) OnShutdown(name string, fn func() error) *App {
	a.closers = append(a.closers, closer{name: name, fn: fn})
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			a.shutdown()
			return fmt.Errorf("start queue: %w", err)
		}
	}

	if a.consumer != nil && len(a.handlers) > 0 {
		topics := make([]string, 0, len(a.handlers))
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			topics = append(topics, h.Topic())
		}
		if err := a.consumer.Start(); err != nil {
			a.shutdown()
			return fmt.Errorf("start kafka consumer: %w", err)
		}
		a.logger.Info("kafka consumer started", applogger.Strings("topics", topics))
	}

	for _, fn := range a.background {
		go fn(bgCtx)
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		a.shutdown()
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown stops intake first: HTTP, then the consumer, then the workers.
func (a *App) shutdown() error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.logger.Warn("queue stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
