package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	app "github.com/kode4food/stepflow"
	"github.com/kode4food/stepflow/internal/archive"
	"github.com/kode4food/stepflow/internal/client"
	"github.com/kode4food/stepflow/internal/config"
	"github.com/kode4food/stepflow/internal/engine"
	"github.com/kode4food/stepflow/internal/events"
	"github.com/kode4food/stepflow/internal/graphs/coaching"
	"github.com/kode4food/stepflow/internal/graphs/shopping"
	"github.com/kode4food/stepflow/internal/metrics"
	"github.com/kode4food/stepflow/internal/server"
	"github.com/kode4food/stepflow/pkg/log"
)

type stepflow struct {
	cfg        *config.Config
	archive    archive.Store
	hub        *events.Hub
	metrics    *metrics.Collector
	engine     *engine.Engine
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrOpenArchive   = errors.New("failed to open run archive")
	ErrLoadOverrides = errors.New("failed to load step overrides")
	ErrCreatePricing = errors.New("failed to create price estimator")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrCreateEngine  = errors.New("failed to create engine")
	ErrServerStartup = errors.New("HTTP server failed")
)

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &stepflow{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *stepflow) run() error {
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := s.initializeArchive(); err != nil {
		return err
	}

	if err := s.initializeEngine(); err != nil {
		s.closeArchive()
		return err
	}

	if err := s.initializeServer(); err != nil {
		s.closeArchive()
		return err
	}

	errs := make(chan error, 1)
	go s.serve(errs)

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)

	var err error
	select {
	case <-s.quit:
	case err = <-errs:
	}

	s.shutdown()
	return err
}

func (s *stepflow) setupLogging() {
	level := log.ParseLevel(s.cfg.LogLevel)
	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Stepflow starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort),
		slog.Int("parallelism", s.cfg.Parallelism),
		slog.Int("max_retries", s.cfg.MaxRetries),
		slog.Duration("step_timeout", s.cfg.StepTimeout),
		slog.String("backoff_type", s.cfg.Retry.BackoffType),
		slog.String("archive_redis_addr", s.cfg.Archive.RedisAddr),
		slog.String("archive_bucket_url", s.cfg.Archive.BucketURL),
		slog.String("completion_endpoint", s.cfg.Completion.Endpoint),
		slog.String("pricing_endpoint", s.cfg.Pricing.Endpoint))
}

func (s *stepflow) initializeArchive() error {
	store, err := archive.Open(context.Background(), s.cfg.Archive)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpenArchive, err)
	}
	if store == nil {
		slog.Info("Run archive disabled")
	}
	s.archive = store
	return nil
}

func (s *stepflow) initializeEngine() error {
	s.hub = events.NewHub()
	s.metrics = metrics.NewCollector(app.Name)

	eng, err := engine.New(s.cfg, engine.Dependencies{
		Observer: engine.Observers(s.hub, s.metrics),
		Archive:  s.archive,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateEngine, err)
	}
	s.engine = eng
	return nil
}

func (s *stepflow) initializeServer() error {
	overrides, err := config.LoadOverrides(s.cfg.OverridesFile)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadOverrides, err)
	}

	completer := client.NewCompletionClient(s.cfg.Completion)
	var prices client.PriceEstimator = client.NewCompletionEstimator(completer)
	if s.cfg.Pricing.Endpoint != "" {
		prices = client.NewPricingClient(s.cfg.Pricing)
	}
	cached, err := client.NewCachedEstimator(prices, s.cfg.Pricing.CacheSize)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreatePricing, err)
	}

	s.apiServer = server.NewServer(server.Dependencies{
		Planner: shopping.NewPlanner(s.engine, completer, cached, overrides),
		Coach:   coaching.NewCoach(s.engine, completer, overrides),
		Archive: s.archive,
		Hub:     s.hub,
		Metrics: s.metrics.Handler(),
	})

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: s.apiServer.SetupRoutes(),
	}
	return nil
}

func (s *stepflow) serve(errs chan<- error) {
	slog.Info("HTTP server starting",
		slog.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs <- fmt.Errorf("%w: %w", ErrServerStartup, err)
	}
}

func (s *stepflow) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()
	s.hub.Close()
	s.closeArchive()

	slog.Info("Server exited")
}

func (s *stepflow) closeArchive() {
	if s.archive == nil {
		return
	}
	if err := s.archive.Close(); err != nil {
		slog.Error("Archive close failed", log.Error(err))
	}
}
