package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"

	"FerryCast/internal/domain/repository"
	"FerryCast/internal/services/artifacts"
	"FerryCast/internal/usecase"
	"FerryCast/pkg/cache"
	"FerryCast/pkg/config"
	xhttp "FerryCast/pkg/http"
	applogger "FerryCast/pkg/logger"
)

// ArtifactLoader reads the model artifacts from disk.
type ArtifactLoader func(dir string, defaultLookback int) (*artifacts.Artifacts, error)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	store      *artifacts.Store
	metrics    repository.Metrics
	httpServer *xhttp.Server
	recorder   *usecase.ForecastRecorder
	cache      cache.Service
	load       ArtifactLoader
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	store *artifacts.Store,
	metrics repository.Metrics,
	httpServer *xhttp.Server,
	recorder *usecase.ForecastRecorder,
	c cache.Service,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		store:      store,
		metrics:    metrics,
		httpServer: httpServer,
		recorder:   recorder,
		cache:      c,
		load:       artifacts.Load,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext serves until ctx is done or the listener fails.
func (a *App) RunContext(ctx context.Context) error {
	loadCtx, cancelLoad := context.WithCancel(ctx)
	defer cancelLoad()
	go a.loadArtifacts(loadCtx)

	errCh := a.httpServer.Start()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err, ok := <-errCh:
		if ok && err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			runErr = err
		}
	}

	cancelLoad()
	return errors.Join(runErr, a.shutdown())
}

// loadArtifacts publishes the artifacts once readable. Until then the
// service answers probes and reports not ready.
func (a *App) loadArtifacts(ctx context.Context) {
	dir := a.cfg.Artifacts.Dir
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second

	attempt := 0
	loaded, err := backoff.Retry(ctx, func() (*artifacts.Artifacts, error) {
		attempt++
		art, err := a.load(dir, a.cfg.Artifacts.DefaultLookback)
		if err != nil {
			a.log.Error("artifacts load failed",
				applogger.String("dir", dir),
				applogger.Int("attempt", attempt),
				applogger.Error(err))
			return nil, err
		}
		return art, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxElapsedTime(0))
	if err != nil {
		return
	}

	if err := a.store.Set(loaded); err != nil {
		a.log.Warn("artifacts publish skipped", applogger.Error(err))
		return
	}
	a.metrics.SetArtifactsLoaded(true)
	a.log.Info("artifacts loaded",
		applogger.String("dir", dir),
		applogger.String("version", loaded.Version),
		applogger.Int("lookback", loaded.Lookback),
		applogger.Int("targets", len(loaded.Schemas)))
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	a.log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	// Drain audit writes still in flight, then close the sink.
	if err := a.recorder.Close(); err != nil {
		a.log.Warn("forecast recorder close error", applogger.Error(err))
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
