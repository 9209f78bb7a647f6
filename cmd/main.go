package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/jmscore/internal/adapters/http/api"
	app "github.com/okian/jmscore/internal/app"
	"github.com/okian/jmscore/internal/config"
	"github.com/okian/jmscore/pkg/logger"
	"github.com/okian/jmscore/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// Log file rotation settings.
const (
	logMaxSizeMB  = 50
	logMaxBackups = 5
	logMaxAgeDays = 28
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := setupLogging(cfg); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	metrics.Init(
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithRefreshInterval(cfg.MetricsRefreshInterval),
	)
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logs: " + err.Error() + "\n")
		}
	}()

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "server exited", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1) //nolint:gocritic // exitAfterDefer: logs are synced above
	}
}

// setupLogging re-initializes the logger from configuration.
func setupLogging(cfg *config.Config) error {
	opts := []logger.Option{logger.WithFormat(cfg.LogFormat)}
	if cfg.LogFile != "" {
		opts = append(opts,
			logger.WithFile(cfg.LogFile, logMaxSizeMB, logMaxBackups, logMaxAgeDays),
			logger.WithCompression(true),
		)
	}
	if err := logger.Init(opts...); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// run serves until ctx is canceled, then drains the service.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	svc := app.New(cfg, app.WithLogger(log.Named("service")))
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)

	srv := newHTTPServer(ctx, cfg, svc)

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("prefix", cfg.RoutePrefix),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return nil
}

// newHTTPServer builds the HTTP server for svc.
func newHTTPServer(ctx context.Context, cfg *config.Config, svc *app.Service) *http.Server {
	apiServer := api.NewServer(svc, svc,
		api.WithRoutePrefix(cfg.RoutePrefix),
		api.WithMOTD(cfg.MOTD),
		api.WithMaxReplayBytes(cfg.MaxReplayBytes),
		api.WithLogger(logger.Get().Named("http")),
	)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(ctx),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater refreshes the system gauges until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
