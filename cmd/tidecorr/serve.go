package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/shoreline-tide-etl/internal/adapter/http"
	"github.com/couchcryptid/shoreline-tide-etl/internal/adapter/tidecache"
	"github.com/couchcryptid/shoreline-tide-etl/internal/config"
	"github.com/couchcryptid/shoreline-tide-etl/internal/observability"
	"github.com/couchcryptid/shoreline-tide-etl/internal/pipeline"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve tide corrections over HTTP",
		Long: `Starts the HTTP service: POST /api/v1/corrections runs a correction
against tide files under DATA_DIR, alongside /healthz, /readyz and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks, closeSinks, err := openSinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	tides := tidecache.New(cfg.TideCacheSize, func(hit bool) {
		result := "miss"
		if hit {
			result = "hit"
		}
		metrics.TideCache.WithLabelValues(result).Inc()
	})

	p := pipeline.New(sinks, logger, metrics, cfg.CorrectionWorkers)
	// Sinks are connected, so the service can take requests.
	p.MarkReady()

	handler := httpadapter.NewCorrectionHandler(p, tides, cfg.DataDir, cfg.MaxRequestBytes, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, handler, logger)

	// Start HTTP server.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		logger.Error("http server error", "error", serveErr)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return serveErr
}
