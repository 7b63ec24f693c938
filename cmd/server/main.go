// Package main serves the sales analysis over HTTP: uploads are stored per
// project, predictions train on the stored history and write back forecast
// rows, and /metrics exposes Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"sales-forecast-lab/internal/config"
	"sales-forecast-lab/internal/observability"
	"sales-forecast-lab/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (env SALES_* overrides it)")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	logger := observability.NewLogger(cfg.Logging, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, *useMemory, logger); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func serve(ctx context.Context, cfg *config.Config, useMemory bool, logger *slog.Logger) error {
	rows, runs, cleanup, err := createStores(ctx, cfg.Store, useMemory)
	if err != nil {
		return fmt.Errorf("create stores: %w", err)
	}
	defer cleanup()

	analyzer := pipeline.NewAnalyzer(pipeline.Options{
		Config:   cfg,
		RowStore: rows,
		RunStore: runs,
		Logger:   logger,
		Metrics:  observability.NewMetrics("", prometheus.DefaultRegisterer),
	})
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      NewServer(analyzer, cfg.Server, logger, observability.Handler()).Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
