// Package main wires together the scrape service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/quarryhq/quarry/internal/api"
	"github.com/quarryhq/quarry/internal/catalog"
	"github.com/quarryhq/quarry/internal/config"
	collyfetcher "github.com/quarryhq/quarry/internal/fetcher/colly"
	headlessfetcher "github.com/quarryhq/quarry/internal/fetcher/headless"
	"github.com/quarryhq/quarry/internal/headless/detector"
	"github.com/quarryhq/quarry/internal/logging"
	"github.com/quarryhq/quarry/internal/metrics"
	"github.com/quarryhq/quarry/internal/progress"
	"github.com/quarryhq/quarry/internal/progress/sinks"
	"github.com/quarryhq/quarry/internal/scrape"
	"github.com/quarryhq/quarry/internal/sites"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	if err := sites.Validate(); err != nil {
		logger.Fatal("adapter table invalid", zap.Error(err))
	}
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("progress metrics init failed", zap.Error(err))
	}
	statsSink := sinks.NewStatsSink()
	hub := progress.NewHub(progress.Config{
		BaseContext: ctx,
		Logger:      logger.Named("progress"),
	}, promSink, statsSink, sinks.NewLogSink(logger.Named("events")))

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Engine.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})

	// Sites needing a renderer fail cleanly through Noop when headless is
	// off, instead of scraping un-rendered shells.
	var (
		headless scrape.Fetcher = headlessfetcher.NewNoop()
		detect   scrape.PromoteDetector
	)
	if cfg.Headless.Enabled {
		hf, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Engine.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Warn("headless fetcher init failed", zap.Error(err))
		} else {
			defer hf.Close()
			headless = hf
			detect = detector.NewHeuristic(cfg.Headless.PromotionThresh)
		}
	}

	engine, err := scrape.NewEngine(scrape.EngineConfig{
		Fetcher:     fetcher,
		Prober:      fetcher,
		Headless:    headless,
		Detector:    detect,
		Emitter:     hub,
		Logger:      logger.Named("engine"),
		Concurrency: cfg.Engine.Concurrency,
	})
	if err != nil {
		logger.Fatal("engine init failed", zap.Error(err))
	}

	repo, err := newCatalog(ctx, cfg)
	if err != nil {
		logger.Fatal("catalog init failed", zap.Error(err))
	}
	defer repo.Close()

	apiServer := api.NewServer(cfg, logger.Named("api"), engine, sites.All(), repo, statsSink)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Error("progress hub shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newCatalog(ctx context.Context, cfg config.Config) (catalog.Repository, error) {
	switch cfg.Catalog.Backend {
	case config.CatalogPostgres:
		return catalog.NewPostgres(ctx, cfg.Catalog.DSN)
	default:
		if cfg.Catalog.SeedPath != "" {
			return catalog.NewMemoryFromFile(cfg.Catalog.SeedPath)
		}
		return catalog.NewMemory(), nil
	}
}
