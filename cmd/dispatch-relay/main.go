package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/akfire/dispatch-relay/pkg/config"
	"github.com/akfire/dispatch-relay/pkg/database"
	"github.com/akfire/dispatch-relay/pkg/directions"
	"github.com/akfire/dispatch-relay/pkg/dispatch"
	"github.com/akfire/dispatch-relay/pkg/history"
	"github.com/akfire/dispatch-relay/pkg/logger"
	"github.com/akfire/dispatch-relay/pkg/metrics"
	"github.com/akfire/dispatch-relay/pkg/station"
	"github.com/akfire/dispatch-relay/pkg/web"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Parse command line flags
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Parse()

	// Show version
	if *showVersion {
		fmt.Printf("Dispatch-Relay %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	// Validate only mode
	if *validate {
		log.Info("Configuration is valid")
		os.Exit(0)
	}

	log.Info("Starting Dispatch-Relay",
		logger.String("version", version),
		logger.String("build_time", buildTime),
		logger.String("config_file", *configFile))

	// Build the station directory
	directory, err := station.NewDirectory(cfg.Stations)
	if err != nil {
		log.Error("Failed to build station directory", logger.Error(err))
		os.Exit(1)
	}
	log.Info("Station directory loaded",
		logger.Int("stations", directory.Count()),
		logger.Int("areas", len(directory.Areas())))
	for _, st := range cfg.Stations {
		log.Debug("Station configured",
			logger.String("id", st.ID),
			logger.String("area", st.Area),
			logger.Float64("lat", st.Lat),
			logger.Float64("lng", st.Lng))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector()

	// Start Prometheus metrics server if enabled
	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metricsServer := metrics.NewPrometheusServer(
				metrics.PrometheusConfig{
					Enabled: cfg.Metrics.Prometheus.Enabled,
					Port:    cfg.Metrics.Prometheus.Port,
					Path:    cfg.Metrics.Prometheus.Path,
				},
				metricsCollector,
				log.WithComponent("metrics"),
			)
			if err := metricsServer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("Prometheus metrics server error", logger.Error(err))
			}
		}()
	}

	// Open the call archive if enabled
	var archive dispatch.Archiver
	var archiveRepo *database.CallRepository
	if cfg.Archive.Enabled {
		db, err := database.NewDB(database.Config{Path: cfg.Archive.Path}, log.WithComponent("database"))
		if err != nil {
			log.Error("Failed to open call archive", logger.Error(err))
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		archiveRepo = database.NewCallRepository(db.GetDB())
		archive = archiveRepo

		if cfg.Archive.RetentionDays > 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				runArchiveSweep(ctx, archiveRepo, cfg.Archive.RetentionDays, log.WithComponent("database"))
			}()
		}
	}

	// Build the directions fetcher if enabled
	var fetcher *directions.Fetcher
	if cfg.Directions.Enabled && cfg.Directions.APIKey != "" {
		timeout := time.Duration(cfg.Directions.TimeoutSeconds) * time.Second
		provider := directions.NewGoogleClient(cfg.Directions.APIKey, timeout, log.WithComponent("directions"))
		reporter := &directions.LogReporter{Logger: log.WithComponent("directions")}
		fetcher = directions.NewFetcher(provider, reporter,
			cfg.Directions.StaticMapsKey,
			cfg.Directions.AddressSuffix,
			cfg.Directions.DistanceCeiling,
			log.WithComponent("directions"))
	} else {
		log.Info("Directions lookups disabled")
	}

	// Wire the dispatch core
	callHistory := history.New(cfg.Dispatch.HistoryLimit)
	registry := dispatch.NewRegistry()
	router := dispatch.NewRouter(dispatch.RouterOptions{
		Directory:    directory,
		History:      callHistory,
		Registry:     registry,
		Fetcher:      fetcher,
		Archive:      archive,
		Metrics:      metricsCollector,
		Logger:       log,
		DisplayTTL:   time.Duration(cfg.Dispatch.DisplayTTL) * time.Second,
		FetchTimeout: time.Duration(cfg.Directions.TimeoutSeconds) * time.Second,
	})

	// Start the web server
	api := web.NewAPI(cfg.Server.Name, directory, registry, callHistory, archiveRepo, cfg.Dispatch.StatusPosts, log)
	webServer := web.NewServer(cfg.Web, router, api, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := webServer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("Web server error", logger.Error(err))
		}
	}()

	log.Info("Dispatch-Relay initialized",
		logger.String("server_name", cfg.Server.Name))

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info("Received shutdown signal",
		logger.String("signal", sig.String()))

	// Cancel context to trigger graceful shutdown
	cancel()

	// Wait for all components to stop
	wg.Wait()

	log.Info("Dispatch-Relay stopped")
}

// runArchiveSweep deletes archive rows older than the retention window, once
// at startup and then daily, until ctx is cancelled.
func runArchiveSweep(ctx context.Context, repo *database.CallRepository, retentionDays int, log *logger.Logger) {
	retention := time.Duration(retentionDays) * 24 * time.Hour

	sweep := func() {
		deleted, err := repo.DeleteOlderThan(time.Now().Add(-retention))
		if err != nil {
			log.Error("Archive retention sweep failed", logger.Error(err))
			return
		}
		if deleted > 0 {
			log.Info("Archive retention sweep",
				logger.Int("deleted", int(deleted)),
				logger.Int("retention_days", retentionDays))
		}
	}

	sweep()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
