// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Shortly is a self-hosted short-link service with click analytics:
// password-protected links, deferred IP enrichment, and an optional
// client-side telemetry beacon.
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
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/shortly-go/internal/cache"
	"github.com/olegiv/shortly-go/internal/config"
	"github.com/olegiv/shortly-go/internal/enrich"
	"github.com/olegiv/shortly-go/internal/geoip"
	"github.com/olegiv/shortly-go/internal/handler"
	"github.com/olegiv/shortly-go/internal/ipintel"
	"github.com/olegiv/shortly-go/internal/jobs"
	"github.com/olegiv/shortly-go/internal/logging"
	"github.com/olegiv/shortly-go/internal/middleware"
	"github.com/olegiv/shortly-go/internal/resolver"
	"github.com/olegiv/shortly-go/internal/store"
	"github.com/olegiv/shortly-go/internal/tracker"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Shortly - short links with click analytics\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SHORTLY_DB_PATH         SQLite database path (default: ./data/shortly.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SHORTLY_SERVER_PORT     Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SHORTLY_BASE_URL        Public base URL (default: http://localhost:8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SHORTLY_API_TOKEN       Bearer token for the management API (empty disables it)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SHORTLY_REDIS_URL       Redis URL for the link cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SHORTLY_GEOIP_DB_PATH   Path to a GeoLite2-City database (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SHORTLY_BEACON_ENABLED  Serve the telemetry staging page (default: false)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		fmt.Printf("shortly %s (%s)\n", appVersion, appGitCommit)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	// Database
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Upgrade the logger: WARN and above also land in the event log now
	// that the database is up.
	logger = slog.New(logging.NewEventLogHandler(textHandler, store.New(db)))
	slog.SetDefault(logger)

	ctx := context.Background()

	if err := store.Seed(ctx, db, cfg.DoSeed); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	// Optional Redis link cache
	var linkCache *cache.LinkCache
	if cfg.UseRedisCache() {
		linkCache, err = cache.New(ctx, cfg.RedisURL, cfg.CachePrefix+"link:", time.Duration(cfg.CacheTTL)*time.Second)
		if err != nil {
			return fmt.Errorf("connecting link cache: %w", err)
		}
		defer func() { _ = linkCache.Close() }()
		logger.Info("redis link cache enabled")
	}

	// GeoIP database (optional)
	geo := geoip.NewLookup()
	if cfg.GeoIPEnabled() {
		if err := geo.Init(cfg.GeoIPDBPath); err != nil {
			logger.Warn("geoip init failed, continuing without local geolocation", "error", err)
		} else {
			defer func() { _ = geo.Close() }()
		}
	}

	// External IP intelligence and Tor detection (optional)
	var intel *ipintel.Client
	if cfg.IPIntelEnabled() {
		intel = ipintel.NewClient(cfg.IPIntelURL, cfg.IPIntelToken)
	}
	tor := ipintel.NewTorChecker(cfg.TorCheckURL, cfg.TorExitListURL)

	// Enrichment worker pool
	enricher := enrich.NewDispatcher(db, logger, geo, intel, tor, enrich.Config{
		Workers:       cfg.EnrichWorkers,
		LookupTimeout: cfg.EnrichTimeout(),
	})
	enricher.Start(ctx)
	defer enricher.Stop()

	// Resolution pipeline
	recorder := tracker.NewRecorder(db, logger)
	svc := resolver.NewService(db, recorder, linkCache, logger)

	// Handlers
	redirectHandler, err := handler.NewRedirectHandler(db, svc, enricher, logger, cfg.BeaconEnabled, cfg.BeaconGraceDelay)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	publicLimiter := middleware.NewGlobalRateLimiter(10.0, 20)
	apiLimiter := middleware.NewGlobalRateLimiter(100, 200)

	router := handler.NewRouter(handler.RouterConfig{
		Redirect:      redirectHandler,
		Telemetry:     handler.NewTelemetryHandler(db, logger),
		Links:         handler.NewLinksHandler(db, linkCache, logger, cfg.BaseURL),
		Health:        handler.NewHealthHandler(db, appVersion),
		APIToken:      cfg.APIToken,
		PublicLimiter: publicLimiter,
		APILimiter:    apiLimiter,
	})

	// Background maintenance
	scheduler := jobs.NewScheduler(db, logger)
	scheduler.Start(jobs.Config{
		RetentionDays: cfg.ClickRetentionDays,
		Geo:           geo,
		Tor:           tor,
		Limiters:      []*middleware.GlobalRateLimiter{publicLimiter, apiLimiter},
	})
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", cfg.ServerAddr(),
			"env", cfg.Env,
			"beacon", cfg.BeaconEnabled,
			"api", cfg.APIEnabled())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
