package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dpup/trailplanner/server/internal/cache"
	catalogclient "github.com/dpup/trailplanner/server/internal/clients/catalog"
	"github.com/dpup/trailplanner/server/internal/clients/source"
	"github.com/dpup/trailplanner/server/internal/clients/trail"
	"github.com/dpup/trailplanner/server/internal/config"
	"github.com/dpup/trailplanner/server/internal/lib/routing"
	"github.com/dpup/trailplanner/server/internal/logging"
	"github.com/dpup/trailplanner/server/internal/server"
	"github.com/dpup/trailplanner/server/internal/services"
	"github.com/dpup/trailplanner/server/internal/store"
)

func main() {
	configPath := flag.String("config", "trailplanner.yaml", "path to the YAML config file")
	flag.Parse()

	appConfig, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(appConfig.Logging.Level, appConfig.Logging.Development)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(logging.With(context.Background(), logger), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, appConfig, logger); err != nil {
		logger.Fatalw("Server failed", "error", err)
	}
}

func run(ctx context.Context, appConfig *config.Config, logger *zap.SugaredLogger) error {
	backend, closeCache, err := openCache(ctx, appConfig.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	trackFormat, err := trail.ParseFormat(appConfig.Trail.TrackFormat)
	if err != nil {
		return err
	}
	fetcher := source.NewFetcher(appConfig.Trail.HTTPTimeout)
	trailClient := trail.NewClient(fetcher, appConfig.Trail.TrackSource, trackFormat)
	catalogClient := catalogclient.NewClient(fetcher, appConfig.Trail.CatalogSource)

	matcher := routing.NewMatcher()
	if err := matcher.SetThresholds(routing.Thresholds{
		OnTrailMeters:   appConfig.Planner.OnTrailThresholdM,
		NearTrailMeters: appConfig.Planner.NearTrailThresholdM,
	}); err != nil {
		return err
	}

	snapshots := services.NewSnapshotService(trailClient, catalogClient, backend, matcher, appConfig.Cache.TTL)

	plans, err := openStore(ctx, appConfig.Store)
	if err != nil {
		return err
	}
	if plans != nil {
		defer plans.Close()
	}

	planner := services.NewPlannerService(snapshots, matcher, plans)

	logger.Infow("Trail planner starting",
		"track_source", trailClient.Source(),
		"catalog_source", catalogClient.Source(),
		"cache_backend", appConfig.Cache.Backend,
		"store_driver", appConfig.Store.Driver)

	periodicRefresh := services.NewPeriodicRefreshService(snapshots, appConfig.Trail.RefreshInterval)
	if err := periodicRefresh.StartPeriodicRefresh(ctx); err != nil {
		logger.Warnw("Failed to start periodic refresh", "error", err)
	}
	defer periodicRefresh.Stop()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", appConfig.Server.Port),
		Handler:           server.New(planner, appConfig.Server.CorsOrigins, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infow("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Backend, func(), error) {
	if cfg.Backend == "redis" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err := redisCache.Ping(ctx); err != nil {
			_ = redisCache.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return redisCache, func() { _ = redisCache.Close() }, nil
	}

	memory := cache.NewCache()
	cleanupCtx, cancel := context.WithCancel(ctx)
	memory.StartPeriodicCleanup(cleanupCtx, cfg.TTL)
	return memory, cancel, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.PlanStore, error) {
	switch cfg.Driver {
	case "sqlite":
		return store.OpenSQLite(ctx, cfg.DSN)
	case "postgres":
		return store.OpenPostgres(ctx, cfg.DSN)
	}
	logging.Warnw(ctx, "Plan store disabled, save and load are unavailable")
	return nil, nil
}
