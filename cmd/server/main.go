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
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/zerodelay-service/internal/adapter/cache"
	"github.com/couchcryptid/zerodelay-service/internal/adapter/catalog"
	httpadapter "github.com/couchcryptid/zerodelay-service/internal/adapter/http"
	"github.com/couchcryptid/zerodelay-service/internal/adapter/jma"
	kafkaadapter "github.com/couchcryptid/zerodelay-service/internal/adapter/kafka"
	"github.com/couchcryptid/zerodelay-service/internal/adapter/postgres"
	"github.com/couchcryptid/zerodelay-service/internal/adapter/sqlite"
	"github.com/couchcryptid/zerodelay-service/internal/advisory"
	"github.com/couchcryptid/zerodelay-service/internal/config"
	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/couchcryptid/zerodelay-service/internal/observability"
	"github.com/couchcryptid/zerodelay-service/internal/settings"
	"github.com/couchcryptid/zerodelay-service/internal/shelter"
)

// readiness is ready when every check passes.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

// pinger adapts a Ping method to a readiness check.
type pinger func(ctx context.Context) error

func (p pinger) CheckReadiness(ctx context.Context) error { return p(ctx) }

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Error("close error", "error", err)
			}
		}
	}

	// Advisory normalizer, optionally behind a summary cache.
	client := jma.NewClient(cfg.JMABaseURL, cfg.JMATimeout, metrics, logger)
	alertSvc := advisory.NewService(client, logger, metrics)

	// Without the watcher nothing would retry the feed before traffic
	// arrives, so feed readiness is only gated on when it runs.
	var checks readiness
	if cfg.AlertWatchEnabled {
		checks = append(checks, alertSvc)
	}

	var alerts advisory.Summarizer = alertSvc
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(cfg.RedisURL, cfg.AlertCacheTTL)
		if err != nil {
			logger.Error("failed to configure redis cache", "error", err)
			os.Exit(1)
		}
		closers = append(closers, rc.Close)
		checks = append(checks, pinger(rc.Ping))
		alerts = advisory.NewCached(alertSvc, rc, logger, metrics)
		logger.Info("summary cache: redis", "ttl", cfg.AlertCacheTTL)
	} else {
		mc := cache.NewMemory(cfg.AlertCacheSize, cfg.AlertCacheTTL, nil)
		alerts = advisory.NewCached(alertSvc, mc, logger, metrics)
		logger.Info("summary cache: memory", "ttl", cfg.AlertCacheTTL, "size", cfg.AlertCacheSize)
	}

	shelterStore, err := openShelterStore(ctx, cfg, logger, &closers, &checks)
	if err != nil {
		logger.Error("failed to open shelter catalog", "error", err)
		closeAll()
		os.Exit(1)
	}
	shelterSvc := shelter.NewService(shelterStore, domain.Position{Lat: cfg.FallbackLat, Lng: cfg.FallbackLng}, logger, metrics)

	settingsRepo, err := sqlite.Open(ctx, cfg.SettingsDB)
	if err != nil {
		logger.Error("failed to open settings database", "error", err, "path", cfg.SettingsDB)
		closeAll()
		os.Exit(1)
	}
	closers = append(closers, settingsRepo.Close)
	checks = append(checks, settingsRepo)
	settingsSvc := settings.NewService(settingsRepo, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Alerts:        alerts,
		DefaultRegion: domain.Region(cfg.DefaultRegion),
		Shelters:      shelterSvc,
		Settings:      settingsSvc,
		Ready:         checks,
	}, logger, metrics)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start feed watcher.
	if cfg.AlertWatchEnabled {
		var publisher advisory.Publisher
		if cfg.PublishEnabled() {
			writer := kafkaadapter.NewWriter(cfg, logger)
			closers = append(closers, writer.Close)
			publisher = writer
		}
		w := advisory.NewWatcher(alertSvc, publisher, domain.Region(cfg.DefaultRegion), cfg.AlertPollInterval, logger, metrics)
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Error("feed watcher error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	closeAll()

	logger.Info("shutdown complete")
}

// openShelterStore picks the catalog backend: Postgres, then a YAML file, then
// a remote JSON document, then the embedded default.
func openShelterStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, closers *[]func() error, checks *readiness) (shelter.Store, error) {
	switch {
	case cfg.DatabaseURL != "":
		store, err := postgres.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, store.Close)
		*checks = append(*checks, store)
		logger.Info("shelter catalog: postgres")
		return store, nil

	case cfg.SheltersFile != "":
		store, err := catalog.LoadFile(cfg.SheltersFile)
		if err != nil {
			return nil, err
		}
		logger.Info("shelter catalog: file", "path", cfg.SheltersFile, "shelters", store.Len())
		return store, nil

	case cfg.SheltersURL != "":
		fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		store, err := catalog.FetchRemote(fetchCtx, cfg.SheltersURL, 10*time.Second)
		if err != nil {
			return nil, fmt.Errorf("remote catalog: %w", err)
		}
		logger.Info("shelter catalog: remote", "url", cfg.SheltersURL, "shelters", store.Len())
		return store, nil

	default:
		store, err := catalog.Default()
		if err != nil {
			return nil, err
		}
		logger.Info("shelter catalog: embedded default", "shelters", store.Len())
		return store, nil
	}
}
