package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/flood-risk-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flood-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/nasapower"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/openweather"
	"github.com/couchcryptid/flood-risk-service/internal/alert"
	"github.com/couchcryptid/flood-risk-service/internal/assessment"
	"github.com/couchcryptid/flood-risk-service/internal/cache"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/monitor"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/repository"
	"github.com/couchcryptid/flood-risk-service/internal/risk"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	if err := run(cfg, logger, metrics, clock); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) error {
	repo, err := repository.New(repository.Config{
		Driver:      cfg.DBDriver,
		SQLitePath:  cfg.SQLitePath,
		PostgresDSN: cfg.PostgresDSN,
	}, repository.WithClock(clock))
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("repository close error", "error", err)
		}
	}()
	logger.Info("repository opened", "driver", cfg.DBDriver)

	soilCache, err := cache.New(cache.Config{
		Type:          cfg.CacheType,
		MaxEntries:    cfg.CacheSize,
		LocalTTL:      cfg.CacheLocalTTL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		return err
	}
	defer soilCache.Close() //nolint:errcheck // best-effort on shutdown
	logger.Info("soil cache ready", "type", cfg.CacheType, "ttl", cfg.SoilCacheTTL)

	nasa := nasapower.NewClient(cfg.NASAPowerURL, cfg.NASAPowerTimeout, metrics, logger)
	soil := nasapower.NewCachedSource(nasa, soilCache, cfg.SoilCacheTTL, metrics, logger)

	svc := assessment.New(assessment.Config{
		Store:        repo,
		Soil:         soil,
		Thresholds:   cfg.Thresholds,
		SoilLookback: cfg.SoilLookback,
		Clock:        clock,
		Logger:       logger,
		Metrics:      metrics,
	})

	ready := httpadapter.ReadyAll{repo}
	var mon *monitor.Monitor
	var alertWriter *kafkaadapter.AlertWriter

	if cfg.MonitorEnabled {
		weather := openweather.NewClient(cfg.OpenWeatherAPIKey, cfg.OpenWeatherURL, cfg.OpenWeatherTimeout, clock, metrics, logger)
		twoFactor, _ := risk.NewRegistry(cfg.Thresholds, clock).Get(risk.StrategyTwoFactor)

		monCfg := monitor.Config{
			Locations: cfg.MonitorLocations,
			Interval:  cfg.MonitorInterval,
			Strategy:  twoFactor,
			Rainfall:  weather,
			Clock:     clock,
			Logger:    logger,
			Metrics:   metrics,
		}
		if cfg.AlertsEnabled {
			policy, err := alert.NewPolicy(cfg.AlertRule)
			if err != nil {
				return err
			}
			alertWriter = kafkaadapter.NewAlertWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)
			monCfg.Policy = policy
			monCfg.Publisher = alertWriter
			logger.Info("flood alerts enabled", "topic", cfg.KafkaAlertTopic, "rule", policy.Rule())
		}

		mon, err = monitor.New(monCfg)
		if err != nil {
			return err
		}
		ready = append(ready, mon)
	} else {
		logger.Info("periodic monitoring disabled")
	}

	opts := httpadapter.Options{
		Assessor: svc,
		Areas:    repo,
		Ready:    ready,
		Logger:   logger,
	}
	if mon != nil {
		opts.Monitor = mon
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start periodic monitoring.
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		if mon == nil {
			return
		}
		if err := mon.Run(ctx); err != nil {
			logger.Error("monitor error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-monitorDone:
	case <-shutdownCtx.Done():
		logger.Warn("monitor did not stop before shutdown timeout")
	}
	if alertWriter != nil {
		if err := alertWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
