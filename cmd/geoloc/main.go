package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AshleyKelly/EphemGeolocTracker/internal/api"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/config"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/estimate"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/metrics"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/propagation"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/tle"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/tracing"
)

func main() {
	level, levelOK := config.LogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	if !levelOK {
		logger.Warn("invalid GEOLOC_LOG_LEVEL value, using info", "value", os.Getenv("GEOLOC_LOG_LEVEL"))
	}

	addr := config.HTTPAddr()

	authCfg, err := config.Auth(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, config.Tracing(logger), logger)
	if err != nil {
		logger.Error("tracing init failed", "error", err)
		os.Exit(1)
	}
	defer tracing.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	tleCfg := config.TLE(logger)
	store := tle.NewStore()
	source := tleCfg.NewSource(store, logger)

	// Load the cache first so the service is ready even if the network is down.
	if err := source.LoadCache(); err != nil {
		logger.Info("no usable TLE cache, starting without TLE data", "error", err)
	}
	if tleCfg.EnableFetch {
		go func() {
			if _, err := source.Refresh(ctx); err != nil {
				logger.Warn("initial TLE fetch failed", "error", err)
			}
		}()
	}

	resolver := propagation.NewResolver(store, config.Resolver(logger), logger)
	est := estimate.New(source, resolver, logger)

	apiCfg := config.API(logger)
	apiCfg.EnableFetch = tleCfg.EnableFetch
	observer := config.Observer(logger).Position()
	apiCfg.DefaultObserver = &observer

	srv := api.NewServer(addr, logger, authCfg, apiCfg, source, est)

	// Background goroutine to update TLE dataset age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				age := store.AgeSeconds()
				if age >= 0 {
					metrics.SetTLEDatasetAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled, "tle_fetch_enabled", tleCfg.EnableFetch)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
