// Package config loads service and CLI settings from GEOLOC_* environment
// variables. Invalid values are logged and replaced by the default, except
// for auth where a half-configured setup is refused.
package config

import (
	"errors"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/AshleyKelly/EphemGeolocTracker/internal/api"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/auth"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/propagation"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/tle"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/tracing"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/transform"
)

// HTTPAddr returns the listen address, ":8080" by default.
func HTTPAddr() string {
	if v := os.Getenv("GEOLOC_HTTP_ADDR"); v != "" {
		return v
	}
	return ":8080"
}

// LogLevel parses GEOLOC_LOG_LEVEL (debug|info|warn|error). It runs before a
// logger exists, so a bad value is returned as ok=false for the caller to
// report.
func LogLevel() (level slog.Level, ok bool) {
	v := os.Getenv("GEOLOC_LOG_LEVEL")
	if v == "" {
		return slog.LevelInfo, true
	}
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelInfo, false
	}
	return level, true
}

// Auth loads bearer-token auth settings.
func Auth(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("GEOLOC_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("GEOLOC_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("GEOLOC_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("GEOLOC_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

// TLEConfig holds ephemeris source settings.
type TLEConfig struct {
	EnableFetch bool
	SourceURL   string // empty: CelesTrak stations group
	ExtraURLs   []string
	CacheFile   string
}

// TLE loads ephemeris source settings.
func TLE(logger *slog.Logger) TLEConfig {
	cfg := TLEConfig{
		EnableFetch: true,
		CacheFile:   tle.DefaultCacheFile,
	}

	if v := os.Getenv("GEOLOC_ENABLE_TLE_FETCH"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid GEOLOC_ENABLE_TLE_FETCH value, using default", "value", v, "default", cfg.EnableFetch)
		} else {
			cfg.EnableFetch = enabled
		}
	}

	if v := os.Getenv("GEOLOC_TLE_SOURCE_URL"); v != "" {
		cfg.SourceURL = v
	}

	if v := os.Getenv("GEOLOC_TLE_EXTRA_URLS"); v != "" {
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.ExtraURLs = append(cfg.ExtraURLs, u)
			}
		}
	}

	if v := os.Getenv("GEOLOC_TLE_CACHE_FILE"); v != "" {
		cfg.CacheFile = v
	}

	logger.Info("TLE config",
		"fetch_enabled", cfg.EnableFetch,
		"source_url", cfg.SourceURL,
		"extra_urls", cfg.ExtraURLs,
		"cache_file", cfg.CacheFile,
	)

	return cfg
}

// NewSource builds the ephemeris source described by cfg. With fetching
// disabled the source is cache-only.
func (cfg TLEConfig) NewSource(store *tle.Store, logger *slog.Logger) *tle.Source {
	var fetcher *tle.Fetcher
	if cfg.EnableFetch {
		fetcher = tle.NewFetcher(cfg.SourceURL, logger, cfg.ExtraURLs...)
	}
	return tle.NewSource(fetcher, tle.NewCache(cfg.CacheFile), store, logger)
}

// Resolver loads the resolver worker pool size.
func Resolver(logger *slog.Logger) propagation.ResolverConfig {
	cfg := propagation.ResolverConfig{Workers: runtime.NumCPU()}

	if v := os.Getenv("GEOLOC_RESOLVE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid GEOLOC_RESOLVE_WORKERS value, using default", "value", v, "default", cfg.Workers)
		} else {
			cfg.Workers = n
		}
	}

	logger.Info("resolver config", "workers", cfg.Workers)
	return cfg
}

// Default observer: Huntsville, AL.
const (
	DefaultObserverLat  = 34.7304
	DefaultObserverLon  = -86.5861
	DefaultObserverElev = 200.0
)

// ObserverConfig is the default observer location, degrees and metres.
type ObserverConfig struct {
	LatDeg, LonDeg, ElevM float64
}

// Position converts the location to an ObserverPosition.
func (o ObserverConfig) Position() transform.ObserverPosition {
	return transform.NewObserverPosition(o.LatDeg, o.LonDeg, o.ElevM)
}

// Observer loads the default observer location.
func Observer(logger *slog.Logger) ObserverConfig {
	cfg := ObserverConfig{
		LatDeg: DefaultObserverLat,
		LonDeg: DefaultObserverLon,
		ElevM:  DefaultObserverElev,
	}

	cfg.LatDeg = floatEnv(logger, "GEOLOC_OBSERVER_LAT", cfg.LatDeg, -90, 90)
	cfg.LonDeg = floatEnv(logger, "GEOLOC_OBSERVER_LON", cfg.LonDeg, -180, 180)
	cfg.ElevM = floatEnv(logger, "GEOLOC_OBSERVER_ELEV", cfg.ElevM, -500, 100000)

	logger.Info("observer config",
		"lat_deg", cfg.LatDeg,
		"lon_deg", cfg.LonDeg,
		"elev_m", cfg.ElevM,
	)
	return cfg
}

// API loads HTTP handler limits.
func API(logger *slog.Logger) api.Config {
	cfg := api.DefaultConfig()

	if v := os.Getenv("GEOLOC_VECTORS_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid GEOLOC_VECTORS_MAX_CONCURRENT value, using default", "value", v, "default", cfg.MaxVectorsPerIP)
		} else {
			cfg.MaxVectorsPerIP = n
		}
	}

	if v := os.Getenv("GEOLOC_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid GEOLOC_TRUST_PROXY value, using default", "value", v, "default", cfg.TrustProxy)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("api config",
		"vectors_max_concurrent_per_ip", cfg.MaxVectorsPerIP,
		"trust_proxy", cfg.TrustProxy,
	)
	return cfg
}

// Tracing loads OpenTelemetry settings.
func Tracing(logger *slog.Logger) tracing.Config {
	cfg := tracing.DefaultConfig()

	if v := os.Getenv("GEOLOC_TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid GEOLOC_TRACING_ENABLED value, using default", "value", v, "default", cfg.Enabled)
		} else {
			cfg.Enabled = enabled
		}
	}
	if v := os.Getenv("GEOLOC_TRACING_EXPORTER"); v != "" {
		cfg.Exporter = strings.ToLower(v)
	}
	if v := os.Getenv("GEOLOC_TRACING_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("GEOLOC_TRACING_SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}
	cfg.SampleRatio = floatEnv(logger, "GEOLOC_TRACING_SAMPLE_RATIO", cfg.SampleRatio, 0, 1)

	return cfg
}

// floatEnv reads a float in [min, max], keeping def on absence or error.
func floatEnv(logger *slog.Logger, key string, def, min, max float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < min || f > max {
		logger.Warn("invalid "+key+" value, using default", "value", v, "default", def)
		return def
	}
	return f
}
