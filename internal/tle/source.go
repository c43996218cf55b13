package tle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AshleyKelly/EphemGeolocTracker/internal/metrics"
)

const tracerName = "github.com/AshleyKelly/EphemGeolocTracker/internal/tle"

// errFetchDisabled is the fallback cause when no fetcher is configured.
var errFetchDisabled = errors.New("network fetch disabled")

// Source supplies element sets, preferring fresh network data and falling
// back to the local cache file when the network is unavailable.
//
// The cache file is read once by LoadCache (or lazily on the first fallback)
// and overwritten only after a successful fetch.
type Source struct {
	fetcher *Fetcher // nil disables network fetches
	cache   *Cache
	store   *Store
	logger  *slog.Logger
	now     func() time.Time
}

// NewSource creates a Source. A nil fetcher makes the source cache-only.
func NewSource(fetcher *Fetcher, cache *Cache, store *Store, logger *slog.Logger) *Source {
	return &Source{
		fetcher: fetcher,
		cache:   cache,
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
}

// Store returns the dataset store the source writes to.
func (s *Source) Store() *Store {
	return s.store
}

// LoadCache reads the cache file into the store.
func (s *Source) LoadCache() error {
	s.store.lockFetch()
	defer s.store.unlockFetch()

	_, err := s.loadCache()
	return err
}

// loadCache must be called with the store's fetch lock held.
func (s *Source) loadCache() (*TLEDataset, error) {
	data, ts, err := s.cache.Load()
	if err != nil {
		return nil, err
	}

	entries, err := Parse(bytes.NewReader(data), s.logger)
	if err != nil {
		return nil, fmt.Errorf("parsing cached TLE data: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("cache file %s holds no valid entries: %w", s.cache.Path(), ErrUnavailable)
	}

	ds := NewDataset("cache", ts, entries)
	s.store.Set(ds)
	s.logger.Info("loaded TLE data from cache",
		"count", len(entries),
		"path", s.cache.Path(),
		"cached_at", ts.UTC().Format(time.RFC3339),
	)
	return ds, nil
}

// Refresh fetches fresh element data, writes it to the cache and publishes it
// to the store. When the fetch fails, the current dataset (or the cache file)
// is returned instead; ErrUnavailable is reported only when neither exists.
func (s *Source) Refresh(ctx context.Context) (*TLEDataset, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "tle.Refresh")
	defer span.End()

	s.store.lockFetch()
	defer s.store.unlockFetch()

	if s.fetcher == nil {
		ds, err := s.fallback(errFetchDisabled)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return ds, err
	}

	start := s.now()
	data, err := s.fetcher.Fetch(ctx)
	if err == nil {
		ds, perr := s.publish(data, start)
		if perr == nil {
			span.SetAttributes(
				attribute.String("tle.source", ds.Source),
				attribute.Int("tle.count", len(ds.Satellites)),
			)
			return ds, nil
		}
		err = perr
	}

	s.logger.Warn("TLE fetch failed, falling back to cache", "url", s.fetcher.SourceURL(), "error", err)
	metrics.IncEphemerisFetch("failed")

	ds, ferr := s.fallback(err)
	if ferr != nil {
		span.RecordError(ferr)
		span.SetStatus(codes.Error, ferr.Error())
		return nil, ferr
	}
	span.SetAttributes(attribute.String("tle.source", ds.Source), attribute.Bool("tle.fallback", true))
	return ds, nil
}

// publish parses fetched data, overwrites the cache and replaces the dataset.
func (s *Source) publish(data []byte, fetchedAt time.Time) (*TLEDataset, error) {
	entries, err := Parse(bytes.NewReader(data), s.logger)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("response contained no valid TLE entries")
	}

	if err := s.cache.Write(data); err != nil {
		// The fetched data is still good; only persistence failed.
		s.logger.Warn("failed to write TLE cache", "path", s.cache.Path(), "error", err)
	}

	ds := NewDataset(s.fetcher.SourceURL(), fetchedAt, entries)
	s.store.Set(ds)
	metrics.IncEphemerisFetch("network")
	s.logger.Info("TLE data fetched",
		"count", len(entries),
		"source", ds.Source,
		"epoch_min", ds.EpochRange.Min.UTC().Format(time.RFC3339),
		"epoch_max", ds.EpochRange.Max.UTC().Format(time.RFC3339),
	)
	return ds, nil
}

// fallback returns the loaded dataset or reads the cache file. Must be called
// with the store's fetch lock held.
func (s *Source) fallback(cause error) (*TLEDataset, error) {
	if ds := s.store.Get(); ds != nil && len(ds.Satellites) > 0 {
		metrics.IncEphemerisFetch("cache_fallback")
		return ds, nil
	}

	ds, err := s.loadCache()
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, fmt.Errorf("%w (fetch: %v)", err, cause)
		}
		return nil, fmt.Errorf("%w: fetch: %v; cache: %v", ErrUnavailable, cause, err)
	}
	metrics.IncEphemerisFetch("cache_fallback")
	return ds, nil
}

// FetchSatelliteList refreshes the dataset (falling back to the cache) and
// returns the satellites it contains, in file order.
func (s *Source) FetchSatelliteList(ctx context.Context) ([]Satellite, error) {
	ds, err := s.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return ds.List(), nil
}

// FetchElements returns the element set for one satellite. With preferCache
// the already-loaded data is used and the network is not touched.
func (s *Source) FetchElements(ctx context.Context, noradID int, preferCache bool) (TLEEntry, error) {
	entries, err := s.FetchAll(ctx, []int{noradID}, preferCache)
	if err != nil {
		return TLEEntry{}, err
	}
	return entries[0], nil
}

// FetchAll returns the element sets for several satellites from one dataset
// snapshot, so all of them come from the same fetch.
func (s *Source) FetchAll(ctx context.Context, noradIDs []int, preferCache bool) ([]TLEEntry, error) {
	ds, err := s.dataset(ctx, preferCache)
	if err != nil {
		return nil, err
	}

	out := make([]TLEEntry, 0, len(noradIDs))
	for _, id := range noradIDs {
		entry, ok := ds.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("NORAD %d: %w", id, ErrUnknownSatellite)
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *Source) dataset(ctx context.Context, preferCache bool) (*TLEDataset, error) {
	if !preferCache {
		return s.Refresh(ctx)
	}
	if ds := s.store.Get(); ds != nil && len(ds.Satellites) > 0 {
		return ds, nil
	}

	s.store.lockFetch()
	defer s.store.unlockFetch()
	return s.fallback(errors.New("cache preferred"))
}
