package propagation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AshleyKelly/EphemGeolocTracker/internal/metrics"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/tle"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/transform"
)

// Resolve computes the apparent position of one satellite as seen from obs at
// t. It has no side effects. Malformed elements give a *tle.ParseError, SGP4
// failures a *PropagationError.
func Resolve(entry tle.TLEEntry, obs transform.ObserverPosition, t time.Time) (SatelliteVector, error) {
	prop, err := NewSGP4Propagator(entry)
	if err != nil {
		return SatelliteVector{}, err
	}
	t = resolveTime(t)
	return resolveWith(prop, entry.Name, obs, t, transform.GMST(t))
}

// resolveTime is the instant actually propagated to.
func resolveTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// resolveWith propagates prop to t and derives the observer-relative vector.
// gmst must belong to t.
func resolveWith(prop *SGP4Propagator, name string, obs transform.ObserverPosition, t time.Time, gmst float64) (SatelliteVector, error) {
	teme, err := prop.Propagate(t)
	if err != nil {
		return SatelliteVector{}, err
	}

	eq := transform.TopocentricEquatorial(obs, teme, gmst)
	ecef := transform.TEMEToECEFWithGMST(teme, gmst)

	return SatelliteVector{
		NORADID:  prop.NORADID(),
		Name:     name,
		Time:     t,
		RA:       eq.RA,
		Dec:      eq.Dec,
		RangeKm:  eq.RangeKm,
		Look:     transform.ECEFToLookAngles(obs, ecef.X, ecef.Y, ecef.Z),
		SubPoint: transform.ECEFToGeodetic(ecef.X, ecef.Y, ecef.Z),
	}, nil
}

// sgp4Cache holds initialised SGP4 propagators for one TLE dataset.
// Immutable after construction; safe for concurrent reads.
type sgp4Cache struct {
	props     map[int]*SGP4Propagator
	source    string
	fetchedAt time.Time
}

func (c *sgp4Cache) current(ds *tle.TLEDataset) bool {
	return c != nil && c.source == ds.Source && c.fetchedAt.Equal(ds.FetchedAt)
}

// Resolver resolves satellites from the store's current dataset, reusing
// initialised SGP4 models until the dataset changes.
type Resolver struct {
	store  *tle.Store
	pool   *WorkerPool
	config ResolverConfig
	logger *slog.Logger
	sgp4   atomic.Pointer[sgp4Cache]
	sgp4Mu sync.Mutex // serializes cache rebuilds
}

// NewResolver creates a Resolver backed by store.
func NewResolver(store *tle.Store, config ResolverConfig, logger *slog.Logger) *Resolver {
	metrics.SetResolveWorkers(config.Workers)
	return &Resolver{
		store:  store,
		pool:   NewWorkerPool(config.Workers, logger),
		config: config,
		logger: logger,
	}
}

// cachedProps returns the propagators for ds, rebuilding the cache when the
// dataset has changed (double-checked locking).
func (r *Resolver) cachedProps(ds *tle.TLEDataset) map[int]*SGP4Propagator {
	if c := r.sgp4.Load(); c.current(ds) {
		return c.props
	}

	r.sgp4Mu.Lock()
	defer r.sgp4Mu.Unlock()

	if c := r.sgp4.Load(); c.current(ds) {
		return c.props
	}

	props := make(map[int]*SGP4Propagator, len(ds.Satellites))
	var skipped int
	for _, entry := range ds.Satellites {
		if _, ok := props[entry.NORADID]; ok {
			continue
		}
		sp, err := NewSGP4Propagator(entry)
		if err != nil {
			r.logger.Warn("sgp4 cache init failed", "norad_id", entry.NORADID, "error", err)
			skipped++
			continue
		}
		props[entry.NORADID] = sp
	}

	r.logger.Info("sgp4 propagator cache rebuilt",
		"cached", len(props),
		"skipped", skipped,
		"dataset_fetched_at", ds.FetchedAt.UTC().Format(time.RFC3339),
	)
	r.sgp4.Store(&sgp4Cache{props: props, source: ds.Source, fetchedAt: ds.FetchedAt})
	return props
}

// propagatorFor returns a cached propagator built from the same lines as
// entry, or initialises a new one.
func (r *Resolver) propagatorFor(entry tle.TLEEntry) (*SGP4Propagator, error) {
	if ds := r.store.Get(); ds != nil {
		if p, ok := r.cachedProps(ds)[entry.NORADID]; ok && p.matches(entry) {
			return p, nil
		}
	}
	return NewSGP4Propagator(entry)
}

// Resolve is the package-level Resolve with SGP4 initialisation served from
// the cache when entry belongs to the current dataset.
func (r *Resolver) Resolve(entry tle.TLEEntry, obs transform.ObserverPosition, t time.Time) (SatelliteVector, error) {
	prop, err := r.propagatorFor(entry)
	if err != nil {
		metrics.IncResolve(false)
		return SatelliteVector{}, err
	}
	t = resolveTime(t)
	v, err := resolveWith(prop, entry.Name, obs, t, transform.GMST(t))
	metrics.IncResolve(err == nil)
	return v, err
}

// ResolveID resolves a satellite of the current dataset by NORAD ID.
func (r *Resolver) ResolveID(noradID int, obs transform.ObserverPosition, t time.Time) (SatelliteVector, error) {
	ds := r.store.Get()
	if ds == nil {
		return SatelliteVector{}, fmt.Errorf("no TLE dataset loaded: %w", tle.ErrUnavailable)
	}
	entry, ok := ds.Lookup(noradID)
	if !ok {
		return SatelliteVector{}, fmt.Errorf("NORAD %d: %w", noradID, tle.ErrUnknownSatellite)
	}
	return r.Resolve(entry, obs, t)
}

// ResolveAll resolves every satellite of the current dataset in parallel.
// Satellites that fail are logged and left out.
func (r *Resolver) ResolveAll(ctx context.Context, obs transform.ObserverPosition, t time.Time) ([]SatelliteVector, error) {
	ds := r.store.Get()
	if ds == nil {
		return nil, fmt.Errorf("no TLE dataset loaded: %w", tle.ErrUnavailable)
	}

	props := r.cachedProps(ds)

	r.logger.Debug("resolving",
		"satellite_count", len(ds.Satellites),
		"target_time", t.UTC().Format(time.RFC3339),
		"workers", r.config.Workers,
	)

	start := time.Now()
	vectors, successCount, errorCount := r.pool.resolveBatch(ctx, ds.Satellites, obs, t, props)
	duration := time.Since(start)

	metrics.RecordResolveBatch(duration, successCount, errorCount)

	r.logger.Debug("resolution complete",
		"success", successCount,
		"errors", errorCount,
		"duration_ms", duration.Milliseconds(),
	)

	if err := ctx.Err(); err != nil {
		return vectors, err
	}
	return vectors, nil
}
