package propagation

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/AshleyKelly/EphemGeolocTracker/internal/tle"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/transform"
)

// resolveJob is a unit of work for the worker pool.
type resolveJob struct {
	index int
	entry tle.TLEEntry
	prop  *SGP4Propagator // nil: initialise from entry
}

// resolveResult is the output of a single satellite resolution.
type resolveResult struct {
	index   int
	vector  SatelliteVector
	err     error
	noradID int
}

// WorkerPool manages a fixed number of goroutines for parallel resolution.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// ResolveBatch resolves all entries for obs at t using the worker pool.
// Vectors come back in entry order; failed satellites are logged and skipped.
// The returned counts are successes and failures.
func (wp *WorkerPool) ResolveBatch(ctx context.Context, entries []tle.TLEEntry, obs transform.ObserverPosition, t time.Time) ([]SatelliteVector, int, int) {
	return wp.resolveBatch(ctx, entries, obs, t, nil)
}

func (wp *WorkerPool) resolveBatch(ctx context.Context, entries []tle.TLEEntry, obs transform.ObserverPosition, t time.Time, props map[int]*SGP4Propagator) ([]SatelliteVector, int, int) {
	if len(entries) == 0 {
		return nil, 0, 0
	}

	// GMST is the same for every satellite.
	t = resolveTime(t)
	gmst := transform.GMST(t)

	jobs := make(chan resolveJob, wp.workers*2)
	results := make(chan resolveResult, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := resolveSingle(job, obs, t, gmst)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, entry := range entries {
			job := resolveJob{index: i, entry: entry}
			if p, ok := props[entry.NORADID]; ok && p.matches(entry) {
				job.prop = p
			}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]resolveResult, 0, len(entries))
	var successCount, errorCount int

	for result := range results {
		if result.err != nil {
			errorCount++
			wp.logger.Warn("resolution failed",
				"norad_id", result.noradID,
				"error", result.err,
			)
			continue
		}
		successCount++
		collected = append(collected, result)
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })
	vectors := make([]SatelliteVector, len(collected))
	for i, r := range collected {
		vectors[i] = r.vector
	}

	return vectors, successCount, errorCount
}

// resolveSingle performs SGP4 propagation and the frame transforms for one satellite.
func resolveSingle(job resolveJob, obs transform.ObserverPosition, t time.Time, gmst float64) resolveResult {
	prop := job.prop
	if prop == nil {
		var err error
		prop, err = NewSGP4Propagator(job.entry)
		if err != nil {
			return resolveResult{index: job.index, noradID: job.entry.NORADID, err: err}
		}
	}

	v, err := resolveWith(prop, job.entry.Name, obs, t, gmst)
	return resolveResult{index: job.index, noradID: job.entry.NORADID, vector: v, err: err}
}
