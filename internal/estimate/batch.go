package estimate

import (
	"context"
	"slices"
	"runtime"
	"sync"
)

// BatchResult is one entry of EstimateBatch, in request order.
type BatchResult struct {
	Estimate *Estimate
	Err      error
}

// EstimateBatch runs independent estimates concurrently, at most
// runtime.NumCPU() at a time. A failing request does not affect the others.
// Element data is refreshed at most once for the whole batch; every item then
// reads that snapshot.
func (e *Estimator) EstimateBatch(ctx context.Context, reqs []Request) []BatchResult {
	results := make([]BatchResult, len(reqs))
	reqs = e.refreshOnce(ctx, reqs)
	sem := make(chan struct{}, runtime.NumCPU())

	var wg sync.WaitGroup
	for i, req := range reqs {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			for j := i; j < len(reqs); j++ {
				results[j].Err = ctx.Err()
			}
			wg.Wait()
			return results
		}

		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			defer func() { <-sem }()
			est, err := e.Estimate(ctx, req)
			results[i] = BatchResult{Estimate: est, Err: err}
		}(i, req)
	}

	wg.Wait()
	return results
}

// refreshOnce refreshes the source if any request asks for fresh data and
// returns a copy of reqs that reads from the loaded dataset. A failed refresh
// is not fatal: each item then falls back to the cache on its own and reports
// ErrUnavailable if nothing is there.
func (e *Estimator) refreshOnce(ctx context.Context, reqs []Request) []Request {
	if !slices.ContainsFunc(reqs, func(r Request) bool { return !r.PreferCache }) {
		return reqs
	}
	if _, err := e.source.FetchAll(ctx, nil, false); err != nil {
		e.logger.Warn("batch refresh failed", "requests", len(reqs), "error", err)
	}

	out := slices.Clone(reqs)
	for i := range out {
		out[i].PreferCache = true
	}
	return out
}
