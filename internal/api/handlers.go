package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/AshleyKelly/EphemGeolocTracker/internal/estimate"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/httputil"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/propagation"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/tle"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/transform"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/trilateration"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type handlers struct {
	cfg     Config
	source  *tle.Source
	store   *tle.Store
	est     *estimate.Estimator
	limiter *ipLimiter
	logger  *slog.Logger
	now     func() time.Time
}

func newHandlers(cfg Config, source *tle.Source, est *estimate.Estimator, logger *slog.Logger) *handlers {
	return &handlers{
		cfg:     cfg,
		source:  source,
		store:   source.Store(),
		est:     est,
		limiter: newIPLimiter(cfg.MaxVectorsPerIP, cfg.MaxVectorsTotal),
		logger:  logger,
		now:     time.Now,
	}
}

type metadataResponse struct {
	Source     string    `json:"source"`
	FetchedAt  time.Time `json:"fetched_at"`
	Count      int       `json:"count"`
	EpochMin   time.Time `json:"epoch_min"`
	EpochMax   time.Time `json:"epoch_max"`
	AgeSeconds float64   `json:"age_seconds"`
}

func (h *handlers) metadata(ds *tle.TLEDataset) metadataResponse {
	return metadataResponse{
		Source:     ds.Source,
		FetchedAt:  ds.FetchedAt.UTC(),
		Count:      len(ds.Satellites),
		EpochMin:   ds.EpochRange.Min,
		EpochMax:   ds.EpochRange.Max,
		AgeSeconds: h.now().Sub(ds.FetchedAt).Seconds(),
	}
}

// dataset returns the loaded dataset or writes a 503.
func (h *handlers) dataset(w http.ResponseWriter) (*tle.TLEDataset, bool) {
	ds := h.store.Get()
	if ds == nil || len(ds.Satellites) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no TLE data loaded", Kind: "unavailable"})
		return nil, false
	}
	return ds, true
}

// GET /api/v1/tle/metadata
func (h *handlers) tleMetadata(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.metadata(ds))
}

// POST /api/v1/tle/fetch
func (h *handlers) tleFetch(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.EnableFetch {
		writeError(w, http.StatusForbidden, "TLE fetch is disabled")
		return
	}
	ds, err := h.source.Refresh(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.metadata(ds))
}

type satellitesResponse struct {
	Count      int             `json:"count"`
	Satellites []tle.Satellite `json:"satellites"`
}

// GET /api/v1/satellites
func (h *handlers) satellites(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w)
	if !ok {
		return
	}
	list := ds.List()
	writeJSON(w, http.StatusOK, satellitesResponse{Count: len(list), Satellites: list})
}

// GET /api/v1/satellites/{norad_id}
func (h *handlers) satellite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("norad_id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "norad_id must be a positive integer")
		return
	}
	ds, ok := h.dataset(w)
	if !ok {
		return
	}
	entry, found := ds.Lookup(id)
	if !found {
		writeDomainError(w, h.logger, fmt.Errorf("NORAD %d: %w", id, tle.ErrUnknownSatellite))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type vectorsResponse struct {
	Time     time.Time                     `json:"time"`
	Observer transform.GeodeticPoint       `json:"observer"`
	Count    int                           `json:"count"`
	Vectors  []propagation.SatelliteVector `json:"vectors"`
}

// GET /api/v1/vectors?lat=&lon=&alt=&time=
func (h *handlers) vectors(w http.ResponseWriter, r *http.Request) {
	ip := httputil.ClientIP(r, h.cfg.TrustProxy)
	if !h.limiter.acquire(ip) {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "too many concurrent vector requests")
		return
	}
	defer h.limiter.release(ip)

	q := r.URL.Query()
	obs, err := h.observerFromQuery(q.Get("lat"), q.Get("lon"), q.Get("alt"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	t := h.now()
	if v := q.Get("time"); v != "" {
		t, err = time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "time must be RFC 3339")
			return
		}
	}

	vs, err := h.est.Vectors(r.Context(), obs, t)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	t = t.UTC().Truncate(time.Second)
	writeJSON(w, http.StatusOK, vectorsResponse{
		Time:     t,
		Observer: transform.GeodeticPoint{LatDeg: obs.LatDeg(), LonDeg: obs.LonDeg(), AltM: obs.AltM},
		Count:    len(vs),
		Vectors:  vs,
	})
}

func (h *handlers) observerFromQuery(lat, lon, alt string) (transform.ObserverPosition, error) {
	if lat == "" && lon == "" {
		if h.cfg.DefaultObserver == nil {
			return transform.ObserverPosition{}, &trilateration.PreconditionError{Param: "observer", Reason: "lat and lon are required"}
		}
		return *h.cfg.DefaultObserver, nil
	}

	var vals [3]float64
	for i, s := range [3]string{lat, lon, alt} {
		if s == "" && i == 2 {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return transform.ObserverPosition{}, &trilateration.PreconditionError{
				Param:  [3]string{"lat", "lon", "alt"}[i],
				Reason: fmt.Sprintf("%q is not a number", s),
			}
		}
		vals[i] = v
	}

	obs := transform.NewObserverPosition(vals[0], vals[1], vals[2])
	if err := obs.Validate(); err != nil {
		return transform.ObserverPosition{}, &trilateration.PreconditionError{Param: "observer", Reason: err.Error()}
	}
	return obs, nil
}

type observerJSON struct {
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	ElevationM float64  `json:"elevation_m"`
}

type trilaterateRequest struct {
	Observer    *observerJSON `json:"observer"`
	Time        *time.Time    `json:"time"`
	Satellites  []int         `json:"satellites"`
	Distances   []float64     `json:"distances"`
	PreferCache bool          `json:"prefer_cache"`
}

// toRequest checks the request shape; value checks are left to the estimator.
func (h *handlers) toRequest(tr trilaterateRequest) (estimate.Request, error) {
	var req estimate.Request

	if len(tr.Satellites) != 3 {
		return req, &trilateration.PreconditionError{Param: "satellites", Reason: fmt.Sprintf("exactly 3 required, got %d", len(tr.Satellites))}
	}
	if len(tr.Distances) != 3 {
		return req, &trilateration.PreconditionError{Param: "distances", Reason: fmt.Sprintf("exactly 3 required, got %d", len(tr.Distances))}
	}
	copy(req.Satellites[:], tr.Satellites)
	copy(req.Distances[:], tr.Distances)
	req.PreferCache = tr.PreferCache
	if tr.Time != nil {
		req.Time = *tr.Time
	}

	switch {
	case tr.Observer == nil:
		if h.cfg.DefaultObserver == nil {
			return req, &trilateration.PreconditionError{Param: "observer", Reason: "observer is required"}
		}
		req.Observer = *h.cfg.DefaultObserver
	case tr.Observer.Lat == nil || tr.Observer.Lon == nil:
		return req, &trilateration.PreconditionError{Param: "observer", Reason: "lat and lon are required"}
	default:
		req.Observer = transform.NewObserverPosition(*tr.Observer.Lat, *tr.Observer.Lon, tr.Observer.ElevationM)
	}
	return req, nil
}

// decode reads a JSON body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// POST /api/v1/trilaterate
func (h *handlers) trilaterate(w http.ResponseWriter, r *http.Request) {
	var body trilaterateRequest
	if !decode(w, r, &body) {
		return
	}
	req, err := h.toRequest(body)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	est, err := h.est.Estimate(r.Context(), req)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

type batchItem struct {
	Index    int                `json:"index"`
	Status   int                `json:"status"`
	Estimate *estimate.Estimate `json:"estimate,omitempty"`
	Error    *errorResponse     `json:"error,omitempty"`
}

type batchResponse struct {
	Count   int         `json:"count"`
	Failed  int         `json:"failed"`
	Results []batchItem `json:"results"`
}

// POST /api/v1/trilaterate/batch
func (h *handlers) trilaterateBatch(w http.ResponseWriter, r *http.Request) {
	var body []trilaterateRequest
	if !decode(w, r, &body) {
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "batch is empty")
		return
	}
	if len(body) > h.cfg.MaxBatch {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch of %d exceeds the limit of %d", len(body), h.cfg.MaxBatch))
		return
	}

	items := make([]batchItem, len(body))
	reqs := make([]estimate.Request, 0, len(body))
	index := make([]int, 0, len(body))
	for i, tr := range body {
		items[i].Index = i
		req, err := h.toRequest(tr)
		if err != nil {
			items[i].fail(err)
			continue
		}
		reqs = append(reqs, req)
		index = append(index, i)
	}

	for j, res := range h.est.EstimateBatch(r.Context(), reqs) {
		i := index[j]
		if res.Err != nil {
			items[i].fail(res.Err)
			continue
		}
		items[i].Status = http.StatusOK
		items[i].Estimate = res.Estimate
	}

	resp := batchResponse{Count: len(items), Results: items}
	for _, it := range items {
		if it.Status != http.StatusOK {
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (it *batchItem) fail(err error) {
	it.Status = statusFor(err)
	it.Error = &errorResponse{Error: err.Error(), Kind: estimate.Outcome(err)}
}
