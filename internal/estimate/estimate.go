// Package estimate runs one signal-origin estimate end to end: element sets
// from the ephemeris source, three resolved satellite vectors, the
// trilateration solve and the sidereal longitude of the result.
package estimate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AshleyKelly/EphemGeolocTracker/internal/metrics"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/propagation"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/tle"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/transform"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/trilateration"
)

const tracerName = "github.com/AshleyKelly/EphemGeolocTracker/internal/estimate"

// ElementSource supplies element sets by NORAD ID. *tle.Source implements it.
type ElementSource interface {
	FetchAll(ctx context.Context, noradIDs []int, preferCache bool) ([]tle.TLEEntry, error)
}

// Request describes one estimate.
type Request struct {
	Observer    transform.ObserverPosition
	Time        time.Time // zero means now
	Satellites  [3]int    // NORAD IDs, distinct
	Distances   [3]float64
	PreferCache bool // use loaded data without refreshing from the network
}

// Estimate is the outcome of one run, as plain data for presentation.
type Estimate struct {
	Observer          transform.GeodeticPoint        `json:"observer"`
	Time              time.Time                      `json:"time"`
	Vectors           [3]propagation.SatelliteVector `json:"vectors"`
	Distances         [3]float64                     `json:"distances"`
	Result            trilateration.Result           `json:"result"`
	SiderealTime      float64                        `json:"sidereal_time"`      // local apparent, radians
	SiderealLongitude float64                        `json:"sidereal_longitude"` // degrees, [0, 360)
}

// Estimator wires the ephemeris source, resolver and solver together.
type Estimator struct {
	source   ElementSource
	resolver *propagation.Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Estimator.
func New(source ElementSource, resolver *propagation.Resolver, logger *slog.Logger) *Estimator {
	return &Estimator{
		source:   source,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// Estimate validates req, fetches the three element sets, resolves them for
// the observer and solves. Selection and distance problems are reported as
// *trilateration.PreconditionError before anything is fetched.
func (e *Estimator) Estimate(ctx context.Context, req Request) (*Estimate, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "estimate.Estimate")
	defer span.End()

	start := time.Now()
	if req.Time.IsZero() {
		req.Time = e.now()
	}
	span.SetAttributes(
		attribute.IntSlice("satellites", req.Satellites[:]),
		attribute.Float64Slice("distances", req.Distances[:]),
		attribute.String("time", req.Time.UTC().Format(time.RFC3339)),
	)

	est, err := e.estimate(ctx, req)

	outcome := Outcome(err)
	metrics.IncSolve(outcome)
	metrics.ObserveEstimateDuration(time.Since(start))
	span.SetAttributes(attribute.String("outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn("estimate failed",
			"satellites", req.Satellites[:],
			"outcome", outcome,
			"error", err,
		)
		return nil, err
	}

	e.logger.Info("estimate complete",
		"satellites", req.Satellites[:],
		"latitude", est.Result.Latitude,
		"longitude", est.Result.Longitude,
		"sidereal_longitude", est.SiderealLongitude,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return est, nil
}

func (e *Estimator) estimate(ctx context.Context, req Request) (*Estimate, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	entries, err := e.source.FetchAll(ctx, req.Satellites[:], req.PreferCache)
	if err != nil {
		return nil, err
	}

	var vectors [3]propagation.SatelliteVector
	for i, entry := range entries {
		v, err := e.resolver.Resolve(entry, req.Observer, req.Time)
		if err != nil {
			return nil, fmt.Errorf("resolving NORAD %d: %w", req.Satellites[i], err)
		}
		vectors[i] = v
	}

	d := req.Distances
	result, err := trilateration.Solve(vectors[0], vectors[1], vectors[2], d[0], d[1], d[2])
	if err != nil {
		return nil, err
	}

	// Same whole-second instant the vectors were resolved at.
	lst := transform.LocalSiderealTime(vectors[0].Time, req.Observer.LonRad)
	return &Estimate{
		Observer: transform.GeodeticPoint{
			LatDeg: req.Observer.LatDeg(),
			LonDeg: req.Observer.LonDeg(),
			AltM:   req.Observer.AltM,
		},
		Time:              vectors[0].Time,
		Vectors:           vectors,
		Distances:         d,
		Result:            result,
		SiderealTime:      lst,
		SiderealLongitude: SiderealLongitude(lst, result.Longitude),
	}, nil
}

// SiderealLongitude converts the solved longitude (degrees) into a longitude
// relative to the observer's local sidereal time: (LST − λ) mod 360°.
func SiderealLongitude(lstRad, lonDeg float64) float64 {
	deg := math.Mod(lstRad*180/math.Pi-lonDeg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// validate checks everything that can be checked without element data.
func validate(req Request) error {
	if err := req.Observer.Validate(); err != nil {
		return &trilateration.PreconditionError{Param: "observer", Reason: err.Error()}
	}
	ids := req.Satellites
	for i, id := range ids {
		if id <= 0 {
			return &trilateration.PreconditionError{
				Param:  "satellites",
				Reason: fmt.Sprintf("NORAD ID %d is not a catalog number", id),
			}
		}
		for j := i + 1; j < len(ids); j++ {
			if ids[j] == id {
				return &trilateration.PreconditionError{
					Param:  "satellites",
					Reason: fmt.Sprintf("NORAD %d selected more than once", id),
				}
			}
		}
	}
	d := req.Distances
	return trilateration.ValidateDistances(d[0], d[1], d[2])
}

// Outcome classifies an estimate error for metrics and logs.
func Outcome(err error) string {
	var (
		pre   *trilateration.PreconditionError
		degen *trilateration.DegenerateGeometryError
		parse *tle.ParseError
		prop  *propagation.PropagationError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &pre):
		return "precondition"
	case errors.As(err, &degen):
		return "degenerate"
	case errors.As(err, &parse):
		return "parse"
	case errors.As(err, &prop):
		return "propagation"
	case errors.Is(err, tle.ErrUnknownSatellite):
		return "unknown_satellite"
	case errors.Is(err, tle.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// Vectors resolves every satellite of the current dataset for obs at t, the
// list a caller picks a well-spread triple from.
func (e *Estimator) Vectors(ctx context.Context, obs transform.ObserverPosition, t time.Time) ([]propagation.SatelliteVector, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "estimate.Vectors")
	defer span.End()

	if t.IsZero() {
		t = e.now()
	}
	vectors, err := e.resolver.ResolveAll(ctx, obs, t)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("vectors", len(vectors)))
	return vectors, nil
}
