package propagation

import (
	"fmt"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/AshleyKelly/EphemGeolocTracker/internal/tle"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/transform"
)

// SGP4 library: github.com/joshuaferrara/go-satellite. Pure Go, explicit TEME
// output. Propagate() takes the Satellite by value, so runtime SGP4 error
// codes never reach the caller; failures are detected from the output
// (NaN/Inf, implausible radius) instead.

// SGP4Propagator wraps an initialised go-satellite model for one satellite.
type SGP4Propagator struct {
	sat          satellite.Satellite
	noradID      int
	line1, line2 string
}

// NewSGP4Propagator initialises SGP4 from an element set.
//
// The lines are re-parsed strictly first: go-satellite calls log.Fatal on
// fields it cannot parse, which would kill the process. Malformed lines give
// a *tle.ParseError, an SGP4 initialisation failure a *PropagationError.
func NewSGP4Propagator(entry tle.TLEEntry) (*SGP4Propagator, error) {
	parsed, err := tle.ParseElements(entry.Name, entry.Line1, entry.Line2)
	if err != nil {
		return nil, err
	}

	sat := satellite.TLEToSat(parsed.Line1, parsed.Line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, &PropagationError{
			NORADID: parsed.NORADID,
			Err:     fmt.Errorf("init failed: code=%d %s", sat.Error, sat.ErrorStr),
		}
	}
	return &SGP4Propagator{sat: sat, noradID: parsed.NORADID, line1: parsed.Line1, line2: parsed.Line2}, nil
}

// matches reports whether the propagator was built from entry's lines.
func (p *SGP4Propagator) matches(entry tle.TLEEntry) bool {
	return p.line1 == strings.TrimSpace(entry.Line1) && p.line2 == strings.TrimSpace(entry.Line2)
}

// NORADID returns the catalog number the model was built from.
func (p *SGP4Propagator) NORADID() int {
	return p.noradID
}

// Propagate computes the TEME state (km, km/s) at t. go-satellite takes whole
// seconds, so t is truncated to the second.
func (p *SGP4Propagator) Propagate(t time.Time) (transform.PositionTEME, error) {
	t = t.UTC()
	pos, vel := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	teme := transform.PositionTEME{
		X:  pos.X,
		Y:  pos.Y,
		Z:  pos.Z,
		VX: vel.X,
		VY: vel.Y,
		VZ: vel.Z,
	}
	if err := checkState(p.noradID, t, teme); err != nil {
		return transform.PositionTEME{}, err
	}
	return teme, nil
}

// checkState rejects non-finite output and radii no Earth orbit can have.
func checkState(noradID int, t time.Time, teme transform.PositionTEME) error {
	if !teme.Finite() {
		return &PropagationError{NORADID: noradID, Time: t, Err: fmt.Errorf("output is NaN/Inf")}
	}
	if mag := teme.Norm(); mag < transform.MinOrbitRadiusKm || mag > transform.MaxOrbitRadiusKm {
		return &PropagationError{NORADID: noradID, Time: t, Err: fmt.Errorf("unreasonable position magnitude %.1f km", mag)}
	}
	return nil
}
