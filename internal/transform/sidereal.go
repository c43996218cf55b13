package transform

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
)

// LocalSiderealTime returns the local apparent sidereal time, in radians in
// [0, 2π), at east longitude lonRad. Unlike GMST this includes nutation
// (the equation of the equinoxes).
func LocalSiderealTime(t time.Time, lonRad float64) float64 {
	jd := julian.TimeToJD(t.UTC())
	gast := sidereal.Apparent(jd).Angle().Rad()
	return normalizeAngle(gast + lonRad)
}

// normalizeAngle wraps an angle into [0, 2π).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
