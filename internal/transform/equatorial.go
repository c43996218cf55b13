package transform

import "math"

// Equatorial holds topocentric equatorial coordinates of a target as seen by
// a ground observer.
type Equatorial struct {
	RA      float64 // right ascension, radians in [0, 2π)
	Dec     float64 // declination, radians in [-π/2, π/2]
	RangeKm float64 // observer→target distance
}

// TopocentricEquatorial computes the right ascension, declination and range
// of a TEME satellite position as seen from obs, given the GMST (radians) of
// the same instant.
//
// The observer is rotated into TEME and the angles are taken from the
// observer→satellite range vector, so parallax is included: this is where
// the satellite appears on the observer's sky, not its geocentric direction.
func TopocentricEquatorial(obs ObserverPosition, sat PositionTEME, gmst float64) Equatorial {
	o := ECEFToTEMEWithGMST(obs.ECEFx, obs.ECEFy, obs.ECEFz, gmst)

	rx := sat.X - o.X
	ry := sat.Y - o.Y
	rz := sat.Z - o.Z
	rng := math.Sqrt(rx*rx + ry*ry + rz*rz)

	if rng == 0 {
		return Equatorial{}
	}

	ra := math.Atan2(ry, rx)
	if ra < 0 {
		ra += 2 * math.Pi
	}

	return Equatorial{
		RA:      ra,
		Dec:     math.Asin(rz / rng),
		RangeKm: rng,
	}
}
