// Package transform provides the coordinate frame conversions used to turn an
// SGP4 state into the angular coordinates the trilateration solver works on.
//
// SGP4 reports positions in TEME (True Equator Mean Equinox). Rotating by GMST
// gives an Earth-fixed frame (TEME → PEF ≈ ECEF) for look angles and
// sub-satellite points; the observer goes the other way, from ECEF into TEME,
// so that topocentric right ascension and declination can be read off the
// observer→satellite range vector.
//
// Polar motion and the equation of the equinoxes are ignored (tens of metres
// at most), which is well inside SGP4's own error.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3.
package transform

import (
	"math"
	"time"
)

// PositionTEME represents a satellite position and velocity in the TEME frame.
type PositionTEME struct {
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}

// Norm returns the position magnitude in km.
func (p PositionTEME) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Finite reports whether every component is a finite number.
func (p PositionTEME) Finite() bool {
	for _, v := range [...]float64{p.X, p.Y, p.Z, p.VX, p.VY, p.VZ} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// PositionECEF represents a position and velocity in the ECEF frame.
type PositionECEF struct {
	X, Y, Z    float64 // meters
	VX, VY, VZ float64 // m/s
}

// TEMEToECEF transforms a TEME position/velocity to ECEF at the given UTC time.
// Input: TEME in km and km/s.
// Output: ECEF in meters and m/s.
func TEMEToECEF(teme PositionTEME, t time.Time) PositionECEF {
	return TEMEToECEFWithGMST(teme, GMST(t))
}

// TEMEToECEFWithGMST transforms TEME to ECEF using a precomputed GMST angle (radians).
//
// Position: r_ECEF = R3(θ) * r_TEME
// Velocity: v_ECEF = R3(θ) * v_TEME - ω × r_ECEF
func TEMEToECEFWithGMST(teme PositionTEME, gmst float64) PositionECEF {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	x := teme.X*cosG + teme.Y*sinG
	y := -teme.X*sinG + teme.Y*cosG
	z := teme.Z

	// ω × r_ECEF = [-ω*y, ω*x, 0]
	vx := teme.VX*cosG + teme.VY*sinG + OmegaEarth*y
	vy := -teme.VX*sinG + teme.VY*cosG - OmegaEarth*x
	vz := teme.VZ

	return PositionECEF{
		X:  x * 1000.0,
		Y:  y * 1000.0,
		Z:  z * 1000.0,
		VX: vx * 1000.0,
		VY: vy * 1000.0,
		VZ: vz * 1000.0,
	}
}

// ECEFToTEMEWithGMST rotates an Earth-fixed point (meters) into TEME (km),
// r_TEME = R3(-θ) * r_ECEF. Velocity is left zero; only ground points go this
// way.
func ECEFToTEMEWithGMST(x, y, z, gmst float64) PositionTEME {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	return PositionTEME{
		X: (x*cosG - y*sinG) / 1000.0,
		Y: (x*sinG + y*cosG) / 1000.0,
		Z: z / 1000.0,
	}
}

// ValidateECEF checks that an ECEF position is physically reasonable for an
// Earth-orbiting satellite: finite, and between 6200 km and 50000 km from the
// geocentre.
func ValidateECEF(pos PositionECEF) bool {
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) {
		return false
	}
	if math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return false
	}

	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	return mag >= MinOrbitRadiusKm*1000.0 && mag <= MaxOrbitRadiusKm*1000.0
}

// Plausible orbit radius bounds (km). LEO sits near 6600-7400 km, GEO at 42164 km.
const (
	MinOrbitRadiusKm = 6200.0
	MaxOrbitRadiusKm = 50000.0
)
