// Package trilateration estimates a signal origin from three reference
// points and the slant distances to the signal via each of them.
//
// Each satellite's topocentric (ra, dec) is treated as a point in a plane.
// Subtracting the circle equation of the first point from the other two
// gives a 2×2 linear system, solved exactly by Cramer's rule:
//
//	A = 2·(ra2 − ra1)    B = 2·(dec2 − dec1)
//	C = 2·(ra3 − ra1)    D = 2·(dec3 − dec1)
//	E = (d2² − d1²) − (ra2² − ra1²) − (dec2² − dec1²)
//	F = (d3² − d1²) − (ra3² − ra1²) − (dec3² − dec1²)
//	x = (E·D − B·F) / (B·C − A·D)
//	y = (E·C − A·F) / (A·D − B·C)
//
// The planar offset is then mapped to latitude/longitude by
// CartesianToSpherical. There is no iteration and no least-squares fit; the
// accuracy of the estimate is bounded by the distances the caller supplies.
package trilateration

import (
	"fmt"
	"math"

	"github.com/AshleyKelly/EphemGeolocTracker/internal/propagation"
)

const rad2deg = 180.0 / math.Pi

// Point is a reference point in the (ra, dec) plane, radians.
type Point struct {
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`
}

// PointOf returns the reference point of a resolved satellite.
func PointOf(v propagation.SatelliteVector) Point {
	return Point{RA: v.RA, Dec: v.Dec}
}

// Result is the solved planar offset and its spherical mapping in degrees.
type Result struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Solve estimates the signal origin from three resolved satellites and the
// distances via each. The satellites must be distinct.
func Solve(v1, v2, v3 propagation.SatelliteVector, d1, d2, d3 float64) (Result, error) {
	ids := [3]int{v1.NORADID, v2.NORADID, v3.NORADID}
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if ids[i] != 0 && ids[i] == ids[j] {
				return Result{}, &PreconditionError{
					Param:  "satellites",
					Reason: fmt.Sprintf("NORAD %d selected more than once", ids[i]),
				}
			}
		}
	}
	return SolvePoints(PointOf(v1), PointOf(v2), PointOf(v3), d1, d2, d3)
}

// SolvePoints runs the solver on bare reference points.
func SolvePoints(p1, p2, p3 Point, d1, d2, d3 float64) (Result, error) {
	if err := checkInputs([3]Point{p1, p2, p3}, [3]float64{d1, d2, d3}); err != nil {
		return Result{}, err
	}

	a, b, c, d, e, f := coefficients(p1, p2, p3, d1, d2, d3)

	den := b*c - a*d
	if den == 0 {
		return Result{}, &DegenerateGeometryError{Determinant: den, Reason: "reference points are collinear"}
	}

	x := (e*d - b*f) / den
	y := (e*c - a*f) / (a*d - b*c)
	if !finite(x) || !finite(y) {
		return Result{}, &DegenerateGeometryError{Determinant: den, Reason: "solution is not finite"}
	}

	lat, lon := CartesianToSpherical(x, y)
	return Result{
		X:         x,
		Y:         y,
		Latitude:  lat * rad2deg,
		Longitude: lon * rad2deg,
	}, nil
}

// coefficients forms the linearised system A·x + B·y = −E, C·x + D·y = −F.
func coefficients(p1, p2, p3 Point, d1, d2, d3 float64) (a, b, c, d, e, f float64) {
	a = 2 * (p2.RA - p1.RA)
	b = 2 * (p2.Dec - p1.Dec)
	c = 2 * (p3.RA - p1.RA)
	d = 2 * (p3.Dec - p1.Dec)
	e = (d2*d2 - d1*d1) - (p2.RA*p2.RA - p1.RA*p1.RA) - (p2.Dec*p2.Dec - p1.Dec*p1.Dec)
	f = (d3*d3 - d1*d1) - (p3.RA*p3.RA - p1.RA*p1.RA) - (p3.Dec*p3.Dec - p1.Dec*p1.Dec)
	return a, b, c, d, e, f
}

// ValidateDistances reports the first slant distance that is not a finite
// positive number.
func ValidateDistances(d1, d2, d3 float64) error {
	for i, dist := range [3]float64{d1, d2, d3} {
		if !finite(dist) {
			return &PreconditionError{Param: fmt.Sprintf("d%d", i+1), Reason: "distance must be finite"}
		}
		if dist <= 0 {
			return &PreconditionError{Param: fmt.Sprintf("d%d", i+1), Reason: fmt.Sprintf("distance must be positive, got %g", dist)}
		}
	}
	return nil
}

func checkInputs(points [3]Point, dists [3]float64) error {
	if err := ValidateDistances(dists[0], dists[1], dists[2]); err != nil {
		return err
	}
	for i, p := range points {
		if !finite(p.RA) || !finite(p.Dec) {
			return &PreconditionError{Param: fmt.Sprintf("v%d", i+1), Reason: "reference point must be finite"}
		}
	}
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if points[i] == points[j] {
				return &PreconditionError{
					Param:  "satellites",
					Reason: fmt.Sprintf("v%d and v%d are the same point", i+1, j+1),
				}
			}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
