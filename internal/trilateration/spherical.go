package trilateration

import "math"

// CartesianToSpherical maps a planar offset to spherical angles in radians:
// latitude φ = atan2(√(x²+y²), 1) in [0, π/2), longitude λ = atan2(y, x) in
// (−π, π]. The origin maps to (0, 0).
func CartesianToSpherical(x, y float64) (lat, lon float64) {
	return math.Atan2(math.Hypot(x, y), 1), math.Atan2(y, x)
}

// SphericalToCartesian inverts CartesianToSpherical for lat in [0, π/2):
// the offset has length tan φ in direction λ.
func SphericalToCartesian(lat, lon float64) (x, y float64) {
	r := math.Tan(lat)
	return r * math.Cos(lon), r * math.Sin(lon)
}
