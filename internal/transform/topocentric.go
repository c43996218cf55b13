package transform

import (
	"fmt"
	"math"
)

// WGS-84 ellipsoid parameters.
const (
	wgs84A  = 6378137.0             // semi-major axis (meters)
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// ObserverPosition holds a ground observer's location in both geodetic and ECEF frames.
// ECEF coordinates are precomputed once so they can be reused across many satellite lookups.
type ObserverPosition struct {
	LatRad, LonRad, AltM float64 // geodetic (radians, meters above ellipsoid)
	ECEFx, ECEFy, ECEFz  float64 // precomputed ECEF (meters)
}

// LookAngles holds azimuth, elevation, and range from observer to satellite.
type LookAngles struct {
	AzimuthDeg   float64 `json:"azimuth_deg"`   // 0 = North, clockwise
	ElevationDeg float64 `json:"elevation_deg"` // 0 = horizon, 90 = zenith
	RangeKm      float64 `json:"range_km"`
}

// NewObserverPosition creates an ObserverPosition from geodetic coordinates.
// Latitude and longitude are in degrees, altitude in meters above the WGS-84 ellipsoid.
func NewObserverPosition(latDeg, lonDeg, altM float64) ObserverPosition {
	lat := latDeg * deg2rad
	lon := lonDeg * deg2rad

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)

	// Radius of curvature in the prime vertical.
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return ObserverPosition{
		LatRad: lat,
		LonRad: lon,
		AltM:   altM,
		ECEFx:  (n + altM) * cosLat * math.Cos(lon),
		ECEFy:  (n + altM) * cosLat * math.Sin(lon),
		ECEFz:  (n*(1-wgs84E2) + altM) * sinLat,
	}
}

// LatDeg returns the geodetic latitude in degrees.
func (o ObserverPosition) LatDeg() float64 { return o.LatRad * rad2deg }

// LonDeg returns the east longitude in degrees.
func (o ObserverPosition) LonDeg() float64 { return o.LonRad * rad2deg }

// Validate rejects non-finite or out-of-range observer coordinates.
func (o ObserverPosition) Validate() error {
	for _, v := range [...]float64{o.LatRad, o.LonRad, o.AltM} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("observer coordinates must be finite")
		}
	}
	// Degree inputs rarely land exactly on ±π/2 or ±π after conversion.
	const slack = 1e-12
	if math.Abs(o.LatRad) > math.Pi/2+slack {
		return fmt.Errorf("observer latitude %.6f deg out of range [-90, 90]", o.LatDeg())
	}
	if math.Abs(o.LonRad) > math.Pi+slack {
		return fmt.Errorf("observer longitude %.6f deg out of range [-180, 180]", o.LonDeg())
	}
	return nil
}

// GeodeticPoint holds a geodetic position (latitude/longitude in degrees, altitude in meters).
type GeodeticPoint struct {
	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
	AltM   float64 `json:"alt_m"`
}

// ECEFToGeodetic converts ECEF coordinates (meters) to geodetic coordinates
// using the iterative Bowring method. Converges in 2-3 iterations for Earth orbits.
func ECEFToGeodetic(x, y, z float64) GeodeticPoint {
	lon := math.Atan2(y, x)
	p := math.Sqrt(x*x + y*y)

	lat := math.Atan2(z, p*(1-wgs84E2))
	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(z+wgs84E2*n*sinLat, p)
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - n
	} else {
		alt = math.Abs(z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return GeodeticPoint{
		LatDeg: lat * rad2deg,
		LonDeg: lon * rad2deg,
		AltM:   alt,
	}
}

// ECEFToLookAngles computes azimuth, elevation, and range from an observer
// to a satellite given in ECEF meters, via the SEZ (South-East-Zenith)
// rotation of Vallado Section 4.4.
func ECEFToLookAngles(obs ObserverPosition, satX, satY, satZ float64) LookAngles {
	rx := satX - obs.ECEFx
	ry := satY - obs.ECEFy
	rz := satZ - obs.ECEFz

	sinLat := math.Sin(obs.LatRad)
	cosLat := math.Cos(obs.LatRad)
	sinLon := math.Sin(obs.LonRad)
	cosLon := math.Cos(obs.LonRad)

	south := sinLat*cosLon*rx + sinLat*sinLon*ry - cosLat*rz
	east := -sinLon*rx + cosLon*ry
	zenith := cosLat*cosLon*rx + cosLat*sinLon*ry + sinLat*rz

	rangeMag := math.Sqrt(south*south + east*east + zenith*zenith)
	if rangeMag == 0 {
		return LookAngles{ElevationDeg: 90}
	}

	// North is -South in SEZ.
	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}

	return LookAngles{
		AzimuthDeg:   az * rad2deg,
		ElevationDeg: math.Asin(zenith/rangeMag) * rad2deg,
		RangeKm:      rangeMag / 1000.0,
	}
}
