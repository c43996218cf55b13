package propagation

import (
	"time"

	"github.com/AshleyKelly/EphemGeolocTracker/internal/transform"
)

// SatelliteVector is one satellite's apparent position as seen by an observer
// at an instant. RA and Dec are the trilateration solver's reference point.
type SatelliteVector struct {
	NORADID  int                     `json:"norad_id"`
	Name     string                  `json:"name"`
	Time     time.Time               `json:"time"`
	RA       float64                 `json:"ra"`  // radians, [0, 2π)
	Dec      float64                 `json:"dec"` // radians, [-π/2, π/2]
	RangeKm  float64                 `json:"range_km"`
	Look     transform.LookAngles    `json:"look"`
	SubPoint transform.GeodeticPoint `json:"sub_point"`
}

// ResolverConfig holds resolver configuration loaded from environment variables.
type ResolverConfig struct {
	Workers int // Worker pool size (default: runtime.NumCPU())
}
