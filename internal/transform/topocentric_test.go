package transform

import (
	"math"
	"testing"
)

func ecefNorm(o ObserverPosition) float64 {
	return math.Sqrt(o.ECEFx*o.ECEFx + o.ECEFy*o.ECEFy + o.ECEFz*o.ECEFz)
}

func TestNewObserverPosition(t *testing.T) {
	// WGS-84 equatorial and polar radii.
	if got := ecefNorm(NewObserverPosition(0, 0, 0)); math.Abs(got-6378137.0) > 1.0 {
		t.Errorf("equator radius = %.1f m, want 6378137", got)
	}
	if got := ecefNorm(NewObserverPosition(90, 0, 0)); math.Abs(got-6356752.3) > 1.0 {
		t.Errorf("polar radius = %.1f m, want 6356752.3", got)
	}

	diff := ecefNorm(NewObserverPosition(0, 0, 200)) - ecefNorm(NewObserverPosition(0, 0, 0))
	if math.Abs(diff-200.0) > 0.01 {
		t.Errorf("elevation offset = %.3f m, want 200", diff)
	}

	huntsville := NewObserverPosition(34.7304, -86.5861, 200)
	if math.Abs(huntsville.LatDeg()-34.7304) > 1e-9 || math.Abs(huntsville.LonDeg()+86.5861) > 1e-9 {
		t.Errorf("degree accessors = (%.6f, %.6f), want (34.7304, -86.5861)", huntsville.LatDeg(), huntsville.LonDeg())
	}
}

func TestObserverValidate(t *testing.T) {
	tests := []struct {
		name    string
		obs     ObserverPosition
		wantErr bool
	}{
		{"huntsville", NewObserverPosition(34.7304, -86.5861, 200), false},
		{"north pole", NewObserverPosition(90, 0, 0), false},
		{"dateline", NewObserverPosition(0, 180, 0), false},
		{"latitude too high", NewObserverPosition(91, 0, 0), true},
		{"longitude too far west", NewObserverPosition(0, -181, 0), true},
		{"NaN latitude", NewObserverPosition(math.NaN(), 0, 0), true},
		{"Inf elevation", NewObserverPosition(0, 0, math.Inf(1)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.obs.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestECEFToLookAngles_Overhead(t *testing.T) {
	obs := NewObserverPosition(0, 0, 0)
	la := ECEFToLookAngles(obs, obs.ECEFx+400000.0, obs.ECEFy, obs.ECEFz)

	if math.Abs(la.ElevationDeg-90.0) > 0.1 {
		t.Errorf("overhead elevation = %.2f deg, want ~90", la.ElevationDeg)
	}
	if math.Abs(la.RangeKm-400.0) > 1.0 {
		t.Errorf("overhead range = %.2f km, want ~400", la.RangeKm)
	}
}

func TestECEFToLookAngles_AzimuthDirections(t *testing.T) {
	obs := NewObserverPosition(0, 0, 0)

	tests := []struct {
		name   string
		sat    ObserverPosition
		wantAz float64
	}{
		{"north", NewObserverPosition(10, 0, 400000), 0},
		{"east", NewObserverPosition(0, 10, 400000), 90},
		{"south", NewObserverPosition(-10, 0, 400000), 180},
		{"west", NewObserverPosition(0, -10, 400000), 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			la := ECEFToLookAngles(obs, tt.sat.ECEFx, tt.sat.ECEFy, tt.sat.ECEFz)
			diff := math.Abs(la.AzimuthDeg - tt.wantAz)
			if diff > 180 {
				diff = 360 - diff
			}
			if diff > 30 {
				t.Errorf("azimuth = %.2f deg, want near %.0f", la.AzimuthDeg, tt.wantAz)
			}
		})
	}
}

func TestECEFToGeodeticRoundTrip(t *testing.T) {
	for _, p := range []GeodeticPoint{
		{LatDeg: 34.7304, LonDeg: -86.5861, AltM: 200},
		{LatDeg: -51.6, LonDeg: 120.0, AltM: 420000},
		{LatDeg: 0, LonDeg: 179.9, AltM: 35786000},
	} {
		obs := NewObserverPosition(p.LatDeg, p.LonDeg, p.AltM)
		got := ECEFToGeodetic(obs.ECEFx, obs.ECEFy, obs.ECEFz)
		if math.Abs(got.LatDeg-p.LatDeg) > 1e-6 || math.Abs(got.LonDeg-p.LonDeg) > 1e-6 || math.Abs(got.AltM-p.AltM) > 1e-3 {
			t.Errorf("ECEFToGeodetic(%+v) = %+v", p, got)
		}
	}
}
