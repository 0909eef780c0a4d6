// Package sim produces synthetic visual fixes so the positioning loop can
// run on a bench without the camera and matching pipeline attached.
package sim

import (
	"math"

	"vps-onboard/internal/geo"
)

// FlightSim flies a deterministic figure-eight around a center point and
// emits one candidate fix per tick. Dropout simulates matching misses.
type FlightSim struct {
	Center   geo.GeoPoint
	RadiusM  float64
	SpeedMps float64
	HDOP     float64
	Dropout  float64 // fraction of ticks without a fix [0,1)
}

// Fix returns the simulated visual fix for the given tick at time t, or
// nil on a simulated miss. Identical inputs produce identical output.
func (s FlightSim) Fix(tick int, t float64) (*geo.GeoPoint, float64) {
	if s.Dropout > 0 {
		period := int(math.Round(1.0 / s.Dropout))
		if period > 0 && tick%period == 0 {
			return nil, 0
		}
	}

	p := s.position(t)
	return &p, s.HDOP
}

// position evaluates the figure-eight (Lissajous) track at time t.
//
//	x = cos(wt)          east-west, scaled by cos(lat) for lon degrees
//	y = 0.5*sin(2wt)     north-south, kept within half the radius
func (s FlightSim) position(t float64) geo.GeoPoint {
	radiusDeg := s.RadiusM / 111320.0
	w := s.SpeedMps / s.RadiusM * t

	x := math.Cos(w)
	y := 0.5 * math.Sin(2*w)

	return geo.GeoPoint{
		Lat: s.Center.Lat + radiusDeg*y,
		Lon: s.Center.Lon + (radiusDeg*x)/math.Cos(s.Center.Lat*math.Pi/180.0),
	}
}
