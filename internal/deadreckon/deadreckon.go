// Package deadreckon extrapolates position from a last known fix and a
// constant ground velocity, covering short visual outages.
package deadreckon

import (
	"math"

	"vps-onboard/internal/geo"
)

// State holds the reckoning anchor plus tuning. MaxExtrapS bounds how far
// past the anchor an extrapolation is trusted; HDOPGrowthRate inflates the
// reported uncertainty per second of extrapolation.
type State struct {
	refPos  geo.GeoPoint
	vnMps   float64
	veMps   float64
	refHDOP float64
	refT    float64
	hasRef  bool

	MaxExtrapS     float64
	HDOPGrowthRate float64
}

// New returns a cleared reckoning state with the given tuning.
func New(maxExtrapS, hdopGrowthRate float64) State {
	return State{MaxExtrapS: maxExtrapS, HDOPGrowthRate: hdopGrowthRate}
}

// Reset drops the anchor but keeps the tuning.
func (d *State) Reset() {
	*d = State{MaxExtrapS: d.MaxExtrapS, HDOPGrowthRate: d.HDOPGrowthRate}
}

// HasReference reports whether an anchor is set.
func (d *State) HasReference() bool {
	return d.hasRef
}

// UpdateRef overwrites the anchor with a fresh fix and velocity (m/s
// north/east) at time t.
func (d *State) UpdateRef(pos geo.GeoPoint, vn, ve, hdop, t float64) {
	d.refPos = pos
	d.vnMps = vn
	d.veMps = ve
	d.refHDOP = hdop
	d.refT = t
	d.hasRef = true
}

// Extrapolate projects the anchor to time t. ok is false when there is no
// anchor, t precedes it, or the extrapolation window is exceeded.
func (d *State) Extrapolate(t float64) (pos geo.GeoPoint, hdop float64, ok bool) {
	if !d.hasRef {
		return geo.GeoPoint{}, 0, false
	}
	dt := t - d.refT
	if dt < 0 || dt > d.MaxExtrapS {
		return geo.GeoPoint{}, 0, false
	}

	dlat := d.vnMps / 111320.0
	dlon := d.veMps / (111320.0 * math.Cos(d.refPos.Lat*math.Pi/180.0))

	pos.Lat = d.refPos.Lat + dlat*dt
	pos.Lon = d.refPos.Lon + dlon*dt
	return pos, d.refHDOP + d.HDOPGrowthRate*dt, true
}
