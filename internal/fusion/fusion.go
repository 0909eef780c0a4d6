// Package fusion selects the best available position each tick: a visual
// fix smoothed through the filter, a filter prediction between fixes, or
// dead reckoning during outages, with an optional geofence veto on top.
package fusion

import (
	"math"

	"vps-onboard/internal/deadreckon"
	"vps-onboard/internal/ekf"
	"vps-onboard/internal/geo"
	"vps-onboard/internal/geofence"
)

// Source identifies which estimator produced the position.
type Source int

const (
	SourceNone Source = iota
	SourceVisual
	SourceEkfPredict
	SourceDeadReckoning
)

func (s Source) String() string {
	switch s {
	case SourceVisual:
		return "visual"
	case SourceEkfPredict:
		return "ekf_predict"
	case SourceDeadReckoning:
		return "dead_reckoning"
	default:
		return "none"
	}
}

// Quality is the fix-quality number reported downstream (NMEA field 6).
type Quality int

const (
	QualityNone Quality = iota
	QualityVisual
	QualityEkf
	QualityDr
)

// Output is the result of one fusion tick.
type Output struct {
	Position    geo.GeoPoint
	HDOP        float64
	SpeedMps    float64
	HeadingDeg  float64 // [0,360); 0.0 below 0.5 m/s
	FixQuality  Quality
	Source      Source
	GeofenceOK  bool
	EkfAccepted bool
	HasPosition bool
}

// Fusion owns the filter and reckoning state. It holds a read-only
// reference to the fence, which may be nil. Not safe for concurrent use;
// the caller serializes Update and Reset.
type Fusion struct {
	cfg   ekf.Config
	ekf   ekf.Filter
	dr    deadreckon.State
	fence *geofence.Fence
}

const drHDOPGrowthRate = 2.0

// New builds a fusion engine. maxDrS bounds dead-reckoning extrapolation.
func New(cfg ekf.Config, maxDrS float64, fence *geofence.Fence) *Fusion {
	return &Fusion{
		cfg:   cfg,
		dr:    deadreckon.New(maxDrS, drHDOPGrowthRate),
		fence: fence,
	}
}

// Update runs one tick at time t. visual is nil when the matching pipeline
// produced no fix this tick; hdop is that fix's uncertainty.
func (f *Fusion) Update(visual *geo.GeoPoint, hdop, t float64) Output {
	out := Output{
		HDOP:       99.0,
		GeofenceOK: true,
	}

	if visual != nil {
		out.EkfAccepted = f.ekf.Update(f.cfg, *visual, hdop, t)
		if f.ekf.Initialized() {
			out.Position = f.ekf.Position()
			out.HDOP = hdop
			out.Source = SourceVisual
			out.FixQuality = QualityVisual
			out.HasPosition = true

			vlat, vlon := f.ekf.Velocity()
			f.dr.UpdateRef(out.Position, vlat, vlon, hdop, t)
		}
	} else if f.ekf.Initialized() {
		pred, ok := f.ekf.Predict(t)
		if ok && (pred.Lat != 0 || pred.Lon != 0) {
			out.Position = pred
			out.HDOP = 3.0
			out.Source = SourceEkfPredict
			out.FixQuality = QualityEkf
			out.HasPosition = true
		}
	}

	if !out.HasPosition {
		if pos, drHDOP, ok := f.dr.Extrapolate(t); ok {
			out.Position = pos
			out.HDOP = drHDOP
			out.Source = SourceDeadReckoning
			out.FixQuality = QualityDr
			out.HasPosition = true
		}
	}

	if out.HasPosition && f.fence != nil {
		out.GeofenceOK = f.fence.Contains(out.Position)
		if !out.GeofenceOK {
			out.HasPosition = false
			out.FixQuality = QualityNone
			out.Source = SourceNone
		}
	}

	if f.ekf.Initialized() {
		out.SpeedMps = f.ekf.Speed()
		if out.SpeedMps > 0.5 {
			vn, ve := f.VelocityMps()
			out.HeadingDeg = math.Mod(math.Atan2(ve, vn)*180.0/math.Pi+360.0, 360.0)
		}
	}

	return out
}

// VelocityMps returns the filter velocity converted to m/s (north, east).
func (f *Fusion) VelocityMps() (vn, ve float64) {
	vlat, vlon := f.ekf.Velocity()
	lat := f.ekf.Position().Lat
	vn = vlat * 111320.0
	ve = vlon * 111320.0 * math.Cos(lat*math.Pi/180.0)
	return vn, ve
}

// LastGate returns the filter's most recent Mahalanobis distance.
func (f *Fusion) LastGate() float64 {
	return f.ekf.LastGate()
}

// Initialized reports whether the filter holds a state.
func (f *Fusion) Initialized() bool {
	return f.ekf.Initialized()
}

// Reset clears the filter and the reckoning anchor, keeping the reckoning
// tuning and the fence.
func (f *Fusion) Reset() {
	f.ekf.Reset()
	f.dr.Reset()
}
