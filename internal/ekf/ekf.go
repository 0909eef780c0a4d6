// Package ekf implements a 4-state constant-velocity Kalman filter over
// geographic coordinates with Mahalanobis innovation gating.
//
// The state vector is [lat, lon, vlat, vlon] in degrees and degrees/s.
// All matrix arithmetic is inline fixed-size 4x4; there is no heap
// allocation on the update path.
package ekf

import (
	"math"

	"vps-onboard/internal/geo"
)

// Config holds filter tuning. ProcessNoise and MeasurementNoise are in
// degree-squared units (the state is in degrees, not meters); pick values
// accordingly when overriding the defaults.
type Config struct {
	ProcessNoise     float64
	MeasurementNoise float64
	GateThreshold    float64
	MaxGapS          float64
}

// DefaultConfig returns the tuning used on the aircraft.
func DefaultConfig() Config {
	return Config{
		ProcessNoise:     1e-10,
		MeasurementNoise: 1e-8,
		GateThreshold:    5.0,
		MaxGapS:          30.0,
	}
}

// Filter is the filter state. The zero value is an uninitialized filter;
// the first accepted measurement initializes it.
type Filter struct {
	x           [4]float64
	p           [4][4]float64
	lastT       float64
	initialized bool
	lastGate    float64
}

// Reset returns the filter to the uninitialized state.
func (f *Filter) Reset() {
	*f = Filter{}
}

// Initialized reports whether the filter holds a state.
func (f *Filter) Initialized() bool {
	return f.initialized
}

// LastGate returns the Mahalanobis distance of the most recent measurement.
func (f *Filter) LastGate() float64 {
	return f.lastGate
}

// Update feeds a position measurement with uncertainty hdop at time t.
// It returns true when the measurement was accepted (including the
// initializing measurement), false when it was rejected.
//
// A measurement older than the filter's time (dt < 0) is rejected without
// touching the state. A gap larger than cfg.MaxGapS resets the filter and
// re-initializes it from this measurement. A gated-out measurement still
// advances the state to the prediction at t.
func (f *Filter) Update(cfg Config, z geo.GeoPoint, hdop, t float64) bool {
	if !f.initialized {
		f.x = [4]float64{z.Lat, z.Lon, 0, 0}
		f.p = [4][4]float64{}
		for i := 0; i < 4; i++ {
			f.p[i][i] = 1e-6
		}
		f.lastT = t
		f.initialized = true
		f.lastGate = 0
		return true
	}

	dt := t - f.lastT
	if dt < 0 {
		return false
	}
	if dt > cfg.MaxGapS {
		f.Reset()
		return f.Update(cfg, z, hdop, t)
	}

	// Predict.
	F := mat4Eye()
	F[0][2] = dt
	F[1][3] = dt
	Q := buildQ(cfg.ProcessNoise, dt)

	var xPred [4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			xPred[i] += F[i][j] * f.x[j]
		}
	}
	pPred := mat4Add(mat4Mul(mat4Mul(F, f.p), mat4Transpose(F)), Q)

	// Measurement model is the identity on the position states.
	y := [2]float64{z.Lat - xPred[0], z.Lon - xPred[1]}
	r := cfg.MeasurementNoise * hdop * hdop

	s00 := pPred[0][0] + r
	s01 := pPred[0][1]
	s10 := pPred[1][0]
	s11 := pPred[1][1] + r

	det := s00*s11 - s01*s10
	if math.Abs(det) < 1e-30 {
		// Degenerate innovation covariance: no correction, but time advances.
		f.x = xPred
		f.p = pPred
		f.lastT = t
		return false
	}
	si00 := s11 / det
	si01 := -s01 / det
	si10 := -s10 / det
	si11 := s00 / det

	d2 := y[0]*(si00*y[0]+si01*y[1]) + y[1]*(si10*y[0]+si11*y[1])
	f.lastGate = math.Sqrt(math.Abs(d2))

	if f.lastGate > cfg.GateThreshold {
		// Outlier: reject the correction but keep the prediction.
		f.x = xPred
		f.p = pPred
		f.lastT = t
		return false
	}

	// Kalman gain K = P_pred * H' * S^-1 (4x2, H selects the first two states).
	var k [4][2]float64
	for i := 0; i < 4; i++ {
		k[i][0] = pPred[i][0]*si00 + pPred[i][1]*si10
		k[i][1] = pPred[i][0]*si01 + pPred[i][1]*si11
	}

	for i := 0; i < 4; i++ {
		f.x[i] = xPred[i] + k[i][0]*y[0] + k[i][1]*y[1]
	}

	// P = (I - K*H) * P_pred
	ikh := mat4Eye()
	for i := 0; i < 4; i++ {
		ikh[i][0] -= k[i][0]
		ikh[i][1] -= k[i][1]
	}
	f.p = mat4Mul(ikh, pPred)

	// The Joseph-less update loses symmetry in float; restore it.
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			v := 0.5 * (f.p[i][j] + f.p[j][i])
			f.p[i][j] = v
			f.p[j][i] = v
		}
	}

	f.lastT = t
	return true
}

// Predict extrapolates the position to time t without touching the state.
// ok is false when the filter is uninitialized.
func (f *Filter) Predict(t float64) (p geo.GeoPoint, ok bool) {
	if !f.initialized {
		return geo.GeoPoint{}, false
	}
	dt := t - f.lastT
	p.Lat = f.x[0] + f.x[2]*dt
	p.Lon = f.x[1] + f.x[3]*dt
	return p, true
}

// Position returns the filtered position, or (0,0) when uninitialized.
func (f *Filter) Position() geo.GeoPoint {
	if !f.initialized {
		return geo.GeoPoint{}
	}
	return geo.GeoPoint{Lat: f.x[0], Lon: f.x[1]}
}

// Velocity returns the velocity state in degrees/s (north, east).
func (f *Filter) Velocity() (vlat, vlon float64) {
	if !f.initialized {
		return 0, 0
	}
	return f.x[2], f.x[3]
}

// Speed returns the ground speed in m/s, converting the degree-rate state
// with the small-area approximations 1 deg lat = 111320 m and
// 1 deg lon = 111320*cos(lat) m.
func (f *Filter) Speed() float64 {
	if !f.initialized {
		return 0
	}
	vnMs := f.x[2] * 111320.0
	veMs := f.x[3] * 111320.0 * math.Cos(f.x[0]*math.Pi/180.0)
	return math.Sqrt(vnMs*vnMs + veMs*veMs)
}

// --- fixed-size matrix helpers ---

func mat4Eye() [4][4]float64 {
	var m [4][4]float64
	m[0][0], m[1][1], m[2][2], m[3][3] = 1, 1, 1, 1
	return m
}

func mat4Add(a, b [4][4]float64) [4][4]float64 {
	var c [4][4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			c[i][j] = a[i][j] + b[i][j]
		}
	}
	return c
}

func mat4Mul(a, b [4][4]float64) [4][4]float64 {
	var c [4][4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += a[i][k] * b[k][j]
			}
			c[i][j] = sum
		}
	}
	return c
}

func mat4Transpose(a [4][4]float64) [4][4]float64 {
	var c [4][4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			c[i][j] = a[j][i]
		}
	}
	return c
}

// buildQ assembles the standard constant-velocity kinematic process noise,
// block-diagonal over (lat,vlat) and (lon,vlon).
func buildQ(q, dt float64) [4][4]float64 {
	var m [4][4]float64
	dt2 := dt * dt
	dt3 := dt2 * dt / 2.0
	dt4 := dt2 * dt2 / 4.0
	m[0][0] = q * dt4
	m[0][2] = q * dt3
	m[1][1] = q * dt4
	m[1][3] = q * dt3
	m[2][0] = q * dt3
	m[2][2] = q * dt2
	m[3][1] = q * dt3
	m[3][3] = q * dt2
	return m
}
