package main

import (
	"os"
	"path/filepath"
	"testing"

	"vps-onboard/internal/fusion"
	"vps-onboard/internal/geo"
	"vps-onboard/internal/msp"
	"vps-onboard/internal/nmea"
	"vps-onboard/internal/sim"
)

func TestScenarioSourceAdaptsFix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	body := `
version: 1
keyframes:
  - t: 0s
    lat_deg: 37.0
    lon_deg: -122.0
    hdop: 1.0
  - t: 10s
    lat_deg: 37.001
    lon_deg: -122.0
    hdop: 1.0
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sc, err := sim.LoadScenario(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	src := scenarioSource{sc: sc}
	p, hdop := src.Fix(99, 5.0)
	if p == nil || hdop != 1.0 {
		t.Fatalf("fix %+v hdop %v", p, hdop)
	}
	if p.Lat <= 37.0 || p.Lat >= 37.001 {
		t.Fatalf("lat %v not interpolated", p.Lat)
	}
}

func TestEmitWithoutLinks(t *testing.T) {
	out := fusion.Output{
		Position:    geo.GeoPoint{Lat: 37.5, Lon: -122.25},
		HDOP:        1.2,
		HasPosition: true,
		FixQuality:  fusion.QualityVisual,
		Source:      fusion.SourceVisual,
	}
	ggaBuf := make([]byte, nmea.MinBufLen)
	rmcBuf := make([]byte, nmea.MinBufLen)
	mspBuf := make([]byte, msp.FrameSize)

	// No UART, no UDP: encoding must still be safe.
	emit(out, nil, nil, "both", ggaBuf, rmcBuf, mspBuf)

	if ggaBuf[0] != '$' || rmcBuf[0] != '$' || mspBuf[0] != '$' {
		t.Fatalf("frames not encoded")
	}
}
