package msp

import (
	"bytes"
	"encoding/binary"
	"testing"

	"vps-onboard/internal/geo"
)

func TestEncodeFrameLayout(t *testing.T) {
	g := FromPosition(geo.GeoPoint{Lat: 37.5, Lon: -122.25}, 5.0, 90.0, 1.2, true)

	out := make([]byte, FrameSize)
	n := Encode(out, g)
	if n != FrameSize {
		t.Fatalf("encoded %d bytes, want %d", n, FrameSize)
	}

	wantHead := []byte{0x24, 0x4D, 0x3C, 0x12, 0xC9, 0x02, 0x0C}
	if !bytes.Equal(out[:7], wantHead) {
		t.Fatalf("header % X, want % X", out[:7], wantHead)
	}

	if lat := int32(binary.LittleEndian.Uint32(out[7:11])); lat != 375000000 {
		t.Fatalf("lat %d", lat)
	}
	if lon := int32(binary.LittleEndian.Uint32(out[11:15])); lon != -1222500000 {
		t.Fatalf("lon %d", lon)
	}
	if alt := int16(binary.LittleEndian.Uint16(out[15:17])); alt != 0 {
		t.Fatalf("alt %d", alt)
	}
	if spd := binary.LittleEndian.Uint16(out[17:19]); spd != 500 {
		t.Fatalf("speed %d cm/s", spd)
	}
	if hdg := binary.LittleEndian.Uint16(out[19:21]); hdg != 900 {
		t.Fatalf("heading %d", hdg)
	}
	if hdop := binary.LittleEndian.Uint16(out[21:23]); hdop != 120 {
		t.Fatalf("hdop %d", hdop)
	}

	var cs byte
	for _, b := range out[3:23] {
		cs ^= b
	}
	if out[23] != cs {
		t.Fatalf("checksum %02X, want %02X", out[23], cs)
	}
}

func TestFromPositionNoFix(t *testing.T) {
	g := FromPosition(geo.GeoPoint{}, 0, 0, 99.0, false)
	if g.FixType != 0 || g.NumSat != 0 {
		t.Fatalf("no-fix frame carries fix: %+v", g)
	}
}

func TestFromPositionTruncatesTowardZero(t *testing.T) {
	g := FromPosition(geo.GeoPoint{Lat: 0.00000019, Lon: -0.00000019}, 0.129, 0, 0, true)
	if g.LatE7 != 1 {
		t.Fatalf("lat_e7 %d, want 1", g.LatE7)
	}
	if g.LonE7 != -1 {
		t.Fatalf("lon_e7 %d, want -1", g.LonE7)
	}
	if g.SpeedCms != 12 {
		t.Fatalf("speed_cms %d, want 12", g.SpeedCms)
	}
}

func TestEncodeShortBuffer(t *testing.T) {
	if n := Encode(make([]byte, FrameSize-1), GPS{}); n != 0 {
		t.Fatalf("encoded into short buffer: %d", n)
	}
}
