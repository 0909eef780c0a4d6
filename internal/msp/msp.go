// Package msp encodes MSP_SET_RAW_GPS frames for Cleanflight/Betaflight
// flight controllers (MultiWii Serial Protocol, direction "<").
package msp

import (
	"encoding/binary"

	"vps-onboard/internal/geo"
)

const (
	CmdSetRawGPS = 201
	payloadLen   = 18
	// FrameSize is the full frame length: "$M<" + len + cmd + payload + checksum.
	FrameSize = 24
)

// GPS is the MSP_SET_RAW_GPS payload. Integer fields are pre-scaled the
// way the wire wants them.
type GPS struct {
	FixType      uint8 // 2 with fix, 0 without
	NumSat       uint8 // 12 with fix, 0 without
	LatE7        int32
	LonE7        int32
	AltitudeM    int16
	SpeedCms     uint16
	HeadingDeg10 uint16
	HdopX100     uint16
}

// FromPosition scales a fused position into the frame's integer fields.
// Conversions truncate toward zero; the fusion layer keeps values within
// the integer ranges.
func FromPosition(pos geo.GeoPoint, speedMps, headingDeg, hdop float64, hasFix bool) GPS {
	g := GPS{
		LatE7:        int32(pos.Lat * 1e7),
		LonE7:        int32(pos.Lon * 1e7),
		SpeedCms:     uint16(speedMps * 100.0),
		HeadingDeg10: uint16(headingDeg * 10.0),
		HdopX100:     uint16(hdop * 100.0),
	}
	if hasFix {
		g.FixType = 2
		g.NumSat = 12
	}
	return g
}

// Checksum XORs the length, command, and payload bytes.
func Checksum(data []byte) byte {
	var cs byte
	for _, b := range data {
		cs ^= b
	}
	return cs
}

// Encode writes the 24-byte frame into out and returns FrameSize, or 0
// when out is too small.
func Encode(out []byte, g GPS) int {
	if len(out) < FrameSize {
		return 0
	}
	out[0] = '$'
	out[1] = 'M'
	out[2] = '<'
	out[3] = payloadLen
	out[4] = CmdSetRawGPS

	p := out[5:]
	p[0] = g.FixType
	p[1] = g.NumSat
	binary.LittleEndian.PutUint32(p[2:], uint32(g.LatE7))
	binary.LittleEndian.PutUint32(p[6:], uint32(g.LonE7))
	binary.LittleEndian.PutUint16(p[10:], uint16(g.AltitudeM))
	binary.LittleEndian.PutUint16(p[12:], g.SpeedCms)
	binary.LittleEndian.PutUint16(p[14:], g.HeadingDeg10)
	binary.LittleEndian.PutUint16(p[16:], g.HdopX100)

	out[FrameSize-1] = Checksum(out[3 : FrameSize-1])
	return FrameSize
}
