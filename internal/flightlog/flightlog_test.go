package flightlog

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.vpsf")
	rec, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	want := []Record{
		{
			Timestamp: 1.5, Lat: 37.123456, Lon: -122.654321,
			VnMps: 9.5, VeMps: -0.25, HDOP: 1.2, SpeedMps: 9.5, HeadingDeg: 358.5,
			FixQuality: 1, Source: 1, MatchCount: 42, InlierRatio: 0.625,
			LatencyMs: 120, Flags: FlagGeofenceOK | FlagEkfAccepted,
		},
		{Timestamp: 2.0, Source: 2, Flags: FlagGeofenceOK},
	}
	for _, r := range want {
		if err := rec.Record(r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if rec.Count() != 2 {
		t.Fatalf("count %d", rec.Count())
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}

	r := got[0]
	if r.Timestamp != 1.5 || r.Lat != 37.123456 || r.Lon != -122.654321 {
		t.Fatalf("doubles corrupted: %+v", r)
	}
	// float32 fields round-trip at float32 precision.
	if math.Abs(r.VnMps-9.5) > 1e-6 || math.Abs(r.HeadingDeg-358.5) > 1e-4 {
		t.Fatalf("floats corrupted: %+v", r)
	}
	if r.FixQuality != 1 || r.MatchCount != 42 || r.LatencyMs != 120 {
		t.Fatalf("ints corrupted: %+v", r)
	}
	if r.Flags != FlagGeofenceOK|FlagEkfAccepted {
		t.Fatalf("flags %x", r.Flags)
	}
}

func TestRecorderFileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.vpsf")
	rec, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	rec.Record(Record{})
	rec.Close()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if len(b) != headerSize+recordSize {
		t.Fatalf("file size %d, want %d", len(b), headerSize+recordSize)
	}
	if string(b[:4]) != "VPSF" {
		t.Fatalf("magic %q", b[:4])
	}
}

func TestReadDropsTornRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.vpsf")
	rec, _ := NewRecorder(path)
	rec.Record(Record{Timestamp: 1})
	rec.Close()

	// Append half a record, as a power loss would.
	f, _ := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	f.Write(make([]byte, recordSize/2))
	f.Close()

	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want the intact one", len(got))
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.vpsf")
	os.WriteFile(path, []byte("NOPE\x02\x00\x38\x00"), 0o644)
	if _, err := Read(path); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTelemetryWritesRows(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	tl, err := NewTelemetry(dir, "vps", now)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	tl.Log(Frame{Timestamp: 1.0, FrameNum: 0, Fix: true, Lat: 37.5, Lon: -122.25, HDOP: 1.2, NumMatches: 30, EkfAccepted: true})
	tl.Log(Frame{Timestamp: 1.3, FrameNum: 1, Fix: false})
	if err := tl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "vps_20240615_120000.csv"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows %d, want header + 2", len(rows))
	}
	if rows[0][0] != "timestamp" || len(rows[0]) != 21 {
		t.Fatalf("header %v", rows[0])
	}
	if rows[1][2] != "1" || rows[1][3] != "37.50000000" {
		t.Fatalf("fix row %v", rows[1])
	}
	// Miss rows leave the position columns empty.
	if rows[2][2] != "0" || rows[2][3] != "" || rows[2][4] != "" {
		t.Fatalf("miss row %v", rows[2])
	}
}
