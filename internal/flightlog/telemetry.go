package flightlog

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var telemetryFields = []string{
	"timestamp",
	"frame_num",
	"fix",
	"lat",
	"lon",
	"hdop",
	"inlier_ratio",
	"num_matches",
	"tile_z",
	"tile_x",
	"tile_y",
	"retrieval_ms",
	"match_ms",
	"total_ms",
	"ekf_lat",
	"ekf_lon",
	"ekf_vlat",
	"ekf_vlon",
	"ekf_speed_mps",
	"ekf_gate",
	"ekf_accepted",
}

// Frame is one telemetry row. Position and tile fields are left empty in
// the CSV on frames without a fix.
type Frame struct {
	Timestamp   float64
	FrameNum    int
	Fix         bool
	Lat         float64
	Lon         float64
	HDOP        float64
	InlierRatio float64
	NumMatches  int
	TileZ       int
	TileX       int
	TileY       int
	RetrievalMs float64
	MatchMs     float64
	TotalMs     float64
	EkfLat      float64
	EkfLon      float64
	EkfVlat     float64
	EkfVlon     float64
	EkfSpeedMps float64
	EkfGate     float64
	EkfAccepted bool
}

func (f Frame) row() []string {
	blankUnlessFix := func(s string) string {
		if f.Fix {
			return s
		}
		return ""
	}
	b2i := func(v bool) string {
		if v {
			return "1"
		}
		return "0"
	}
	return []string{
		fmt.Sprintf("%.3f", f.Timestamp),
		strconv.Itoa(f.FrameNum),
		b2i(f.Fix),
		blankUnlessFix(fmt.Sprintf("%.8f", f.Lat)),
		blankUnlessFix(fmt.Sprintf("%.8f", f.Lon)),
		blankUnlessFix(fmt.Sprintf("%.2f", f.HDOP)),
		blankUnlessFix(fmt.Sprintf("%.3f", f.InlierRatio)),
		strconv.Itoa(f.NumMatches),
		blankUnlessFix(strconv.Itoa(f.TileZ)),
		blankUnlessFix(strconv.Itoa(f.TileX)),
		blankUnlessFix(strconv.Itoa(f.TileY)),
		fmt.Sprintf("%.1f", f.RetrievalMs),
		fmt.Sprintf("%.1f", f.MatchMs),
		fmt.Sprintf("%.1f", f.TotalMs),
		fmt.Sprintf("%.8f", f.EkfLat),
		fmt.Sprintf("%.8f", f.EkfLon),
		fmt.Sprintf("%.10f", f.EkfVlat),
		fmt.Sprintf("%.10f", f.EkfVlon),
		fmt.Sprintf("%.2f", f.EkfSpeedMps),
		fmt.Sprintf("%.2f", f.EkfGate),
		b2i(f.EkfAccepted),
	}
}

// Telemetry writes frame-by-frame CSV logs, one file per session.
type Telemetry struct {
	f      *os.File
	w      *csv.Writer
	frames int
}

// NewTelemetry creates <dir>/<prefix>_<timestamp>.csv and writes the
// header row. The directory is created if missing.
func NewTelemetry(dir, prefix string, now time.Time) (*Telemetry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, now.Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(telemetryFields); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	log.Printf("telemetry logging to %s", path)
	return &Telemetry{f: f, w: w}, nil
}

// Log appends one frame, flushing every 100 rows.
func (t *Telemetry) Log(frame Frame) error {
	if t.w == nil {
		return nil
	}
	if err := t.w.Write(frame.row()); err != nil {
		return err
	}
	t.frames++
	if t.frames%100 == 0 {
		t.w.Flush()
	}
	return t.w.Error()
}

// Close flushes and closes the log file.
func (t *Telemetry) Close() error {
	if t.f == nil {
		return nil
	}
	t.w.Flush()
	err := t.f.Close()
	t.f = nil
	t.w = nil
	log.Printf("telemetry stopped, %d frames logged", t.frames)
	return err
}
