package web

import (
	"sync"
	"time"

	"vps-onboard/internal/health"
	"vps-onboard/internal/ratelimit"
	"vps-onboard/internal/uart"
)

// PositionSnapshot is the UI-friendly view of the latest fused position.
type PositionSnapshot struct {
	Valid      bool    `json:"valid"`
	LatDeg     float64 `json:"lat_deg,omitempty"`
	LonDeg     float64 `json:"lon_deg,omitempty"`
	HDOP       float64 `json:"hdop,omitempty"`
	SpeedMps   float64 `json:"speed_mps,omitempty"`
	HeadingDeg float64 `json:"heading_deg,omitempty"`
	Source     string  `json:"source"`
	FixQuality int     `json:"fix_quality"`
	GeofenceOK bool    `json:"geofence_ok"`
	UpdatedUTC string  `json:"updated_utc,omitempty"`
}

// Snapshot is the full /api/status document.
type Snapshot struct {
	UptimeS    float64          `json:"uptime_s"`
	FramesSeen uint64           `json:"frames_seen"`
	Position   PositionSnapshot `json:"position"`
	Health     health.Status    `json:"health"`
	UART       *uart.Stats      `json:"uart,omitempty"`
	Output     *ratelimit.Stats `json:"output,omitempty"`
}

// Status aggregates state from the positioning loop for the web UI.
// Safe for concurrent use.
type Status struct {
	start time.Time

	mu       sync.RWMutex
	frames   uint64
	position PositionSnapshot
	health   health.Status
	uart     *uart.Stats
	output   *ratelimit.Stats
}

func NewStatus() *Status {
	return &Status{start: time.Now()}
}

// SetPosition publishes the latest fused position.
func (s *Status) SetPosition(nowUTC time.Time, p PositionSnapshot) {
	p.UpdatedUTC = nowUTC.UTC().Format(time.RFC3339Nano)
	s.mu.Lock()
	s.frames++
	s.position = p
	s.mu.Unlock()
}

// SetHealth publishes the latest health snapshot.
func (s *Status) SetHealth(h health.Status) {
	s.mu.Lock()
	s.health = h
	s.mu.Unlock()
}

// SetLinkStats publishes UART and output-limiter counters.
func (s *Status) SetLinkStats(u uart.Stats, o ratelimit.Stats) {
	s.mu.Lock()
	s.uart = &u
	s.output = &o
	s.mu.Unlock()
}

// Snapshot assembles the status document.
func (s *Status) Snapshot(now time.Time) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		UptimeS:    now.Sub(s.start).Seconds(),
		FramesSeen: s.frames,
		Position:   s.position,
		Health:     s.health,
		UART:       s.uart,
		Output:     s.output,
	}
}
