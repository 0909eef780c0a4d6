// Package health tracks positioning performance over rolling windows and
// flags degradation for the headless operator.
package health

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Status is a point-in-time health snapshot.
type Status struct {
	FixRate            float64  `json:"fix_rate"`
	AvgLatencyMs       float64  `json:"avg_latency_ms"`
	MaxLatencyMs       float64  `json:"max_latency_ms"`
	FramesTotal        int      `json:"frames_total"`
	FixesTotal         int      `json:"fixes_total"`
	MissesTotal        int      `json:"misses_total"`
	OutliersRejected   int      `json:"outliers_rejected"`
	GeofenceViolations int      `json:"geofence_violations"`
	UptimeS            float64  `json:"uptime_s"`
	Healthy            bool     `json:"healthy"`
	Warnings           []string `json:"warnings,omitempty"`
}

// Monitor accumulates per-frame results. Not safe for concurrent use; the
// positioning loop is the only writer.
type Monitor struct {
	window               int
	minFixRate           float64
	maxLatencyMs         float64
	maxConsecutiveMisses int

	fixes     []bool
	latencies []float64

	consecutiveMisses  int
	totalFrames        int
	totalFixes         int
	totalMisses        int
	outliersRejected   int
	geofenceViolations int
	start              time.Time
}

// NewMonitor returns a monitor with the flight-tested thresholds: a 100
// frame window, 30% minimum fix rate, 500 ms latency target, and lost-fix
// after 30 consecutive misses.
func NewMonitor() *Monitor {
	return &Monitor{
		window:               100,
		minFixRate:           0.3,
		maxLatencyMs:         500.0,
		maxConsecutiveMisses: 30,
		start:                time.Now(),
	}
}

// RecordFrame records the outcome of one processed frame.
func (m *Monitor) RecordFrame(fix bool, latencyMs float64, ekfAccepted, geofenceOK bool) {
	m.totalFrames++
	m.fixes = append(m.fixes, fix)
	if len(m.fixes) > m.window {
		m.fixes = m.fixes[len(m.fixes)-m.window:]
	}
	m.latencies = append(m.latencies, latencyMs)
	if len(m.latencies) > m.window {
		m.latencies = m.latencies[len(m.latencies)-m.window:]
	}

	if fix {
		m.totalFixes++
		m.consecutiveMisses = 0
	} else {
		m.totalMisses++
		m.consecutiveMisses++
	}
	if !ekfAccepted {
		m.outliersRejected++
	}
	if !geofenceOK {
		m.geofenceViolations++
	}
}

// Status computes the current snapshot and its warnings.
func (m *Monitor) Status() Status {
	s := Status{
		FramesTotal:        m.totalFrames,
		FixesTotal:         m.totalFixes,
		MissesTotal:        m.totalMisses,
		OutliersRejected:   m.outliersRejected,
		GeofenceViolations: m.geofenceViolations,
		UptimeS:            time.Since(m.start).Seconds(),
		Healthy:            true,
	}

	if len(m.fixes) > 0 {
		n := 0
		for _, f := range m.fixes {
			if f {
				n++
			}
		}
		s.FixRate = float64(n) / float64(len(m.fixes))
	}
	if m.totalFrames > 10 && s.FixRate < m.minFixRate {
		s.Warnings = append(s.Warnings, fmt.Sprintf("low fix rate: %.0f%% (min %.0f%%)", s.FixRate*100, m.minFixRate*100))
		s.Healthy = false
	}

	if len(m.latencies) > 0 {
		var sum float64
		for _, l := range m.latencies {
			sum += l
			if l > s.MaxLatencyMs {
				s.MaxLatencyMs = l
			}
		}
		s.AvgLatencyMs = sum / float64(len(m.latencies))
	}
	if s.AvgLatencyMs > m.maxLatencyMs {
		s.Warnings = append(s.Warnings, fmt.Sprintf("high latency: %.0fms avg (max %.0fms)", s.AvgLatencyMs, m.maxLatencyMs))
		s.Healthy = false
	}

	if m.consecutiveMisses >= m.maxConsecutiveMisses {
		s.Warnings = append(s.Warnings, fmt.Sprintf("lost fix: %d consecutive misses", m.consecutiveMisses))
		s.Healthy = false
	}

	if m.geofenceViolations > 0 {
		s.Warnings = append(s.Warnings, fmt.Sprintf("geofence violations: %d", m.geofenceViolations))
	}

	return s
}

// LogStatus writes a one-line summary to the process log.
func (m *Monitor) LogStatus() {
	s := m.Status()
	msg := fmt.Sprintf("health fix=%.0f%% lat=%.0fms frames=%d fixes=%d misses=%d outliers=%d",
		s.FixRate*100, s.AvgLatencyMs, s.FramesTotal, s.FixesTotal, s.MissesTotal, s.OutliersRejected)
	if len(s.Warnings) > 0 {
		msg += " WARNINGS: " + strings.Join(s.Warnings, "; ")
	}
	log.Print(msg)
}
