package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vps-onboard/internal/config"
	"vps-onboard/internal/ekf"
	"vps-onboard/internal/flightlog"
	"vps-onboard/internal/fusion"
	"vps-onboard/internal/geo"
	"vps-onboard/internal/geofence"
	"vps-onboard/internal/health"
	"vps-onboard/internal/msp"
	"vps-onboard/internal/nmea"
	"vps-onboard/internal/ratelimit"
	"vps-onboard/internal/sim"
	"vps-onboard/internal/statusled"
	"vps-onboard/internal/uart"
	"vps-onboard/internal/udp"
	"vps-onboard/internal/web"
)

// fixSource produces one candidate visual fix per tick. The built-in
// simulator implements it; a real matching pipeline feeds the same shape.
type fixSource interface {
	Fix(tick int, t float64) (*geo.GeoPoint, float64)
}

type scenarioSource struct {
	sc *sim.Scenario
}

func (s scenarioSource) Fix(_ int, t float64) (*geo.GeoPoint, float64) {
	return s.sc.Fix(t)
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./vps.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var fence *geofence.Fence
	if cfg.Geofence.Enable {
		center := geo.GeoPoint{Lat: cfg.Geofence.CenterLat, Lon: cfg.Geofence.CenterLon}
		var f geofence.Fence
		if cfg.Geofence.Type == "circle" {
			f = geofence.NewCircle(center, cfg.Geofence.RadiusKm, cfg.Geofence.MarginKm)
		} else {
			f = geofence.NewRect(center, cfg.Geofence.HalfLatKm, cfg.Geofence.HalfLonKm, cfg.Geofence.MarginKm)
		}
		fence = &f
		log.Printf("geofence enabled type=%s margin_km=%.2f", cfg.Geofence.Type, cfg.Geofence.MarginKm)
	}

	fus := fusion.New(ekf.Config{
		ProcessNoise:     cfg.EKF.ProcessNoise,
		MeasurementNoise: cfg.EKF.MeasurementNoise,
		GateThreshold:    cfg.EKF.GateThreshold,
		MaxGapS:          cfg.EKF.MaxGapS,
	}, cfg.DR.MaxExtrapS, fence)

	var source fixSource
	if cfg.Sim.Enable {
		if cfg.Sim.Scenario != "" {
			sc, err := sim.LoadScenario(cfg.Sim.Scenario)
			if err != nil {
				log.Fatalf("scenario load failed: %v", err)
			}
			source = scenarioSource{sc: sc}
			log.Printf("sim enabled scenario=%s duration=%s", cfg.Sim.Scenario, sc.Duration())
		} else {
			source = sim.FlightSim{
				Center:   geo.GeoPoint{Lat: cfg.Sim.CenterLat, Lon: cfg.Sim.CenterLon},
				RadiusM:  cfg.Sim.RadiusM,
				SpeedMps: cfg.Sim.SpeedMps,
				HDOP:     cfg.Sim.HDOP,
				Dropout:  cfg.Sim.Dropout,
			}
			log.Printf("sim enabled center=%.5f,%.5f radius_m=%.0f", cfg.Sim.CenterLat, cfg.Sim.CenterLon, cfg.Sim.RadiusM)
		}
	} else {
		log.Printf("no fix source configured; ticking with empty frames")
	}

	var serial *uart.Manager
	if cfg.UART.Enable {
		serial = uart.NewManager(cfg.UART.Port, cfg.UART.Baud)
		if err := serial.Open(); err != nil {
			// The manager reconnects on the next send; do not abort startup.
			log.Printf("uart open failed (will retry): %v", err)
		}
		defer serial.Close()
	}

	var broadcaster *udp.Broadcaster
	if cfg.Output.UDPDest != "" {
		broadcaster, err = udp.NewBroadcaster(cfg.Output.UDPDest)
		if err != nil {
			log.Fatalf("udp broadcaster init failed: %v", err)
		}
		defer broadcaster.Close()
		log.Printf("udp rebroadcast dest=%s", cfg.Output.UDPDest)
	}

	status := web.NewStatus()
	var hub *web.Hub
	if cfg.Web.Enable {
		hub = web.NewHub()
		go hub.Run()
		defer hub.Close()

		srv := &http.Server{Addr: cfg.Web.Listen, Handler: web.Handler(status, hub)}
		go func() {
			log.Printf("web listening on %s", cfg.Web.Listen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("web server stopped: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var led *statusled.Service
	if cfg.LED.Enable {
		led, err = statusled.New(cfg.LED.Chip, cfg.LED.Line)
		if err != nil {
			log.Printf("status led unavailable: %v", err)
		} else {
			led.Start(ctx)
			defer led.Close()
		}
	}

	var recorder *flightlog.Recorder
	if cfg.FlightLog.Enable {
		recorder, err = flightlog.NewRecorder(cfg.FlightLog.Path)
		if err != nil {
			log.Fatalf("flight recorder init failed: %v", err)
		}
		defer recorder.Close()
		log.Printf("flight recording to %s", cfg.FlightLog.Path)
	}

	var telemetry *flightlog.Telemetry
	if cfg.Telemetry.Enable {
		telemetry, err = flightlog.NewTelemetry(cfg.Telemetry.Dir, cfg.Telemetry.Prefix, time.Now())
		if err != nil {
			log.Fatalf("telemetry init failed: %v", err)
		}
		defer telemetry.Close()
	}

	monitor := health.NewMonitor()
	limiter := ratelimit.New(cfg.Output.MaxHz, cfg.Output.Burst)

	log.Printf("vps-onboard starting target_hz=%.1f uart=%s proto=%s", cfg.TargetHz, cfg.UART.Port, cfg.UART.Protocol)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / cfg.TargetHz))
	defer ticker.Stop()
	healthTicker := time.NewTicker(10 * time.Second)
	defer healthTicker.Stop()

	start := time.Now()
	ggaBuf := make([]byte, nmea.MinBufLen)
	rmcBuf := make([]byte, nmea.MinBufLen)
	mspBuf := make([]byte, msp.FrameSize)
	tick := 0

	for {
		select {
		case <-ctx.Done():
			log.Printf("vps-onboard stopping")
			return
		case <-healthTicker.C:
			monitor.LogStatus()
			continue
		case <-ticker.C:
		}

		frameStart := time.Now()
		t := frameStart.Sub(start).Seconds()

		var visual *geo.GeoPoint
		var hdop float64
		if source != nil {
			visual, hdop = source.Fix(tick, t)
		}
		tick++

		out := fus.Update(visual, hdop, t)
		latencyMs := float64(time.Since(frameStart).Microseconds()) / 1000.0
		monitor.RecordFrame(visual != nil, latencyMs, out.EkfAccepted, out.GeofenceOK)

		if recorder != nil {
			var flags uint16
			if out.GeofenceOK {
				flags |= flightlog.FlagGeofenceOK
			}
			if out.EkfAccepted {
				flags |= flightlog.FlagEkfAccepted
			}
			vn, ve := fus.VelocityMps()
			if err := recorder.Record(flightlog.Record{
				Timestamp:  t,
				Lat:        out.Position.Lat,
				Lon:        out.Position.Lon,
				VnMps:      vn,
				VeMps:      ve,
				HDOP:       out.HDOP,
				SpeedMps:   out.SpeedMps,
				HeadingDeg: out.HeadingDeg,
				FixQuality: uint8(out.FixQuality),
				Source:     uint8(out.Source),
				LatencyMs:  uint16(latencyMs),
				Flags:      flags,
			}); err != nil {
				log.Printf("flight record failed: %v", err)
			}
		}

		if telemetry != nil {
			if err := telemetry.Log(flightlog.Frame{
				Timestamp:   t,
				FrameNum:    tick - 1,
				Fix:         visual != nil,
				Lat:         out.Position.Lat,
				Lon:         out.Position.Lon,
				HDOP:        out.HDOP,
				TotalMs:     latencyMs,
				EkfLat:      out.Position.Lat,
				EkfLon:      out.Position.Lon,
				EkfSpeedMps: out.SpeedMps,
				EkfGate:     fus.LastGate(),
				EkfAccepted: out.EkfAccepted,
			}); err != nil {
				log.Printf("telemetry write failed: %v", err)
			}
		}

		if limiter.Allow(t) {
			emit(out, serial, broadcaster, cfg.UART.Protocol, ggaBuf, rmcBuf, mspBuf)
		}

		snap := web.PositionSnapshot{
			Valid:      out.HasPosition,
			LatDeg:     out.Position.Lat,
			LonDeg:     out.Position.Lon,
			HDOP:       out.HDOP,
			SpeedMps:   out.SpeedMps,
			HeadingDeg: out.HeadingDeg,
			Source:     out.Source.String(),
			FixQuality: int(out.FixQuality),
			GeofenceOK: out.GeofenceOK,
		}
		status.SetPosition(time.Now().UTC(), snap)
		status.SetHealth(monitor.Status())
		if serial != nil {
			status.SetLinkStats(serial.Stats(), limiter.Stats())
		}
		if hub != nil {
			if b, err := json.Marshal(snap); err == nil {
				hub.Broadcast(b)
			}
		}

		if led != nil {
			switch {
			case out.Source == fusion.SourceVisual:
				led.SetMode(statusled.Solid)
			case out.HasPosition:
				led.SetMode(statusled.Blink)
			default:
				led.SetMode(statusled.Off)
			}
		}
	}
}

// emit encodes and ships one output frame over the configured links.
func emit(out fusion.Output, serial *uart.Manager, broadcaster *udp.Broadcaster, protocol string, ggaBuf, rmcBuf, mspBuf []byte) {
	now := time.Now().UTC()

	ggaN := nmea.FormatGGA(ggaBuf, out.Position, int(out.FixQuality), out.HDOP, 0.0, now)
	rmcN := nmea.FormatRMC(rmcBuf, out.Position, out.HasPosition, out.SpeedMps*nmea.MpsToKnots, out.HeadingDeg, now)

	frame := msp.FromPosition(out.Position, out.SpeedMps, out.HeadingDeg, out.HDOP, out.HasPosition)
	mspN := msp.Encode(mspBuf, frame)

	if serial != nil {
		if protocol == "nmea" || protocol == "both" {
			serial.SendNMEA(ggaBuf[:ggaN], rmcBuf[:rmcN])
		}
		if protocol == "msp" || protocol == "both" {
			serial.SendMSP(mspBuf[:mspN])
		}
	}
	if broadcaster != nil {
		if err := broadcaster.SendSentences(ggaBuf[:ggaN], rmcBuf[:rmcN]); err != nil {
			log.Printf("udp send failed: %v", err)
		}
	}
}
