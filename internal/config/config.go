package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	TargetHz  float64         `yaml:"target_hz"`
	UART      UARTConfig      `yaml:"uart"`
	EKF       EKFConfig       `yaml:"ekf"`
	DR        DRConfig        `yaml:"dr"`
	Geofence  GeofenceConfig  `yaml:"geofence"`
	Output    OutputConfig    `yaml:"output"`
	Web       WebConfig       `yaml:"web"`
	LED       LEDConfig       `yaml:"led"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	FlightLog FlightLogConfig `yaml:"flightlog"`
	Sim       SimConfig       `yaml:"sim"`
}

type UARTConfig struct {
	Enable   bool   `yaml:"enable"`
	Port     string `yaml:"port"`
	Baud     int    `yaml:"baud"`
	Protocol string `yaml:"protocol"` // nmea, msp, or both
}

// EKFConfig tunes the position filter. Noise values are in degree-squared
// units; the state is degrees, not meters.
type EKFConfig struct {
	ProcessNoise     float64 `yaml:"process_noise"`
	MeasurementNoise float64 `yaml:"measurement_noise"`
	GateThreshold    float64 `yaml:"gate_threshold"`
	MaxGapS          float64 `yaml:"max_gap_s"`
}

type DRConfig struct {
	MaxExtrapS float64 `yaml:"max_extrap_s"`
}

type GeofenceConfig struct {
	Enable    bool    `yaml:"enable"`
	Type      string  `yaml:"type"` // circle or rect
	CenterLat float64 `yaml:"center_lat"`
	CenterLon float64 `yaml:"center_lon"`
	RadiusKm  float64 `yaml:"radius_km"`
	HalfLatKm float64 `yaml:"half_lat_km"`
	HalfLonKm float64 `yaml:"half_lon_km"`
	MarginKm  float64 `yaml:"margin_km"`
}

type OutputConfig struct {
	UDPDest string  `yaml:"udp_dest"` // optional NMEA rebroadcast
	MaxHz   float64 `yaml:"max_hz"`
	Burst   int     `yaml:"burst"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

type LEDConfig struct {
	Enable bool   `yaml:"enable"`
	Chip   string `yaml:"chip"`
	Line   int    `yaml:"line"`
}

type TelemetryConfig struct {
	Enable bool   `yaml:"enable"`
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

type FlightLogConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

// SimConfig drives the built-in fix simulator used when no matching
// pipeline is attached (bench testing, HIL).
type SimConfig struct {
	Enable    bool    `yaml:"enable"`
	Scenario  string  `yaml:"scenario"` // optional scenario script path
	CenterLat float64 `yaml:"center_lat"`
	CenterLon float64 `yaml:"center_lon"`
	RadiusM   float64 `yaml:"radius_m"`
	SpeedMps  float64 `yaml:"speed_mps"`
	HDOP      float64 `yaml:"hdop"`
	Dropout   float64 `yaml:"dropout"` // fraction of ticks without a fix [0,1)
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.TargetHz <= 0 {
		cfg.TargetHz = 3.0
	}

	if cfg.UART.Port == "" {
		cfg.UART.Port = "/dev/ttyAMA0"
	}
	if cfg.UART.Baud == 0 {
		cfg.UART.Baud = 115200
	}
	if cfg.UART.Protocol == "" {
		cfg.UART.Protocol = "nmea"
	}
	switch cfg.UART.Protocol {
	case "nmea", "msp", "both":
	default:
		return Config{}, fmt.Errorf("uart.protocol must be nmea, msp, or both")
	}

	if cfg.EKF.ProcessNoise == 0 {
		cfg.EKF.ProcessNoise = 1e-10
	}
	if cfg.EKF.MeasurementNoise == 0 {
		cfg.EKF.MeasurementNoise = 1e-8
	}
	if cfg.EKF.GateThreshold == 0 {
		cfg.EKF.GateThreshold = 5.0
	}
	if cfg.EKF.MaxGapS == 0 {
		cfg.EKF.MaxGapS = 30.0
	}

	if cfg.DR.MaxExtrapS == 0 {
		cfg.DR.MaxExtrapS = 10.0
	}

	if cfg.Geofence.Enable {
		switch cfg.Geofence.Type {
		case "circle":
			if cfg.Geofence.RadiusKm <= 0 {
				return Config{}, fmt.Errorf("geofence.radius_km is required for a circle fence")
			}
		case "rect":
			if cfg.Geofence.HalfLatKm <= 0 || cfg.Geofence.HalfLonKm <= 0 {
				return Config{}, fmt.Errorf("geofence.half_lat_km and half_lon_km are required for a rect fence")
			}
		default:
			return Config{}, fmt.Errorf("geofence.type must be circle or rect")
		}
		if cfg.Geofence.MarginKm < 0 {
			return Config{}, fmt.Errorf("geofence.margin_km must be >= 0")
		}
	}

	if cfg.Output.MaxHz <= 0 {
		cfg.Output.MaxHz = 5.0
	}
	if cfg.Output.Burst <= 0 {
		cfg.Output.Burst = 2
	}

	if cfg.Web.Enable && cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	if cfg.LED.Enable && cfg.LED.Chip == "" {
		cfg.LED.Chip = "gpiochip0"
	}

	if cfg.Telemetry.Enable {
		if cfg.Telemetry.Dir == "" {
			return Config{}, fmt.Errorf("telemetry.dir is required when telemetry.enable is true")
		}
		if cfg.Telemetry.Prefix == "" {
			cfg.Telemetry.Prefix = "vps"
		}
	}
	if cfg.FlightLog.Enable && cfg.FlightLog.Path == "" {
		return Config{}, fmt.Errorf("flightlog.path is required when flightlog.enable is true")
	}

	// Simulator defaults (safe even if disabled).
	if cfg.Sim.RadiusM <= 0 {
		cfg.Sim.RadiusM = 200.0
	}
	if cfg.Sim.SpeedMps <= 0 {
		cfg.Sim.SpeedMps = 8.0
	}
	if cfg.Sim.HDOP <= 0 {
		cfg.Sim.HDOP = 1.0
	}
	if cfg.Sim.Dropout < 0 || cfg.Sim.Dropout >= 1 {
		return Config{}, fmt.Errorf("sim.dropout must be in [0,1)")
	}

	return cfg, nil
}
