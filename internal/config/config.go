// Package config loads the monitor's YAML configuration. Every tunable of
// the fusion pipeline (calibration, buffer size, momentum, cycle period)
// lives here so the daemon never needs a rebuild for a recalibration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Database    DatabaseConfig    `yaml:"database"`
	Tiles       TilesConfig       `yaml:"tiles"`
	Bounds      BoundsConfig      `yaml:"bounds"`
	Sensors     SensorConfig      `yaml:"sensors"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Fusion      FusionConfig      `yaml:"fusion"`
}

// HTTPConfig contains the API server configuration.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// MQTTConfig contains the optional reading publisher configuration.
// An empty broker disables publishing.
type MQTTConfig struct {
	Broker string `yaml:"broker"`
}

// DatabaseConfig contains the SQLite store configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// TilesConfig contains the offline map tile configuration.
type TilesConfig struct {
	Dir     string `yaml:"dir"`
	MinZoom int    `yaml:"min_zoom"`
	MaxZoom int    `yaml:"max_zoom"`
}

// BoundsConfig is the surveyed campus bounding box. Submissions outside
// it are rejected and tiles outside it are not served.
type BoundsConfig struct {
	North float64 `yaml:"north"`
	South float64 `yaml:"south"`
	East  float64 `yaml:"east"`
	West  float64 `yaml:"west"`
}

// SensorConfig contains acquisition parameters.
type SensorConfig struct {
	Hardware bool          `yaml:"hardware"` // attempt hardware acquisition at startup
	PinPM25  int           `yaml:"pin_pm25"`
	PinPM10  int           `yaml:"pin_pm10"`
	PinDHT   int           `yaml:"pin_dht"`
	Window   time.Duration `yaml:"window"` // duty-cycle sampling window per channel
}

// ChannelCalibration contains per-channel scaling into µg/m³.
type ChannelCalibration struct {
	Baseline   float64 `yaml:"baseline"`
	Multiplier float64 `yaml:"multiplier"`
	HardCap    float64 `yaml:"hard_cap"`
	IndoorCap  float64 `yaml:"indoor_cap"`
	OutdoorCap float64 `yaml:"outdoor_cap"`
}

// CalibrationConfig contains the full calibration surface shared by live
// acquisition and submitted collection points.
type CalibrationConfig struct {
	PM25              ChannelCalibration `yaml:"pm25"`
	PM10              ChannelCalibration `yaml:"pm10"`
	MinRatio          float64            `yaml:"min_ratio"` // PM10 never below this multiple of PM2.5
	MaxRatio          float64            `yaml:"max_ratio"` // PM10 never above this multiple of PM2.5
	NoiseFloorDuty    float64            `yaml:"noise_floor_duty"`
	HumidityThreshold float64            `yaml:"humidity_threshold"`
	HumidityFactor    float64            `yaml:"humidity_factor"`
}

// FusionConfig contains the smoothing and cycle parameters.
type FusionConfig struct {
	BufferSize int           `yaml:"buffer_size"`
	Momentum   float64       `yaml:"momentum"`
	Period     time.Duration `yaml:"period"`
}

// Default returns the configuration the daemon runs with when no file is
// supplied: the NITK campus bounds and the field-calibrated constants.
func Default() Config {
	return Config{
		HTTP:     HTTPConfig{Addr: ":5000"},
		Database: DatabaseConfig{Path: "data/air_quality.db"},
		Tiles:    TilesConfig{Dir: "static/tiles", MinZoom: 14, MaxZoom: 19},
		Bounds:   BoundsConfig{North: 13.018, South: 13.004, East: 74.802, West: 74.780},
		Sensors: SensorConfig{
			PinPM25: 23,
			PinPM10: 24,
			PinDHT:  27,
			Window:  3 * time.Second,
		},
		Calibration: CalibrationConfig{
			PM25: ChannelCalibration{
				Baseline:   15,
				Multiplier: 1.0,
				HardCap:    500,
				IndoorCap:  150,
				OutdoorCap: 300,
			},
			PM10: ChannelCalibration{
				Baseline:   35,
				Multiplier: 1.2,
				HardCap:    600,
				IndoorCap:  250,
				OutdoorCap: 430,
			},
			MinRatio:          1.5,
			MaxRatio:          2.5,
			NoiseFloorDuty:    3,
			HumidityThreshold: 70,
			HumidityFactor:    0.95,
		},
		Fusion: FusionConfig{
			BufferSize: 5,
			Momentum:   0.80,
			Period:     10 * time.Second,
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file is not
// an error; the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Fusion.BufferSize < 1 {
		return fmt.Errorf("fusion.buffer_size must be >= 1, got %d", c.Fusion.BufferSize)
	}
	if c.Fusion.Momentum < 0 || c.Fusion.Momentum >= 1 {
		return fmt.Errorf("fusion.momentum must be in [0, 1), got %v", c.Fusion.Momentum)
	}
	if c.Fusion.Period <= 0 {
		return fmt.Errorf("fusion.period must be positive, got %v", c.Fusion.Period)
	}
	if c.Calibration.MinRatio <= 0 || c.Calibration.MaxRatio < c.Calibration.MinRatio {
		return fmt.Errorf("calibration ratios invalid: min %v, max %v",
			c.Calibration.MinRatio, c.Calibration.MaxRatio)
	}
	if c.Bounds.North <= c.Bounds.South || c.Bounds.East <= c.Bounds.West {
		return fmt.Errorf("bounds invalid: %+v", c.Bounds)
	}
	return nil
}
