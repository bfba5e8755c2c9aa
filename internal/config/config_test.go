package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Fusion.BufferSize != 5 {
		t.Errorf("buffer size: got %d, want 5", cfg.Fusion.BufferSize)
	}
	if cfg.Fusion.Momentum != 0.80 {
		t.Errorf("momentum: got %v, want 0.80", cfg.Fusion.Momentum)
	}
	if cfg.Calibration.MinRatio != 1.5 || cfg.Calibration.MaxRatio != 2.5 {
		t.Errorf("ratios: got %v/%v, want 1.5/2.5",
			cfg.Calibration.MinRatio, cfg.Calibration.MaxRatio)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.HTTP.Addr != ":5000" {
		t.Errorf("addr: got %q, want :5000", cfg.HTTP.Addr)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
http:
  addr: ":8080"
fusion:
  buffer_size: 8
  momentum: 0.75
  period: 5s
calibration:
  min_ratio: 1.4
  max_ratio: 2.2
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("addr: got %q, want :8080", cfg.HTTP.Addr)
	}
	if cfg.Fusion.BufferSize != 8 {
		t.Errorf("buffer size: got %d, want 8", cfg.Fusion.BufferSize)
	}
	if cfg.Fusion.Period != 5*time.Second {
		t.Errorf("period: got %v, want 5s", cfg.Fusion.Period)
	}
	if cfg.Calibration.MinRatio != 1.4 {
		t.Errorf("min ratio: got %v, want 1.4", cfg.Calibration.MinRatio)
	}
	// Untouched sections keep their defaults.
	if cfg.Sensors.PinPM25 != 23 {
		t.Errorf("pin_pm25: got %d, want default 23", cfg.Sensors.PinPM25)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"bad momentum", "fusion:\n  momentum: 1.5\n", "momentum"},
		{"bad buffer", "fusion:\n  buffer_size: 0\n", "buffer_size"},
		{"bad ratios", "calibration:\n  min_ratio: 3.0\n  max_ratio: 2.0\n", "ratios"},
		{"bad bounds", "bounds:\n  north: 1.0\n  south: 2.0\n", "bounds"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(c.body), 0644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Errorf("error %q does not mention %q", err, c.want)
			}
		})
	}
}
