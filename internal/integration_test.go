package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/nitk/air-monitor/internal/config"
	"github.com/nitk/air-monitor/internal/fusion"
	"github.com/nitk/air-monitor/internal/mqtt"
	"github.com/nitk/air-monitor/internal/sensor"
	"github.com/nitk/air-monitor/internal/store"
	"github.com/nitk/air-monitor/internal/tiles"
	"github.com/nitk/air-monitor/internal/web"
)

// TestIntegrationFullFlow exercises the complete flow from scripted
// sensor frames through fusion, MQTT publishing, the HTTP API, and the
// store, using fakes for the hardware edges.
func TestIntegrationFullFlow(t *testing.T) {
	cfg := config.Default()

	// Scripted frames: steady indoor-like air with a brief spike the
	// smoothing should dampen.
	frames := []sensor.Frame{
		sensor.ConstantFrame(12, 28, 27, 60),
		sensor.ConstantFrame(12, 28, 27, 60),
		sensor.ConstantFrame(40, 90, 27, 60), // spike
		sensor.ConstantFrame(12, 28, 27, 60),
		sensor.ConstantFrame(12, 28, 27, 60),
	}
	acquirer := sensor.NewFakeAcquirer(frames)
	publisher := mqtt.NewFakePublisher()
	engine := fusion.NewEngine(acquirer, sensor.NewSimAcquirer(), cfg.Calibration, cfg.Fusion)

	// Simulate the main loop: cycle, then publish each fused reading.
	for i := 0; i < len(frames); i++ {
		reading := engine.Cycle()
		if err := publisher.Publish(reading); err != nil {
			t.Fatalf("cycle %d: publish: %v", i, err)
		}
	}

	if len(publisher.Readings) != len(frames) {
		t.Fatalf("published readings: got %d, want %d", len(publisher.Readings), len(frames))
	}

	// The spike cycle must not dominate: rolling average plus momentum
	// keeps the fused PM2.5 well below the raw 40.
	spike := publisher.Readings[2]
	if spike.PM25 >= 40 {
		t.Errorf("spike reading PM2.5: got %.1f, want < 40 after smoothing", spike.PM25)
	}
	for i, r := range publisher.Readings {
		if r.PM10 < r.PM25 {
			t.Errorf("reading %d: PM10 %.1f below PM2.5 %.1f", i, r.PM10, r.PM25)
		}
		if r.AQI <= 0 {
			t.Errorf("reading %d: AQI %d, want positive", i, r.AQI)
		}
	}

	latest, ok := engine.Latest()
	if !ok {
		t.Fatal("expected a latest reading after cycling")
	}

	// Now drive the HTTP API against a real store.
	st, err := store.Open(filepath.Join(t.TempDir(), "integration.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	bounds := tiles.Bounds{
		North: cfg.Bounds.North, South: cfg.Bounds.South,
		East: cfg.Bounds.East, West: cfg.Bounds.West,
	}
	srv := web.New(":0", engine, st, bounds, t.TempDir())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/realtime")
	if err != nil {
		t.Fatalf("GET /api/realtime: %v", err)
	}
	var rt web.RealtimeJSON
	if err := json.NewDecoder(resp.Body).Decode(&rt); err != nil {
		t.Fatalf("decode realtime: %v", err)
	}
	resp.Body.Close()
	if rt.Status != "active" {
		t.Fatalf("realtime status: got %q, want active", rt.Status)
	}
	if rt.PM25 != latest.PM25 || rt.AQI != latest.AQI {
		t.Errorf("realtime reading %v does not match engine latest %v", rt, latest)
	}

	// Submit a location reading backed by the live snapshot.
	lat := (cfg.Bounds.North + cfg.Bounds.South) / 2
	lon := (cfg.Bounds.East + cfg.Bounds.West) / 2
	body, _ := json.Marshal(map[string]any{
		"locationName": "Academic Block",
		"latitude":     lat,
		"longitude":    lon,
	})
	resp2, err := http.Post(ts.URL+"/api/collect", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/collect: %v", err)
	}
	var cr web.CollectResponse
	if err := json.NewDecoder(resp2.Body).Decode(&cr); err != nil {
		t.Fatalf("decode collect: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != 200 {
		t.Fatalf("collect status: got %d, want 200", resp2.StatusCode)
	}
	if cr.AQI != latest.AQI {
		t.Errorf("stored AQI: got %d, want %d", cr.AQI, latest.AQI)
	}

	readings, err := st.ListReadings()
	if err != nil {
		t.Fatalf("list readings: %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("stored readings: got %d, want 1", len(readings))
	}
	if readings[0].Location != "Academic Block" {
		t.Errorf("stored location: got %q", readings[0].Location)
	}
}

// TestIntegrationHardwareFallback verifies the loop keeps producing
// readings when the hardware path fails mid-run.
func TestIntegrationHardwareFallback(t *testing.T) {
	cfg := config.Default()

	hw := sensor.NewFakeAcquirer([]sensor.Frame{sensor.ConstantFrame(15, 34, 26, 55)})
	engine := fusion.NewEngine(hw, sensor.NewSimAcquirer(), cfg.Calibration, cfg.Fusion)

	first := engine.Cycle()
	if first.AQI <= 0 {
		t.Fatalf("first cycle AQI: got %d, want positive", first.AQI)
	}

	hw.AcquireError = errors.New("gpio chip gone")
	second := engine.Cycle()
	if second.AQI <= 0 {
		t.Errorf("fallback cycle AQI: got %d, want positive", second.AQI)
	}
	if _, ok := engine.Latest(); !ok {
		t.Error("latest reading lost after hardware failure")
	}
}
