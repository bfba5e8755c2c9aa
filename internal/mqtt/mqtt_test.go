package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nitk/air-monitor/internal/fusion"
)

func testReading() fusion.Reading {
	return fusion.Reading{
		PM25:        14.5,
		PM10:        33.2,
		Temperature: 28.1,
		Humidity:    64,
		AQI:         56,
		Timestamp:   time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestFormatPayload(t *testing.T) {
	data, err := FormatPayload(testReading())
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Reading.PM25 != 14.5 {
		t.Errorf("pm25: got %v, want 14.5", p.Reading.PM25)
	}
	if p.Reading.AQI != 56 {
		t.Errorf("aqi: got %d, want 56", p.Reading.AQI)
	}
	if p.Reading.Timestamp != "2026-03-14T12:00:00Z" {
		t.Errorf("timestamp: got %q", p.Reading.Timestamp)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Event:     "STARTUP",
		Mode:      "simulation",
	}
	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var p SystemPayload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.System.Event != "STARTUP" {
		t.Errorf("event: got %q, want STARTUP", p.System.Event)
	}
	if p.System.Mode != "simulation" {
		t.Errorf("mode: got %q, want simulation", p.System.Mode)
	}
	if p.System.Reason != "" {
		t.Errorf("reason: got %q, want empty", p.System.Reason)
	}
}

func TestFakePublisherRecords(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish(testReading()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(f.Readings) != 1 || len(f.Payloads) != 1 {
		t.Fatalf("recorded %d readings, %d payloads", len(f.Readings), len(f.Payloads))
	}

	if err := f.PublishSystem(SystemEvent{Event: "SHUTDOWN", Reason: "SIGTERM"}); err != nil {
		t.Fatalf("publish system: %v", err)
	}
	if len(f.SystemEvents) != 1 {
		t.Fatalf("recorded %d system events", len(f.SystemEvents))
	}

	f.PublishError = errors.New("broker down")
	if err := f.Publish(testReading()); err == nil {
		t.Error("expected configured publish error")
	}
	if len(f.Readings) != 1 {
		t.Errorf("failed publish was recorded")
	}

	f.Reset()
	if len(f.Readings) != 0 || len(f.SystemEvents) != 0 {
		t.Error("reset did not clear recordings")
	}
}
