// Package mqtt publishes fused air-quality readings with abstraction for
// testing. Publishing is optional; the daemon runs identically with no
// broker configured.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/nitk/air-monitor/internal/fusion"
)

// Topic is the MQTT topic for fused readings.
const Topic = "air/quality/readings"

// TopicSystem is the MQTT topic for daemon lifecycle events.
const TopicSystem = "air/quality/system"

// Publisher publishes readings to MQTT.
type Publisher interface {
	// Publish sends a fused reading to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(reading fusion.Reading) error

	// PublishSystem sends a daemon lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a daemon lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp time.Time
	Event     string // e.g., "STARTUP", "SHUTDOWN"
	Reason    string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	Mode      string // "hardware" or "simulation"
	Retained  bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure for readings.
type Payload struct {
	Reading ReadingPayload `json:"reading"`
}

// ReadingPayload contains the fused reading details.
type ReadingPayload struct {
	Timestamp   string  `json:"timestamp"`
	PM25        float64 `json:"pm25"`
	PM10        float64 `json:"pm10"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	AQI         int     `json:"aqi"`
}

// FormatPayload creates the JSON payload for a fused reading.
func FormatPayload(reading fusion.Reading) ([]byte, error) {
	payload := Payload{
		Reading: ReadingPayload{
			Timestamp:   reading.Timestamp.UTC().Format(time.RFC3339),
			PM25:        reading.PM25,
			PM10:        reading.PM10,
			Temperature: reading.Temperature,
			Humidity:    reading.Humidity,
			AQI:         reading.AQI,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
	Mode      string `json:"mode,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			Mode:      event.Mode,
		},
	}
	return json.Marshal(payload)
}
