// Package sensor acquires raw particulate and environmental samples with
// hardware abstraction. The hardware implementation samples dust-sensor
// duty cycles and a DHT22 over the Linux GPIO character device; the
// simulated implementation synthesizes plausible campus values from the
// wall clock. The fake implementation returns scripted frames for tests.
package sensor

import "time"

// Channel identifies one measurement channel.
type Channel string

const (
	ChannelPM25        Channel = "pm25"
	ChannelPM10        Channel = "pm10"
	ChannelTemperature Channel = "temperature"
	ChannelHumidity    Channel = "humidity"
)

// Kind reports what the particulate values in a Frame mean.
type Kind string

const (
	// KindDuty marks PM values as raw duty-cycle percentages [0, 90]
	// that still need calibration into concentrations.
	KindDuty Kind = "duty"

	// KindConcentration marks PM values as µg/m³ directly.
	KindConcentration Kind = "concentration"
)

// Sample is a single channel reading. OK is false when the sensor could
// not be read; Value is meaningless in that case.
type Sample struct {
	Value float64
	OK    bool
}

// Frame is one acquisition cycle's worth of samples across all channels.
type Frame struct {
	PM25        Sample
	PM10        Sample
	Temperature Sample
	Humidity    Sample
	Kind        Kind
	AcquiredAt  time.Time
}

// Acquirer produces one Frame per acquisition cycle.
type Acquirer interface {
	// Acquire reads all four channels. Individual channel failures are
	// reported via Sample.OK; an error return means the whole frame is
	// unusable and the caller should substitute another source.
	Acquire() (Frame, error)

	// Close releases any underlying resources.
	Close() error
}

// Pin definitions (BCM numbering) for the hardware rig.
const (
	DefaultPinPM25 = 23
	DefaultPinPM10 = 24
	DefaultPinDHT  = 27
)
