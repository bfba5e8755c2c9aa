//go:build linux

package sensor

import (
	"fmt"
	"log"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Duty-cycle sampling parameters for the PPD42-style dust sensors.
const (
	dutyPollInterval = 10 * time.Millisecond
	dutyClampMax     = 90.0 // above this the sensor output is saturated
)

// DHT22 read parameters.
const (
	dhtAttempts    = 3
	dhtRetryDelay  = 300 * time.Millisecond
	dhtStartPulse  = 1500 * time.Microsecond
	dhtReadTimeout = 100 * time.Millisecond
	dhtBitCount    = 40
	// Falling-edge gaps above this decode as a 1 bit (~76µs for zero,
	// ~120µs for one).
	dhtOneThreshold = 100 * time.Microsecond
)

// HardwareAcquirer reads the dust sensors and DHT22 from actual hardware
// using the Linux GPIO character device.
type HardwareAcquirer struct {
	chip    *gpiocdev.Chip
	pm25Pin *gpiocdev.Line
	pm10Pin *gpiocdev.Line
	dhtPin  int
	window  time.Duration
}

// NewHardwareAcquirer requests the dust-sensor lines and probes the DHT22.
// The window is the duty-cycle sampling duration per particulate channel.
func NewHardwareAcquirer(pinPM25, pinPM10, pinDHT int, window time.Duration) (*HardwareAcquirer, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Dust sensor outputs are open collector; request with pull-up so an
	// idle line reads high and active (particle-present) reads low.
	pm25Line, err := chip.RequestLine(pinPM25, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request PM2.5 pin %d: %w", pinPM25, err)
	}

	pm10Line, err := chip.RequestLine(pinPM10, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		pm25Line.Close()
		chip.Close()
		return nil, fmt.Errorf("request PM10 pin %d: %w", pinPM10, err)
	}

	return &HardwareAcquirer{
		chip:    chip,
		pm25Pin: pm25Line,
		pm10Pin: pm10Line,
		dhtPin:  pinDHT,
		window:  window,
	}, nil
}

// Acquire samples both dust channels over the configured window and reads
// the DHT22 with bounded retries. PM values are duty-cycle percentages;
// the frame is marked KindDuty. Temperature/humidity absence is reported
// via Sample.OK, not as an error.
func (h *HardwareAcquirer) Acquire() (Frame, error) {
	start := time.Now()

	pm25Duty, err := h.readDuty(h.pm25Pin)
	if err != nil {
		return Frame{}, fmt.Errorf("read PM2.5 duty: %w", err)
	}
	pm10Duty, err := h.readDuty(h.pm10Pin)
	if err != nil {
		return Frame{}, fmt.Errorf("read PM10 duty: %w", err)
	}

	temp, humidity := h.readDHT()

	return Frame{
		PM25:        Sample{Value: pm25Duty, OK: true},
		PM10:        Sample{Value: pm10Duty, OK: true},
		Temperature: temp,
		Humidity:    humidity,
		Kind:        KindDuty,
		AcquiredAt:  start,
	}, nil
}

// readDuty polls the line over the sampling window and returns the
// percentage of time it was low, clamped to [0, dutyClampMax].
func (h *HardwareAcquirer) readDuty(line *gpiocdev.Line) (float64, error) {
	deadline := time.Now().Add(h.window)
	var lowTime time.Duration

	for time.Now().Before(deadline) {
		v, err := line.Value()
		if err != nil {
			return 0, fmt.Errorf("line value: %w", err)
		}
		if v == 0 {
			lowTime += dutyPollInterval
		}
		time.Sleep(dutyPollInterval)
	}

	duty := lowTime.Seconds() / h.window.Seconds() * 100
	return clamp(duty, 0, dutyClampMax), nil
}

// readDHT reads the DHT22 with bounded retries. A failed read after all
// attempts reports both samples as absent; the engine substitutes
// simulated values for that cycle.
func (h *HardwareAcquirer) readDHT() (temp, humidity Sample) {
	for attempt := 0; attempt < dhtAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(dhtRetryDelay)
		}
		t, rh, err := h.readDHTOnce()
		if err != nil {
			log.Printf("sensor: dht read attempt %d: %v", attempt+1, err)
			continue
		}
		return Sample{Value: t, OK: true}, Sample{Value: rh, OK: true}
	}
	return Sample{}, Sample{}
}

// readDHTOnce performs one DHT22 transaction: pull the line low to start,
// then decode 40 bits from the spacing of falling edges.
func (h *HardwareAcquirer) readDHTOnce() (temp, humidity float64, err error) {
	// Start signal: drive low, then release.
	out, err := h.chip.RequestLine(h.dhtPin, gpiocdev.AsOutput(0))
	if err != nil {
		return 0, 0, fmt.Errorf("request dht output: %w", err)
	}
	time.Sleep(dhtStartPulse)
	out.Close()

	edges := make(chan time.Duration, dhtBitCount+4)
	in, err := h.chip.RequestLine(h.dhtPin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			select {
			case edges <- evt.Timestamp:
			default:
			}
		}))
	if err != nil {
		return 0, 0, fmt.Errorf("request dht input: %w", err)
	}
	defer in.Close()

	// Collect falling-edge timestamps. The sensor's presence pulse
	// produces the first edge; each data bit produces one more.
	var stamps []time.Duration
	timeout := time.After(dhtReadTimeout)
collect:
	for len(stamps) < dhtBitCount+1 {
		select {
		case ts := <-edges:
			stamps = append(stamps, ts)
		case <-timeout:
			break collect
		}
	}
	if len(stamps) < dhtBitCount+1 {
		return 0, 0, fmt.Errorf("short read: %d edges", len(stamps))
	}

	// Decode: gap between consecutive falling edges encodes the bit.
	var data [5]byte
	for i := 0; i < dhtBitCount; i++ {
		gap := stamps[i+1] - stamps[i]
		data[i/8] <<= 1
		if gap > dhtOneThreshold {
			data[i/8] |= 1
		}
	}

	sum := data[0] + data[1] + data[2] + data[3]
	if sum != data[4] {
		return 0, 0, fmt.Errorf("checksum mismatch: %#x != %#x", sum, data[4])
	}

	humidity = float64(uint16(data[0])<<8|uint16(data[1])) / 10
	rawTemp := uint16(data[2])<<8 | uint16(data[3])
	temp = float64(rawTemp&0x7fff) / 10
	if rawTemp&0x8000 != 0 {
		temp = -temp
	}
	return temp, humidity, nil
}

// Close releases the GPIO lines and the chip.
func (h *HardwareAcquirer) Close() error {
	var errs []error

	if h.pm25Pin != nil {
		if err := h.pm25Pin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close PM2.5 pin: %w", err))
		}
	}
	if h.pm10Pin != nil {
		if err := h.pm10Pin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close PM10 pin: %w", err))
		}
	}
	if h.chip != nil {
		if err := h.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
