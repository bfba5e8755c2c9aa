//go:build !linux

package sensor

import (
	"errors"
	"time"
)

// HardwareAcquirer is not available on non-Linux platforms.
type HardwareAcquirer struct{}

// NewHardwareAcquirer returns an error on non-Linux platforms.
func NewHardwareAcquirer(pinPM25, pinPM10, pinDHT int, window time.Duration) (*HardwareAcquirer, error) {
	return nil, errors.New("sensor: hardware not supported on this platform (requires Linux)")
}

// Acquire is not implemented on non-Linux platforms.
func (h *HardwareAcquirer) Acquire() (Frame, error) {
	return Frame{}, errors.New("sensor: hardware not supported")
}

// Close is not implemented on non-Linux platforms.
func (h *HardwareAcquirer) Close() error {
	return nil
}
