package fusion

import "github.com/nitk/air-monitor/internal/sensor"

// MomentumFilter applies exponential smoothing per channel before the
// rolling buffer, suppressing abrupt jumps between cycles. The first
// value for a channel passes through unchanged.
type MomentumFilter struct {
	momentum float64
	prev     map[sensor.Channel]float64
}

// NewMomentumFilter creates a filter with the given momentum in [0, 1).
// Higher momentum means more weight on the previous value.
func NewMomentumFilter(momentum float64) *MomentumFilter {
	return &MomentumFilter{
		momentum: momentum,
		prev:     make(map[sensor.Channel]float64),
	}
}

// Apply blends the new value with the channel's persisted value:
// momentum×previous + (1−momentum)×new. Cold start returns the input.
func (f *MomentumFilter) Apply(ch sensor.Channel, value float64) float64 {
	prev, seen := f.prev[ch]
	if !seen {
		f.prev[ch] = value
		return value
	}
	smoothed := f.momentum*prev + (1-f.momentum)*value
	f.prev[ch] = smoothed
	return smoothed
}
