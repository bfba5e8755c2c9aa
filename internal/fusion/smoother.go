package fusion

import "github.com/nitk/air-monitor/internal/sensor"

// Smoother keeps a fixed-capacity rolling buffer per channel and exposes
// the arithmetic mean of the buffered values. Oldest values are evicted
// first once a channel reaches capacity.
type Smoother struct {
	size int
	bufs map[sensor.Channel][]float64
}

// NewSmoother creates a smoother holding up to size samples per channel.
func NewSmoother(size int) *Smoother {
	if size < 1 {
		size = 1
	}
	return &Smoother{
		size: size,
		bufs: make(map[sensor.Channel][]float64),
	}
}

// Push appends a value to the channel's buffer, evicting the oldest
// sample when the buffer is full.
func (s *Smoother) Push(ch sensor.Channel, value float64) {
	buf := append(s.bufs[ch], value)
	if len(buf) > s.size {
		buf = buf[1:]
	}
	s.bufs[ch] = buf
}

// Average returns the mean of the channel's buffered values. Callers
// must have pushed at least one value first.
func (s *Smoother) Average(ch sensor.Channel) float64 {
	buf := s.bufs[ch]
	var sum float64
	for _, v := range buf {
		sum += v
	}
	return sum / float64(len(buf))
}

// Len returns how many samples the channel currently buffers.
func (s *Smoother) Len(ch sensor.Channel) int {
	return len(s.bufs[ch])
}
