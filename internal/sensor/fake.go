package sensor

import "errors"

// FakeAcquirer is a test double that returns scripted frames.
type FakeAcquirer struct {
	// Frames contains scripted frames to return. Each call to Acquire
	// consumes the next frame; once exhausted, the last frame is
	// returned repeatedly.
	Frames []Frame

	// index tracks current position in Frames
	index int

	// Closed tracks if Close was called
	Closed bool

	// AcquireError, if set, will be returned by Acquire()
	AcquireError error
}

// NewFakeAcquirer creates a FakeAcquirer with the given frames.
func NewFakeAcquirer(frames []Frame) *FakeAcquirer {
	return &FakeAcquirer{Frames: frames}
}

// Acquire returns the next scripted frame.
func (f *FakeAcquirer) Acquire() (Frame, error) {
	if f.AcquireError != nil {
		return Frame{}, f.AcquireError
	}

	if len(f.Frames) == 0 {
		return Frame{}, errors.New("no frames configured")
	}

	frame := f.Frames[f.index]
	if f.index < len(f.Frames)-1 {
		f.index++
	}

	return frame, nil
}

// Close marks the acquirer as closed.
func (f *FakeAcquirer) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the acquirer to the beginning of its frames.
func (f *FakeAcquirer) Reset() {
	f.index = 0
	f.Closed = false
}

// ConstantFrame builds a concentration frame where every channel reads OK,
// convenient for scripting fakes.
func ConstantFrame(pm25, pm10, temp, humidity float64) Frame {
	return Frame{
		PM25:        Sample{Value: pm25, OK: true},
		PM10:        Sample{Value: pm10, OK: true},
		Temperature: Sample{Value: temp, OK: true},
		Humidity:    Sample{Value: humidity, OK: true},
		Kind:        KindConcentration,
	}
}
