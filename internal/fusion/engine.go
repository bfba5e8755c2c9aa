// Package fusion turns noisy, possibly-missing raw sensor samples into
// stable fused readings: calibration and ratio enforcement, indoor/outdoor
// classification with hysteresis, exponential momentum smoothing, rolling
// averages, and EPA AQI derivation.
package fusion

import (
	"log"
	"time"

	"github.com/nitk/air-monitor/internal/aqi"
	"github.com/nitk/air-monitor/internal/config"
	"github.com/nitk/air-monitor/internal/sensor"
)

// CycleState names the engine's position within one acquisition cycle.
// Between cycles the state rests at StateReady, or StateFailed when the
// cycle fell back to simulated samples; StateIdle only before the first.
type CycleState string

const (
	StateIdle        CycleState = "idle"
	StateAcquiring   CycleState = "acquiring"
	StateCalibrating CycleState = "calibrating"
	StateSmoothing   CycleState = "smoothing"
	StateReady       CycleState = "ready"
	StateFailed      CycleState = "failed"
)

// Engine runs the fusion pipeline. It exclusively owns the rolling
// buffers, the momentum accumulator, and the classifier for the process
// lifetime; the only shared surface is the snapshot behind the mutex,
// which carries the latest reading, the environment, and the cycle state
// for the API handlers.
type Engine struct {
	hardware sensor.Acquirer // nil when running simulation-only
	sim      sensor.Acquirer

	cal        Calibration
	classifier *Classifier
	momentum   *MomentumFilter
	smoother   *Smoother

	now func() time.Time

	snap snapshot
}

// NewEngine wires the pipeline. hardware may be nil; the engine then runs
// purely on the simulated acquirer. The acquisition strategy is fixed at
// construction — the capability probe happens in the caller.
func NewEngine(hardware sensor.Acquirer, sim sensor.Acquirer, cal config.CalibrationConfig, fus config.FusionConfig) *Engine {
	c := NewCalibration(cal)
	e := &Engine{
		hardware:   hardware,
		sim:        sim,
		cal:        c,
		classifier: NewClassifier(c),
		momentum:   NewMomentumFilter(fus.Momentum),
		smoother:   NewSmoother(fus.BufferSize),
		now:        time.Now,
	}
	e.snap.env = EnvironmentIndoor
	e.snap.state = StateIdle
	return e
}

// Mode reports the acquisition strategy selected at construction.
func (e *Engine) Mode() string {
	if e.hardware != nil {
		return "hardware"
	}
	return "simulation"
}

// Environment returns the environment published by the last cycle. The
// classifier itself is owned by the run loop; handlers read only the
// snapshot.
func (e *Engine) Environment() Environment {
	return e.snap.environment()
}

// State reports the cycle state machine's current position.
func (e *Engine) State() CycleState {
	return e.snap.cycleState()
}

// Latest returns a copy of the most recent fused reading. ok is false
// until the first cycle completes. The critical section only copies the
// record; no computation happens under the lock.
func (e *Engine) Latest() (Reading, bool) {
	return e.snap.get()
}

// Cycle runs one full acquisition cycle and returns the fused reading.
// A cycle never fails outright: hardware faults fall back to simulated
// samples for that cycle, leave the state at StateFailed, and the loop
// carries on.
func (e *Engine) Cycle() Reading {
	e.snap.setState(StateAcquiring)
	frame, degraded := e.acquire()

	e.snap.setState(StateCalibrating)
	pm25, pm10, temp, humidity := e.calibrate(frame)

	// Classify on the instantaneous calibrated values, then apply the
	// caps the state selects.
	env := e.classifier.Classify(Observation{
		PM25:        pm25,
		PM10:        pm10,
		Temperature: temp,
		Humidity:    humidity,
	})
	pm25, pm10 = e.cal.Apply(pm25, pm10, humidity, env)

	e.snap.setState(StateSmoothing)
	pm25 = e.smooth(sensor.ChannelPM25, pm25)
	pm10 = e.smooth(sensor.ChannelPM10, pm10)
	temp = e.smooth(sensor.ChannelTemperature, temp)
	humidity = e.smooth(sensor.ChannelHumidity, humidity)

	// Smoothing is linear, so the ratio floor survives averaging as long
	// as every pushed pair satisfied it; re-check anyway to keep the
	// output invariant unconditional.
	if pm25 > 0 && pm10 < pm25*e.cal.minRatio {
		pm10 = pm25 * e.cal.minRatio
	}

	ts := frame.AcquiredAt
	if ts.IsZero() {
		ts = e.now()
	}
	reading := Reading{
		PM25:        round1(pm25),
		PM10:        round1(pm10),
		Temperature: round1(temp),
		Humidity:    round0(humidity),
		Timestamp:   ts,
	}
	reading.AQI = aqi.Combined(reading.PM25, reading.PM10)

	final := StateReady
	if degraded {
		final = StateFailed
	}
	e.snap.complete(reading, env, final)
	return reading
}

// acquire reads one frame, preferring hardware and falling back to the
// simulated acquirer on any hardware fault. degraded reports that the
// hardware path failed this cycle.
func (e *Engine) acquire() (frame sensor.Frame, degraded bool) {
	if e.hardware != nil {
		frame, err := e.hardware.Acquire()
		if err == nil {
			return frame, false
		}
		degraded = true
		log.Printf("fusion: hardware acquisition failed, substituting simulation: %v", err)
	}

	frame, err := e.sim.Acquire()
	if err != nil {
		// The simulated acquirer never errors; guard anyway so a cycle
		// can't emit garbage.
		log.Printf("fusion: simulated acquisition failed: %v", err)
		return sensor.Frame{Kind: sensor.KindConcentration, AcquiredAt: e.now()}, true
	}
	return frame, degraded
}

// calibrate converts a frame into instantaneous concentrations and
// environmental values, substituting simulated values for any absent
// channel. Each particulate sample converts according to the kind of the
// frame it came from: a substituted simulated sample is already a
// concentration and must not pass through the duty calibration.
func (e *Engine) calibrate(frame sensor.Frame) (pm25, pm10, temp, humidity float64) {
	sub := e.substitutes(frame)

	pm25 = e.particulate(e.cal.pm25, frame.PM25, frame.Kind, sub.PM25, sub.Kind)
	pm10 = e.particulate(e.cal.pm10, frame.PM10, frame.Kind, sub.PM10, sub.Kind)
	temp = sampleOr(frame.Temperature, sub.Temperature.Value)
	humidity = sampleOr(frame.Humidity, sub.Humidity.Value)
	return pm25, pm10, temp, humidity
}

// particulate resolves one PM channel to a concentration, preferring the
// frame's own sample over the substitute's.
func (e *Engine) particulate(ch config.ChannelCalibration, s sensor.Sample, kind sensor.Kind, sub sensor.Sample, subKind sensor.Kind) float64 {
	if !s.OK {
		s, kind = sub, subKind
	}
	if kind == sensor.KindDuty {
		return e.cal.FromDuty(ch, s.Value)
	}
	return s.Value
}

// substitutes lazily produces a simulated frame when any channel in the
// real frame is absent.
func (e *Engine) substitutes(frame sensor.Frame) sensor.Frame {
	if frame.PM25.OK && frame.PM10.OK && frame.Temperature.OK && frame.Humidity.OK {
		return frame
	}
	sub, err := e.sim.Acquire()
	if err != nil {
		return frame
	}
	return sub
}

func (e *Engine) smooth(ch sensor.Channel, v float64) float64 {
	e.smoother.Push(ch, e.momentum.Apply(ch, v))
	return e.smoother.Average(ch)
}

func sampleOr(s sensor.Sample, fallback float64) float64 {
	if s.OK {
		return s.Value
	}
	return fallback
}

// Summarize averages submitted collection points field by field, bounds
// them with the live calibration, and computes the AQI on the averages —
// never an average of per-point AQIs. With no points there is nothing to
// average; the latest fused reading stands in.
func (e *Engine) Summarize(points []Point) Reading {
	if len(points) == 0 {
		if r, ok := e.snap.get(); ok {
			return r
		}
		return Reading{Timestamp: e.now()}
	}

	var pm25, pm10, temp, humidity float64
	for _, p := range points {
		p25, p10 := e.cal.clampConcentrations(p.PM25, p.PM10)
		pm25 += p25
		pm10 += p10
		temp += p.Temperature
		humidity += p.Humidity
	}
	n := float64(len(points))
	reading := Reading{
		PM25:        round1(pm25 / n),
		PM10:        round1(pm10 / n),
		Temperature: round1(temp / n),
		Humidity:    round0(humidity / n),
		Timestamp:   e.now(),
	}
	reading.AQI = aqi.Combined(reading.PM25, reading.PM10)
	return reading
}
