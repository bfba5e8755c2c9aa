package fusion

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/nitk/air-monitor/internal/config"
	"github.com/nitk/air-monitor/internal/sensor"
)

func newTestEngine(hardware, sim sensor.Acquirer) *Engine {
	cfg := config.Default()
	e := NewEngine(hardware, sim, cfg.Calibration, cfg.Fusion)
	e.now = func() time.Time {
		return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	}
	return e
}

func TestLatestBeforeFirstCycle(t *testing.T) {
	sim := sensor.NewFakeAcquirer([]sensor.Frame{sensor.ConstantFrame(12, 30, 25, 60)})
	e := newTestEngine(nil, sim)

	if _, ok := e.Latest(); ok {
		t.Error("Latest reported a reading before any cycle ran")
	}
	if e.Mode() != "simulation" {
		t.Errorf("mode: got %q, want simulation", e.Mode())
	}
}

func TestCycleBoundaryAQI(t *testing.T) {
	// A constant PM2.5 of exactly 12.0 must land on the Good/Moderate
	// boundary: AQI 50.
	sim := sensor.NewFakeAcquirer([]sensor.Frame{sensor.ConstantFrame(12, 30, 25, 60)})
	e := newTestEngine(nil, sim)

	r := e.Cycle()
	if r.PM25 != 12.0 {
		t.Errorf("pm25: got %v, want 12.0", r.PM25)
	}
	if r.AQI != 50 {
		t.Errorf("aqi: got %d, want 50", r.AQI)
	}
	if r.Humidity != 60 {
		t.Errorf("humidity: got %v, want whole 60", r.Humidity)
	}
}

func TestLatestIdempotent(t *testing.T) {
	sim := sensor.NewFakeAcquirer([]sensor.Frame{sensor.ConstantFrame(12, 30, 25, 60)})
	e := newTestEngine(nil, sim)
	e.Cycle()

	r1, ok1 := e.Latest()
	r2, ok2 := e.Latest()
	if !ok1 || !ok2 {
		t.Fatal("Latest not available after a cycle")
	}
	if r1 != r2 {
		t.Errorf("Latest not idempotent: %+v vs %+v", r1, r2)
	}
}

func TestCycleSmoothsAcrossCycles(t *testing.T) {
	// A step from 12 to 28 must not pass straight through: momentum and
	// the rolling buffer both damp it.
	sim := sensor.NewFakeAcquirer([]sensor.Frame{
		sensor.ConstantFrame(12, 30, 25, 60),
		sensor.ConstantFrame(28, 55, 25, 60),
	})
	e := newTestEngine(nil, sim)

	first := e.Cycle()
	second := e.Cycle()

	if second.PM25 <= first.PM25 {
		t.Errorf("pm25 did not rise after step: %v -> %v", first.PM25, second.PM25)
	}
	if second.PM25 >= 28 {
		t.Errorf("pm25 %v jumped straight to the new level", second.PM25)
	}

	// momentum 0.8: filtered = 0.8×12 + 0.2×28 = 15.2; buffer mean of
	// [12, 15.2] = 13.6.
	if second.PM25 != 13.6 {
		t.Errorf("pm25 after one step: got %v, want 13.6", second.PM25)
	}
}

func TestCycleHardwareFallback(t *testing.T) {
	hw := sensor.NewFakeAcquirer(nil)
	hw.AcquireError = errors.New("bus fault")
	sim := sensor.NewFakeAcquirer([]sensor.Frame{sensor.ConstantFrame(14, 32, 25, 60)})
	e := newTestEngine(hw, sim)

	r := e.Cycle()
	if r.PM25 != 14.0 {
		t.Errorf("fallback pm25: got %v, want simulated 14.0", r.PM25)
	}
	if e.Mode() != "hardware" {
		t.Errorf("mode: got %q, want hardware", e.Mode())
	}
	if _, ok := e.Latest(); !ok {
		t.Error("failed hardware cycle must still produce a reading")
	}
}

func TestCycleDutyConversion(t *testing.T) {
	// Hardware frames carry duty percentages; the engine must calibrate
	// them. Duty 10% → pm25 10×1.0+15 = 25, pm10 10×1.2+35 = 47.
	hw := sensor.NewFakeAcquirer([]sensor.Frame{{
		PM25:        sensor.Sample{Value: 10, OK: true},
		PM10:        sensor.Sample{Value: 10, OK: true},
		Temperature: sensor.Sample{Value: 25, OK: true},
		Humidity:    sensor.Sample{Value: 60, OK: true},
		Kind:        sensor.KindDuty,
	}})
	sim := sensor.NewFakeAcquirer([]sensor.Frame{sensor.ConstantFrame(14, 32, 25, 60)})
	e := newTestEngine(hw, sim)

	r := e.Cycle()
	if r.PM25 != 25.0 {
		t.Errorf("pm25 from duty: got %v, want 25.0", r.PM25)
	}
	if r.PM10 != 47.0 {
		t.Errorf("pm10 from duty: got %v, want 47.0", r.PM10)
	}
}

func TestCycleSubstitutesAbsentChannels(t *testing.T) {
	// DHT failed: temperature and humidity absent. The simulated frame
	// fills the gap; particulates stay from hardware.
	hw := sensor.NewFakeAcquirer([]sensor.Frame{{
		PM25: sensor.Sample{Value: 16, OK: true},
		PM10: sensor.Sample{Value: 36, OK: true},
		Kind: sensor.KindConcentration,
	}})
	sim := sensor.NewFakeAcquirer([]sensor.Frame{sensor.ConstantFrame(99, 199, 31, 72)})
	e := newTestEngine(hw, sim)

	r := e.Cycle()
	if r.PM25 != 16.0 {
		t.Errorf("pm25: got %v, want hardware 16.0", r.PM25)
	}
	if r.Temperature != 31.0 {
		t.Errorf("temperature: got %v, want substituted 31.0", r.Temperature)
	}
	if r.Humidity != 72.0 {
		t.Errorf("humidity: got %v, want substituted 72.0", r.Humidity)
	}
}

func TestCycleStateProgression(t *testing.T) {
	hw := sensor.NewFakeAcquirer([]sensor.Frame{sensor.ConstantFrame(12, 30, 25, 60)})
	sim := sensor.NewFakeAcquirer([]sensor.Frame{sensor.ConstantFrame(14, 32, 25, 60)})
	e := newTestEngine(hw, sim)

	if e.State() != StateIdle {
		t.Errorf("state before first cycle: got %q, want %q", e.State(), StateIdle)
	}

	e.Cycle()
	if e.State() != StateReady {
		t.Errorf("state after clean cycle: got %q, want %q", e.State(), StateReady)
	}

	// A hardware fault leaves the cycle observable as failed, while the
	// reading itself still comes from the simulated fallback.
	hw.AcquireError = errors.New("bus fault")
	e.Cycle()
	if e.State() != StateFailed {
		t.Errorf("state after fallback cycle: got %q, want %q", e.State(), StateFailed)
	}
	if _, ok := e.Latest(); !ok {
		t.Error("failed cycle must still publish a reading")
	}

	// Recovery on the next clean cycle.
	hw.AcquireError = nil
	e.Cycle()
	if e.State() != StateReady {
		t.Errorf("state after recovery: got %q, want %q", e.State(), StateReady)
	}
}

// flipAcquirer alternates indoor-like and outdoor-like frames so every
// cycle moves the classifier.
type flipAcquirer struct {
	n int
}

func (a *flipAcquirer) Acquire() (sensor.Frame, error) {
	a.n++
	if a.n%2 == 0 {
		return sensor.ConstantFrame(140, 280, 36, 85), nil
	}
	return sensor.ConstantFrame(10, 25, 27, 60), nil
}

func (a *flipAcquirer) Close() error { return nil }

func TestSnapshotConcurrentWithCycle(t *testing.T) {
	// Run under the race detector: readers hit the handler-facing
	// surface while the run loop flips the environment every cycle.
	e := newTestEngine(nil, &flipAcquirer{})

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				env := e.Environment()
				if env != EnvironmentIndoor && env != EnvironmentOutdoor {
					t.Errorf("unexpected environment %q", env)
					return
				}
				e.State()
				e.Latest()
			}
		}
	}()

	for i := 0; i < 500; i++ {
		e.Cycle()
	}
	close(stop)
	<-done
}

func TestCycleRatioInvariantInOutput(t *testing.T) {
	// A fused reading never reports pm10 under minRatio×pm25, even when
	// the raw frame does.
	sim := sensor.NewFakeAcquirer([]sensor.Frame{sensor.ConstantFrame(20, 10, 25, 60)})
	e := newTestEngine(nil, sim)

	r := e.Cycle()
	if r.PM10 < r.PM25*1.5-1e-9 {
		t.Errorf("output pair (%v, %v) violates ratio floor", r.PM25, r.PM10)
	}
}

func TestSummarize(t *testing.T) {
	sim := sensor.NewFakeAcquirer([]sensor.Frame{sensor.ConstantFrame(12, 30, 25, 60)})
	e := newTestEngine(nil, sim)

	points := []Point{
		{PM25: 10, PM10: 20, Temperature: 25, Humidity: 60},
		{PM25: 20, PM10: 40, Temperature: 27, Humidity: 64},
	}
	r := e.Summarize(points)

	if r.PM25 != 15.0 {
		t.Errorf("avg pm25: got %v, want 15.0", r.PM25)
	}
	if r.PM10 != 30.0 {
		t.Errorf("avg pm10: got %v, want 30.0", r.PM10)
	}
	if r.Temperature != 26.0 {
		t.Errorf("avg temperature: got %v, want 26.0", r.Temperature)
	}
	if r.Humidity != 62.0 {
		t.Errorf("avg humidity: got %v, want 62.0", r.Humidity)
	}
	// AQI computed on the averages: max(PM25(15)=56, PM10(30)=28).
	if r.AQI != 56 {
		t.Errorf("aqi of averages: got %d, want 56", r.AQI)
	}
}

func TestCycleSubstitutedParticulateIsNotDutyConverted(t *testing.T) {
	// A duty frame missing its PM2.5 sample borrows the simulated value,
	// which is already a concentration: it must not go through the duty
	// calibration again. The present PM10 duty still converts.
	hw := sensor.NewFakeAcquirer([]sensor.Frame{{
		PM10:        sensor.Sample{Value: 10, OK: true},
		Temperature: sensor.Sample{Value: 25, OK: true},
		Humidity:    sensor.Sample{Value: 60, OK: true},
		Kind:        sensor.KindDuty,
	}})
	sim := sensor.NewFakeAcquirer([]sensor.Frame{sensor.ConstantFrame(20, 40, 25, 60)})
	e := newTestEngine(hw, sim)

	r := e.Cycle()
	if r.PM25 != 20.0 {
		t.Errorf("substituted pm25: got %v, want concentration 20.0", r.PM25)
	}
	if r.PM10 != 47.0 {
		t.Errorf("pm10 from duty: got %v, want 47.0", r.PM10)
	}
}

func TestSummarizeNoPoints(t *testing.T) {
	sim := sensor.NewFakeAcquirer([]sensor.Frame{sensor.ConstantFrame(12, 30, 25, 60)})
	e := newTestEngine(nil, sim)

	// Before any cycle there is nothing to fall back on; the summary is
	// an empty reading, never NaN.
	r := e.Summarize(nil)
	if math.IsNaN(r.PM25) || r.AQI != 0 {
		t.Errorf("empty summary before cycles: got %+v, want zero reading", r)
	}

	latest := e.Cycle()
	r = e.Summarize(nil)
	if r != latest {
		t.Errorf("empty summary: got %+v, want latest reading %+v", r, latest)
	}
}

func TestSummarizeClampsOutliers(t *testing.T) {
	sim := sensor.NewFakeAcquirer([]sensor.Frame{sensor.ConstantFrame(12, 30, 25, 60)})
	e := newTestEngine(nil, sim)

	// A wildly out-of-range point is bounded by the same hard caps used
	// for live acquisition before averaging.
	points := []Point{
		{PM25: 99999, PM10: 99999, Temperature: 25, Humidity: 60},
		{PM25: 0, PM10: 0, Temperature: 25, Humidity: 60},
	}
	r := e.Summarize(points)
	if r.PM25 > 250.0 {
		t.Errorf("clamped avg pm25: got %v, want <= 250", r.PM25)
	}
}
