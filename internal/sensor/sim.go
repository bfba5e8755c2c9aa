package sensor

import (
	"math"
	"math/rand"
	"time"
)

// Base values for the Mangalore coastal region; the simulation oscillates
// around these with a daily pattern.
const (
	simBasePM25     = 18.0
	simBasePM10     = 42.0
	simBaseTemp     = 28.0
	simBaseHumidity = 65.0
)

// SimAcquirer synthesizes frames from the wall clock: a daily sinusoid,
// a slowly rotating location factor, and bounded uniform jitter. Output is
// reproducible in distribution but not in exact value. It never reports
// an absent sample and never returns an error.
type SimAcquirer struct {
	now  func() time.Time
	rand *rand.Rand
}

// NewSimAcquirer creates a simulated acquirer driven by time.Now.
func NewSimAcquirer() *SimAcquirer {
	return &SimAcquirer{
		now:  time.Now,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// newSimAcquirerAt creates a simulated acquirer with an injectable clock
// and seed, for tests.
func newSimAcquirerAt(now func() time.Time, seed int64) *SimAcquirer {
	return &SimAcquirer{
		now:  now,
		rand: rand.New(rand.NewSource(seed)),
	}
}

// Acquire synthesizes one frame. PM values are µg/m³ concentrations, so
// the frame is marked KindConcentration and skips duty calibration.
func (s *SimAcquirer) Acquire() (Frame, error) {
	t := s.now()
	secs := float64(t.Unix())

	// Daily pattern: lowest around midnight, peaking mid-afternoon.
	hourFactor := math.Sin(math.Mod(secs, 86400)/86400*2*math.Pi - math.Pi/2)

	// Location factor rotates every 5 minutes through 7 steps, modelling
	// surveying different spots around campus.
	locationSeed := int64(secs/300) % 7
	locationFactor := 0.8 + float64(locationSeed)*0.06

	pm25 := simBasePM25*locationFactor + 3*hourFactor + s.uniform(-2, 2)
	pm10 := simBasePM10*locationFactor + 5*hourFactor + s.uniform(-3, 3)
	temp := simBaseTemp + 4*hourFactor + s.uniform(-0.8, 0.8)
	humidity := simBaseHumidity - 8*hourFactor + s.uniform(-4, 4)

	// Realistic bounds for the region.
	pm25 = clamp(pm25, 12, 28)
	pm10 = clamp(pm10, math.Max(pm25*1.6, 30), 55)
	temp = clamp(temp, 18, 38)
	humidity = clamp(humidity, 35, 85)

	return Frame{
		PM25:        Sample{Value: pm25, OK: true},
		PM10:        Sample{Value: pm10, OK: true},
		Temperature: Sample{Value: temp, OK: true},
		Humidity:    Sample{Value: humidity, OK: true},
		Kind:        KindConcentration,
		AcquiredAt:  t,
	}, nil
}

// Close is a no-op for the simulated acquirer.
func (s *SimAcquirer) Close() error { return nil }

func (s *SimAcquirer) uniform(lo, hi float64) float64 {
	return lo + s.rand.Float64()*(hi-lo)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
