package fusion

import "github.com/nitk/air-monitor/internal/config"

// Calibration converts raw duty-cycle readings into bounded, physically
// consistent concentrations. It is immutable after construction; the same
// instance validates live cycles and submitted collection points.
type Calibration struct {
	pm25 config.ChannelCalibration
	pm10 config.ChannelCalibration

	minRatio float64 // PM10 >= minRatio × PM2.5
	maxRatio float64 // PM10 <= maxRatio × PM2.5

	noiseFloorDuty    float64
	humidityThreshold float64
	humidityFactor    float64
}

// NewCalibration builds a Calibration from the configuration surface.
func NewCalibration(cfg config.CalibrationConfig) Calibration {
	return Calibration{
		pm25:              cfg.PM25,
		pm10:              cfg.PM10,
		minRatio:          cfg.MinRatio,
		maxRatio:          cfg.MaxRatio,
		noiseFloorDuty:    cfg.NoiseFloorDuty,
		humidityThreshold: cfg.HumidityThreshold,
		humidityFactor:    cfg.HumidityFactor,
	}
}

// MinRatio returns the enforced PM10/PM2.5 floor ratio.
func (c Calibration) MinRatio() float64 { return c.minRatio }

// FromDuty converts a duty-cycle percentage into an instantaneous
// concentration: noise floor, then multiplier and baseline offset.
// Duty at or below the noise floor reads as zero particulate.
func (c Calibration) FromDuty(ch config.ChannelCalibration, duty float64) float64 {
	if duty <= c.noiseFloorDuty {
		return 0
	}
	return duty*ch.Multiplier + ch.Baseline
}

// FromDutyPair converts both particulate duty percentages at once.
func (c Calibration) FromDutyPair(pm25Duty, pm10Duty float64) (pm25, pm10 float64) {
	return c.FromDuty(c.pm25, pm25Duty), c.FromDuty(c.pm10, pm10Duty)
}

// Apply bounds an instantaneous concentration pair: hard safety caps,
// PM10/PM2.5 ratio enforcement, humidity compensation, then the cap set
// selected by the environment state. The ratio floor is re-enforced after
// the environment caps so the output invariant pm10 >= minRatio×pm25
// holds even when a cap lowered PM10.
func (c Calibration) Apply(pm25, pm10, humidity float64, env Environment) (float64, float64) {
	pm25 = clampTop(pm25, c.pm25.HardCap)
	pm10 = clampTop(pm10, c.pm10.HardCap)

	pm25, pm10 = c.enforceRatio(pm25, pm10)

	// Above the humidity threshold hygroscopic growth inflates the
	// optical reading; scale both channels by the same factor so the
	// ratio survives.
	if humidity > c.humidityThreshold {
		pm25 *= c.humidityFactor
		pm10 *= c.humidityFactor
	}

	pm25 = clampTop(pm25, c.capFor(c.pm25, env))
	pm10 = clampTop(pm10, c.capFor(c.pm10, env))

	// A cap may have pushed PM10 under the floor; lower PM2.5 to match
	// rather than raising PM10 past its cap.
	if pm25 > 0 && pm10 < pm25*c.minRatio {
		pm25 = pm10 / c.minRatio
	}

	return pm25, pm10
}

// enforceRatio pins PM10 inside [minRatio, maxRatio]×PM2.5. Coarse mass
// includes fine mass, so PM10 below the floor is a sensor artifact; far
// above the ceiling is equally implausible for ambient air.
func (c Calibration) enforceRatio(pm25, pm10 float64) (float64, float64) {
	if pm25 <= 0 {
		return pm25, pm10
	}
	if pm10 < pm25*c.minRatio {
		pm10 = pm25 * c.minRatio
	}
	if pm10 > pm25*c.maxRatio {
		pm10 = pm25 * c.maxRatio
	}
	return pm25, pm10
}

func (c Calibration) capFor(ch config.ChannelCalibration, env Environment) float64 {
	if env == EnvironmentIndoor {
		return ch.IndoorCap
	}
	return ch.OutdoorCap
}

// clampConcentrations bounds a submitted collection point with the same
// hard caps used for live acquisition. The ratio band applies too; since
// both channels are already capped, the floor lowers PM2.5 rather than
// raising PM10 past its cap.
func (c Calibration) clampConcentrations(pm25, pm10 float64) (float64, float64) {
	pm25 = clamp(pm25, 0, c.pm25.HardCap)
	pm10 = clamp(pm10, 0, c.pm10.HardCap)
	if pm25 > 0 {
		if pm10 > pm25*c.maxRatio {
			pm10 = pm25 * c.maxRatio
		}
		if pm10 < pm25*c.minRatio {
			pm25 = pm10 / c.minRatio
		}
	}
	return pm25, pm10
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

func clampTop(v, hi float64) float64 {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
