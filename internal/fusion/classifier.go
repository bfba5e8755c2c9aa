package fusion

// Environment is the rig's placement state, used to select calibration
// caps. Indoor air is capped tighter than outdoor air.
type Environment string

const (
	EnvironmentIndoor  Environment = "indoor"
	EnvironmentOutdoor Environment = "outdoor"
)

// Classifier thresholds. The gap between them is the hysteresis band:
// a score must reach highThreshold to flip to Indoor and fall to
// lowThreshold to flip back, so borderline cycles never oscillate.
const (
	defaultHighThreshold = 5.0
	defaultLowThreshold  = 1.0
)

// Indicator weights. Each indicator votes +indicatorWeight when the
// observation looks indoor-like and -indicatorPenalty otherwise.
const (
	indicatorWeight  = 2.0
	indicatorPenalty = 1.0
)

// Indoor-typical bands for the two environmental indicators.
const (
	indoorTempLow      = 22.0
	indoorTempHigh     = 32.0
	indoorHumidityLow  = 40.0
	indoorHumidityHigh = 70.0
)

// Observation is one cycle's input to the classifier: the calibrated
// concentrations and environmental values before smoothing.
type Observation struct {
	PM25        float64
	PM10        float64
	Temperature float64
	Humidity    float64
}

// Classifier derives an indoor/outdoor label with hysteresis. The output
// depends on the current state, not just the current observation: scores
// between the thresholds leave the state unchanged.
type Classifier struct {
	state         Environment
	cal           Calibration
	highThreshold float64
	lowThreshold  float64
}

// NewClassifier creates a classifier in the Indoor state. The calibration
// supplies the particulate reference caps for the third indicator.
func NewClassifier(cal Calibration) *Classifier {
	return &Classifier{
		state:         EnvironmentIndoor,
		cal:           cal,
		highThreshold: defaultHighThreshold,
		lowThreshold:  defaultLowThreshold,
	}
}

// Classify scores one observation and advances the state machine,
// returning the (possibly unchanged) environment.
func (c *Classifier) Classify(obs Observation) Environment {
	return c.advance(c.score(obs))
}

// State returns the current environment without advancing the machine.
func (c *Classifier) State() Environment {
	return c.state
}

// score accumulates signed weights from three independent indicators:
// temperature band, humidity band, and particulate levels relative to the
// indoor caps.
func (c *Classifier) score(obs Observation) float64 {
	var score float64

	score += vote(obs.Temperature >= indoorTempLow && obs.Temperature <= indoorTempHigh)
	score += vote(obs.Humidity >= indoorHumidityLow && obs.Humidity <= indoorHumidityHigh)

	// Indoor air on this campus is markedly cleaner than outdoor air;
	// particulates under half the indoor caps vote indoor.
	cleanPM25 := obs.PM25 < c.cal.pm25.IndoorCap/2
	cleanPM10 := obs.PM10 < c.cal.pm10.IndoorCap/2
	score += vote(cleanPM25 && cleanPM10)

	return score
}

// advance applies the hysteresis transition rule for one composite score.
func (c *Classifier) advance(score float64) Environment {
	switch {
	case score >= c.highThreshold && c.state != EnvironmentIndoor:
		c.state = EnvironmentIndoor
	case score <= c.lowThreshold && c.state != EnvironmentOutdoor:
		c.state = EnvironmentOutdoor
	}
	return c.state
}

func vote(indoor bool) float64 {
	if indoor {
		return indicatorWeight
	}
	return -indicatorPenalty
}
