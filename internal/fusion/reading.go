package fusion

import (
	"math"
	"time"
)

// Reading is one fused output record: smoothed, bounded concentrations
// with the derived AQI. Concentrations and temperature carry one decimal
// place; humidity is a whole percentage. That is the contract downstream
// consumers (API, store, MQTT) rely on.
type Reading struct {
	PM25        float64
	PM10        float64
	Temperature float64
	Humidity    float64
	AQI         int
	Timestamp   time.Time
}

// Point is one raw collection sample submitted alongside a location, as
// captured by the surveying UI during a collection session.
type Point struct {
	PM25        float64
	PM10        float64
	Temperature float64
	Humidity    float64
	Timestamp   float64 // unix seconds
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round0(v float64) float64 {
	return math.Round(v)
}
