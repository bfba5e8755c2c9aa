// Package aqi converts particulate concentrations (µg/m³) into the US EPA
// Air Quality Index via piecewise-linear breakpoint interpolation.
// All functions are pure; the package holds no state.
package aqi

import "math"

// Category labels for the standard EPA AQI bands.
const (
	LevelGood          = "Good"
	LevelModerate      = "Moderate"
	LevelSensitive     = "Unhealthy for Sensitive Groups"
	LevelUnhealthy     = "Unhealthy"
	LevelVeryUnhealthy = "Very Unhealthy"
	LevelHazardous     = "Hazardous"
)

// breakpoint maps one concentration bracket to one AQI bracket.
type breakpoint struct {
	concLo, concHi float64
	aqiLo, aqiHi   float64
}

// EPA PM2.5 breakpoints (24-hour, µg/m³). The top bracket extends past
// 500.4; sub-indices are capped at 500.
var pm25Table = []breakpoint{
	{0, 12.0, 0, 50},
	{12.0, 35.4, 50, 100},
	{35.4, 55.4, 100, 150},
	{55.4, 150.4, 150, 200},
	{150.4, 250.4, 200, 300},
	{250.4, 500.4, 300, 500},
}

// EPA PM10 breakpoints (24-hour, µg/m³). Above 424 the table returns a
// flat 301 rather than continuing to 500; the concentrations that would
// land there do not occur on this rig, so the truncated table is kept.
var pm10Table = []breakpoint{
	{0, 54, 0, 50},
	{54, 154, 50, 100},
	{154, 254, 100, 150},
	{254, 354, 150, 200},
	{354, 424, 200, 300},
}

const pm10Overflow = 301

// PM25 returns the AQI sub-index for a PM2.5 concentration.
func PM25(conc float64) int {
	return interpolate(pm25Table, conc, 500)
}

// PM10 returns the AQI sub-index for a PM10 concentration.
func PM10(conc float64) int {
	if conc > pm10Table[len(pm10Table)-1].concHi {
		return pm10Overflow
	}
	return interpolate(pm10Table, conc, pm10Overflow)
}

// Combined returns the overall AQI for a PM2.5/PM10 pair: the maximum of
// the two sub-indices, per the EPA convention that the worst pollutant
// defines the index.
func Combined(pm25, pm10 float64) int {
	a25 := PM25(pm25)
	a10 := PM10(pm10)
	if a10 > a25 {
		return a10
	}
	return a25
}

// Level maps an AQI value to its EPA category label.
func Level(aqi int) string {
	switch {
	case aqi <= 50:
		return LevelGood
	case aqi <= 100:
		return LevelModerate
	case aqi <= 150:
		return LevelSensitive
	case aqi <= 200:
		return LevelUnhealthy
	case aqi <= 300:
		return LevelVeryUnhealthy
	default:
		return LevelHazardous
	}
}

// interpolate walks the breakpoint table and linearly maps conc within its
// bracket. Concentrations above the last bracket interpolate against the
// last bracket's slope, capped at max. Negative input clamps to zero.
func interpolate(table []breakpoint, conc float64, max int) int {
	if conc <= 0 {
		return 0
	}
	bp := table[len(table)-1]
	for _, b := range table {
		if conc <= b.concHi {
			bp = b
			break
		}
	}
	aqi := ((bp.aqiHi-bp.aqiLo)/(bp.concHi-bp.concLo))*(conc-bp.concLo) + bp.aqiLo
	n := int(math.Round(aqi))
	if n > max {
		return max
	}
	return n
}
