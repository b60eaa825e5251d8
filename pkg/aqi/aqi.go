// Package aqi converts pollutant concentrations into the standardized
// 0-500 US EPA Air Quality Index using piecewise-linear breakpoint tables.
package aqi

import "math"

// Pollutant identifies which breakpoint table to interpolate against.
type Pollutant string

const (
	PM25 Pollutant = "pm25" // µg/m³, 24h average
	PM10 Pollutant = "pm10" // µg/m³, 24h average
	O3   Pollutant = "o3"   // ppb
	CO   Pollutant = "co"   // ppm, 8h average
	NO2  Pollutant = "no2"  // ppb, 1h average
)

// breakpoint maps a concentration range onto an index range.
type breakpoint struct {
	cLow, cHigh float64
	iLow, iHigh int
}

// EPA breakpoint tables. Rows must be ordered by ascending concentration and
// non-degenerate (cHigh > cLow), which the interpolation relies on.
var breakpoints = map[Pollutant][]breakpoint{
	PM25: {
		{0.0, 12.0, 0, 50},
		{12.1, 35.4, 51, 100},
		{35.5, 55.4, 101, 150},
		{55.5, 150.4, 151, 200},
		{150.5, 250.4, 201, 300},
		{250.5, 350.4, 301, 400},
		{350.5, 500.4, 401, 500},
	},
	PM10: {
		{0, 54, 0, 50},
		{55, 154, 51, 100},
		{155, 254, 101, 150},
		{255, 354, 151, 200},
		{355, 424, 201, 300},
		{425, 504, 301, 400},
		{505, 604, 401, 500},
	},
	O3: {
		{0, 54, 0, 50},
		{55, 70, 51, 100},
		{71, 85, 101, 150},
		{86, 105, 151, 200},
		{106, 200, 201, 300},
		{201, 404, 301, 400},
		{405, 604, 401, 500},
	},
	CO: {
		{0.0, 4.4, 0, 50},
		{4.5, 9.4, 51, 100},
		{9.5, 12.4, 101, 150},
		{12.5, 15.4, 151, 200},
		{15.5, 30.4, 201, 300},
		{30.5, 40.4, 301, 400},
		{40.5, 50.4, 401, 500},
	},
	NO2: {
		{0, 53, 0, 50},
		{54, 100, 51, 100},
		{101, 360, 101, 150},
		{361, 649, 151, 200},
		{650, 1249, 201, 300},
		{1250, 1649, 301, 400},
		{1650, 2049, 401, 500},
	},
}

// FromConcentration maps a pollutant concentration to an AQI in [0, 500].
// Concentrations below the lowest breakpoint clamp to 0, above the highest
// clamp to 500. Unknown pollutants and non-finite inputs return 0.
func FromConcentration(concentration float64, pollutant Pollutant) int {
	rows, ok := breakpoints[pollutant]
	if !ok || math.IsNaN(concentration) {
		return 0
	}
	if concentration <= rows[0].cLow {
		return 0
	}
	last := rows[len(rows)-1]
	if concentration >= last.cHigh {
		return 500
	}

	// Pick the first row whose upper bound covers the concentration. Values
	// that fall in the gap between two rows (e.g. 12.05 for PM2.5) land on
	// the next row and interpolate slightly below its iLow, which rounding
	// keeps monotonic.
	for _, bp := range rows {
		if concentration <= bp.cHigh {
			ratio := float64(bp.iHigh-bp.iLow) / (bp.cHigh - bp.cLow)
			idx := int(math.Round(ratio*(concentration-bp.cLow) + float64(bp.iLow)))
			if idx < 0 {
				idx = 0
			}
			if idx > 500 {
				idx = 500
			}
			return idx
		}
	}
	return 500
}

// PM25FromIAQ derives a rough PM2.5-equivalent (µg/m³) from an MQ135 IAQ
// proxy score. This is an uncalibrated empirical shortcut, not a physical
// conversion: it exists only as the last-resort input to the PM2.5 table when
// a reading carries neither a direct AQI nor any PM2.5 concentration. Callers
// must record the estimate provenance so consumers can tell it apart from
// measured values.
func PM25FromIAQ(iaq float64) float64 {
	return math.Max(0, (iaq-50)*0.5)
}
