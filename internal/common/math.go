package common

import "math"

// Round2 rounds a value to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Clamp01 limits a value to the [0,1] interval.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
