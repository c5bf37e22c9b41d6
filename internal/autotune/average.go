package autotune

import (
	"math"

	"github.com/mrcode/nightscout-autotune/internal/models"
)

// AverageProfileValue returns the time-weighted daily average of a
// piecewise-constant series. Each breakpoint holds until the next one, the
// last until midnight. An empty series yields 0.
func AverageProfileValue(values []models.ProfileValue) float64 {
	if len(values) == 1 && values[0].TimeAsSeconds == 0 {
		return values[0].Value
	}
	avg := 0.0
	for i, v := range values {
		end := models.SecondsPerDay
		if i < len(values)-1 {
			end = values[i+1].TimeAsSeconds
		}
		avg += v.Value * float64(end-v.TimeAsSeconds)
	}
	return avg / models.SecondsPerDay
}

// roundTo rounds x to the given number of decimal places
func roundTo(x float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(x*scale) / scale
}
