package calculator

import (
	"errors"
)

// CalculateEMA computes the exponential moving average series with smoothing factor 2/(span+1).
// The series is seeded with the first value, so every position is defined.
func CalculateEMA(values []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, errors.New("span must be positive")
	}
	return smooth(values, 2.0/float64(span+1)), nil
}

// smooth applies out[t] = alpha*v[t] + (1-alpha)*out[t-1] seeded by v[0].
// The update is written in increment form so a constant input stays exactly constant.
func smooth(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = out[i-1] + alpha*(values[i]-out[i-1])
	}
	return out
}

// Last returns the final element of a series, or NaN when it is empty.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return nan
	}
	return series[len(series)-1]
}
