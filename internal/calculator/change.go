package calculator

import (
	"math"

	"github.com/guregu/null/v6"
)

// PercentChange returns (to-from)/from*100.
// The result is null when from is zero or either side is not finite.
func PercentChange(from, to float64) null.Float {
	if from == 0 || !finite(from) || !finite(to) {
		return null.Float{}
	}
	return null.FloatFrom((to - from) / from * 100.0)
}

// Defined wraps v as a nullable float, null when v is NaN or infinite.
func Defined(v float64) null.Float {
	if !finite(v) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
