package model

// Horizon is a lookback period token.
type Horizon string

const (
	Horizon1D Horizon = "1d"
	Horizon1W Horizon = "1w"
	Horizon1M Horizon = "1m"
	Horizon3M Horizon = "3m"
	Horizon6M Horizon = "6m"
	Horizon1Y Horizon = "1y"
)

var horizonDays = map[Horizon]int{
	Horizon1D: 1,
	Horizon1W: 7,
	Horizon1M: 30,
	Horizon3M: 90,
	Horizon6M: 180,
	Horizon1Y: 365,
}

// Days returns the calendar-day length of the horizon. Unknown horizons count as one day.
func (h Horizon) Days() int {
	if d, ok := horizonDays[h]; ok {
		return d
	}
	return 1
}

// Valid reports whether h is one of the enumerated horizons.
func (h Horizon) Valid() bool {
	_, ok := horizonDays[h]
	return ok
}

// ParseHorizon validates a caller supplied token.
func ParseHorizon(s string) (Horizon, bool) {
	h := Horizon(s)
	return h, h.Valid()
}
