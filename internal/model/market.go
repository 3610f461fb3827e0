package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the ISO calendar-date layout used on disk and on the wire.
const DateLayout = "2006-01-02"

// PriceRow represents a single trading day for one symbol.
type PriceRow struct {
	Date   time.Time
	Open   null.Float
	High   null.Float
	Low    null.Float
	Close  null.Float
	Volume null.Int
}

// PriceSeries holds the normalized daily history of one symbol, ascending by date.
type PriceSeries struct {
	Symbol string
	Rows   []PriceRow
}

// Len returns the number of rows in the series.
func (s PriceSeries) Len() int { return len(s.Rows) }

// Last returns the most recent row. ok is false for an empty series.
func (s PriceSeries) Last() (row PriceRow, ok bool) {
	if len(s.Rows) == 0 {
		return PriceRow{}, false
	}
	return s.Rows[len(s.Rows)-1], true
}

// Closes extracts the resolvable close prices in series order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, 0, len(s.Rows))
	for _, r := range s.Rows {
		if r.Close.Valid {
			closes = append(closes, r.Close.Float64)
		}
	}
	return closes
}

// Bar is a raw daily bar as delivered by an upstream market-data provider.
// Time is the session's calendar date at UTC midnight. Fields the provider left empty are absent.
type Bar struct {
	Time     time.Time
	Open     null.Float
	High     null.Float
	Low      null.Float
	Close    float64
	AdjClose null.Float
	Volume   null.Int
}
