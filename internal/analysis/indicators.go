package analysis

import (
	"math"

	"github.com/guregu/null/v6"

	"MarketPulse/internal/calculator"
	"MarketPulse/internal/model"
	"MarketPulse/internal/normalize"
)

const (
	rsiPeriod    = 14
	macdFast     = 12
	macdSlow     = 26
	macdSignal   = 9
	recentWindow = 200
)

// trendSpans are the EMA spans reported as above/distance pairs.
var trendSpans = [3]int{21, 44, 200}

// ComputeIndicators computes the latest indicator values of a series.
// It returns nil when the series holds fewer usable rows than the default policy minimum.
// The series is read only.
func ComputeIndicators(series model.PriceSeries) *model.IndicatorSnapshot {
	return ComputeIndicatorsWith(series, normalize.DefaultPolicy)
}

// ComputeIndicatorsWith is ComputeIndicators with an explicit minimum-rows policy.
func ComputeIndicatorsWith(series model.PriceSeries, p normalize.Policy) *model.IndicatorSnapshot {
	closes := series.Closes()
	if len(closes) == 0 || !p.Sufficient(len(closes)) {
		return nil
	}
	latest := closes[len(closes)-1]

	snap := &model.IndicatorSnapshot{
		LatestClose:   latest,
		MACDCrossover: model.CrossoverNeutral,
	}

	if rsi, err := calculator.CalculateRSI(closes, rsiPeriod); err == nil {
		snap.RSI = calculator.Defined(calculator.Last(rsi))
	}

	if m, err := calculator.CalculateMACD(closes, macdFast, macdSlow, macdSignal); err == nil {
		snap.MACD = calculator.Defined(calculator.Last(m.Line))
		snap.MACDSignal = calculator.Defined(calculator.Last(m.Signal))
		snap.MACDHist = calculator.Defined(calculator.Last(m.Histogram))
		snap.MACDCrossover = calculator.ClassifyCrossover(m.Histogram)
	}

	above := [3]*null.Bool{&snap.Above21, &snap.Above44, &snap.Above200}
	dist := [3]*null.Float{&snap.Dist21, &snap.Dist44, &snap.Dist200}
	for i, span := range trendSpans {
		ema, err := calculator.CalculateEMA(closes, span)
		if err != nil {
			continue
		}
		last := calculator.Last(ema)
		if math.IsNaN(last) {
			continue
		}
		*above[i] = null.BoolFrom(latest > last)
		*dist[i] = calculator.PercentChange(last, latest)
	}

	snap.OHLCV = RecentWindow(series, recentWindow)
	return snap
}

// RecentWindow returns up to n of the most recent rows in charting shape, oldest first.
// Rows that do not coerce (no finite close, negative volume) are skipped.
func RecentWindow(series model.PriceSeries, n int) []model.OHLCVRow {
	rows := series.Rows
	if len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	out := make([]model.OHLCVRow, 0, len(rows))
	for _, r := range rows {
		if !r.Close.Valid || !finite(r.Close.Float64) {
			continue
		}
		if r.Volume.Valid && r.Volume.Int64 < 0 {
			continue
		}
		out = append(out, model.OHLCVRow{
			Date:   r.Date.Format(model.DateLayout),
			Open:   finiteOrNull(r.Open),
			High:   finiteOrNull(r.High),
			Low:    finiteOrNull(r.Low),
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	return out
}

func finiteOrNull(f null.Float) null.Float {
	if !f.Valid {
		return f
	}
	return calculator.Defined(f.Float64)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
