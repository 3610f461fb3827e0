package analysis

import (
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/model"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// dailySeries builds one row per calendar day starting at 2024-01-01.
func dailySeries(closes ...float64) model.PriceSeries {
	rows := make([]model.PriceRow, len(closes))
	for i, c := range closes {
		rows[i] = model.PriceRow{
			Date:   start.AddDate(0, 0, i),
			Open:   null.FloatFrom(c - 0.5),
			High:   null.FloatFrom(c + 1),
			Low:    null.FloatFrom(c - 1),
			Close:  null.FloatFrom(c),
			Volume: null.IntFrom(1000),
		}
	}
	return model.PriceSeries{Symbol: "TEST", Rows: rows}
}

func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func TestComputeIndicators_InsufficientData(t *testing.T) {
	assert.Nil(t, ComputeIndicators(dailySeries(1, 2, 3, 4, 5)))
	assert.Nil(t, ComputeIndicators(dailySeries(rising(9)...)))
	assert.Nil(t, ComputeIndicators(model.PriceSeries{}))
	assert.NotNil(t, ComputeIndicators(dailySeries(rising(10)...)))
}

func TestComputeIndicators_LatestCloseIsLastRow(t *testing.T) {
	for _, n := range []int{10, 37, 250} {
		closes := rising(n)
		snap := ComputeIndicators(dailySeries(closes...))
		require.NotNil(t, snap)
		assert.Equal(t, closes[n-1], snap.LatestClose)
	}
}

func TestComputeIndicators_ConstantSeries(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 50
	}
	snap := ComputeIndicators(dailySeries(closes...))
	require.NotNil(t, snap)

	assert.False(t, snap.RSI.Valid, "rsi is undefined without losses")
	assert.Equal(t, null.FloatFrom(0), snap.MACDHist)
	assert.Equal(t, model.CrossoverNeutral, snap.MACDCrossover)
	assert.Equal(t, null.BoolFrom(false), snap.Above21)
	assert.Equal(t, null.FloatFrom(0), snap.Dist21)
	assert.Equal(t, null.FloatFrom(0), snap.Dist200)
}

func TestComputeIndicators_MonotonicRiseHasNoRSI(t *testing.T) {
	snap := ComputeIndicators(dailySeries(rising(40)...))
	require.NotNil(t, snap)
	assert.False(t, snap.RSI.Valid)
	assert.True(t, snap.Above21.Bool)
	assert.True(t, snap.Above200.Bool)
	assert.Greater(t, snap.Dist21.Float64, 0.0)
}

func TestComputeIndicators_RSIInRange(t *testing.T) {
	closes := []float64{10, 12, 11, 13, 12, 14, 13, 15, 14, 13, 12, 15, 16, 14, 17, 15, 18}
	snap := ComputeIndicators(dailySeries(closes...))
	require.NotNil(t, snap)
	require.True(t, snap.RSI.Valid)
	assert.GreaterOrEqual(t, snap.RSI.Float64, 0.0)
	assert.LessOrEqual(t, snap.RSI.Float64, 100.0)
}

func TestComputeIndicators_BearishCrossoverAfterReversal(t *testing.T) {
	closes := rising(60)
	closes = append(closes, 120)
	snap := ComputeIndicators(dailySeries(closes...))
	require.NotNil(t, snap)
	assert.Equal(t, model.CrossoverBearish, snap.MACDCrossover)
	assert.True(t, snap.MACDHist.Float64 < 0)
}

func TestComputeIndicators_RecentWindow(t *testing.T) {
	series := dailySeries(rising(260)...)
	series.Rows[259].Volume = null.Int{}
	series.Rows[258].Open = null.Float{}

	snap := ComputeIndicators(series)
	require.NotNil(t, snap)
	require.Len(t, snap.OHLCV, 200)

	first, last := snap.OHLCV[0], snap.OHLCV[199]
	assert.Equal(t, start.AddDate(0, 0, 60).Format("2006-01-02"), first.Date)
	assert.Equal(t, start.AddDate(0, 0, 259).Format("2006-01-02"), last.Date)
	assert.Equal(t, 359.0, last.Close.Float64)
	assert.False(t, last.Volume.Valid)
	assert.False(t, snap.OHLCV[198].Open.Valid)
}

func TestComputeIndicators_DoesNotMutateSeries(t *testing.T) {
	series := dailySeries(rising(30)...)
	before := make([]model.PriceRow, len(series.Rows))
	copy(before, series.Rows)

	ComputeIndicators(series)
	assert.Equal(t, before, series.Rows)
}

func TestRecentWindow_SkipsUncoercibleRows(t *testing.T) {
	series := dailySeries(1, 2, 3)
	series.Rows[1].Volume = null.IntFrom(-1)
	series.Rows[2].Close = null.Float{}

	window := RecentWindow(series, 200)
	require.Len(t, window, 1)
	assert.Equal(t, "2024-01-01", window[0].Date)
}

func TestComputeChange_OneWeek(t *testing.T) {
	series := model.PriceSeries{Rows: []model.PriceRow{
		{Date: start, Close: null.FloatFrom(100)},
		{Date: start.AddDate(0, 0, 7), Close: null.FloatFrom(110)},
	}}
	sum := ComputeChange(series, model.Horizon1W)
	require.NotNil(t, sum)
	assert.Equal(t, "2024-01-08", sum.Date)
	assert.Equal(t, 110.0, sum.Close)
	assert.Equal(t, "2024-01-01", sum.PrevDate.String)
	assert.Equal(t, 100.0, sum.PrevClose.Float64)
	assert.InDelta(t, 10.0, sum.ChangePct.Float64, 1e-9)
}

func TestComputeChange_ExactMatchBeatsNeighbours(t *testing.T) {
	series := dailySeries(rising(30)...)
	sum := ComputeChange(series, model.Horizon1W)
	require.NotNil(t, sum)
	assert.Equal(t, start.AddDate(0, 0, 22).Format("2006-01-02"), sum.PrevDate.String)
	assert.Equal(t, 122.0, sum.PrevClose.Float64)
}

func TestComputeChange_TieResolvesToEarlierDate(t *testing.T) {
	// target = 2024-01-10 - 7d = 2024-01-03; rows at 01-02 and 01-04 are both one day away.
	series := model.PriceSeries{Rows: []model.PriceRow{
		{Date: start.AddDate(0, 0, 1), Close: null.FloatFrom(50)},
		{Date: start.AddDate(0, 0, 3), Close: null.FloatFrom(80)},
		{Date: start.AddDate(0, 0, 9), Close: null.FloatFrom(100)},
	}}
	sum := ComputeChange(series, model.Horizon1W)
	require.NotNil(t, sum)
	assert.Equal(t, "2024-01-02", sum.PrevDate.String)
	assert.InDelta(t, 100.0, sum.ChangePct.Float64, 1e-9)
}

func TestComputeChange_WeekendGap(t *testing.T) {
	// Friday 2024-01-05 and Monday 2024-01-08; 1d back from Monday lands on Sunday.
	series := model.PriceSeries{Rows: []model.PriceRow{
		{Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Close: null.FloatFrom(200)},
		{Date: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), Close: null.FloatFrom(190)},
	}}
	sum := ComputeChange(series, model.Horizon1D)
	require.NotNil(t, sum)
	assert.Equal(t, "2024-01-08", sum.PrevDate.String, "Monday is 1 day from Sunday, Friday is 2")
	assert.InDelta(t, 0.0, sum.ChangePct.Float64, 1e-9)
}

func TestComputeChange_UnknownHorizonDefaultsToOneDay(t *testing.T) {
	series := dailySeries(100, 110, 121)
	known := ComputeChange(series, model.Horizon1D)
	unknown := ComputeChange(series, model.Horizon("5y"))
	require.NotNil(t, unknown)
	assert.Equal(t, known, unknown)
	assert.InDelta(t, 10.0, unknown.ChangePct.Float64, 1e-9)
}

func TestComputeChange_MatchedRowWithoutClose(t *testing.T) {
	series := model.PriceSeries{Rows: []model.PriceRow{
		{Date: start},
		{Date: start.AddDate(0, 0, 7), Close: null.FloatFrom(110)},
	}}
	sum := ComputeChange(series, model.Horizon1W)
	require.NotNil(t, sum)
	assert.False(t, sum.PrevClose.Valid)
	assert.False(t, sum.ChangePct.Valid)
}

func TestComputeChange_ZeroPrevClose(t *testing.T) {
	series := dailySeries(0, 5)
	sum := ComputeChange(series, model.Horizon1D)
	require.NotNil(t, sum)
	assert.True(t, sum.PrevClose.Valid)
	assert.False(t, sum.ChangePct.Valid)
}

func TestComputeChange_Absent(t *testing.T) {
	assert.Nil(t, ComputeChange(model.PriceSeries{}, model.Horizon1D))
	noClose := model.PriceSeries{Rows: []model.PriceRow{{Date: start}}}
	assert.Nil(t, ComputeChange(noClose, model.Horizon1D))
}

func TestComputeChange_SingleRowMatchesItself(t *testing.T) {
	sum := ComputeChange(dailySeries(42), model.Horizon1Y)
	require.NotNil(t, sum)
	assert.Equal(t, 42.0, sum.PrevClose.Float64)
	assert.Equal(t, 0.0, sum.ChangePct.Float64)
}
