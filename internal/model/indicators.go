package model

import "github.com/guregu/null/v6"

// Crossover classifies the latest MACD histogram transition.
type Crossover string

const (
	CrossoverBullish Crossover = "bullish"
	CrossoverBearish Crossover = "bearish"
	CrossoverNeutral Crossover = "neutral"
)

// OHLCVRow is one charting row of the recent window.
type OHLCVRow struct {
	Date   string     `json:"date"`
	Open   null.Float `json:"open"`
	High   null.Float `json:"high"`
	Low    null.Float `json:"low"`
	Close  null.Float `json:"close"`
	Volume null.Int   `json:"volume"`
}

// IndicatorSnapshot holds the latest indicator values of one series.
type IndicatorSnapshot struct {
	LatestClose   float64    `json:"latest_close"`
	RSI           null.Float `json:"rsi"`
	MACD          null.Float `json:"macd"`
	MACDSignal    null.Float `json:"macd_signal"`
	MACDHist      null.Float `json:"macd_hist"`
	MACDCrossover Crossover  `json:"macd_crossover"`
	Above21       null.Bool  `json:"above_21"`
	Above44       null.Bool  `json:"above_44"`
	Above200      null.Bool  `json:"above_200"`
	Dist21        null.Float `json:"dist_21"`
	Dist44        null.Float `json:"dist_44"`
	Dist200       null.Float `json:"dist_200"`
	OHLCV         []OHLCVRow `json:"ohlcv"`
}

// ChangeSummary is the period-over-period change of one series.
type ChangeSummary struct {
	Date      string      `json:"date"`
	Close     float64     `json:"close"`
	PrevDate  null.String `json:"prev_date"`
	PrevClose null.Float  `json:"prev_close"`
	ChangePct null.Float  `json:"change_pct"`
}

// Selection is the optionally requested symbol of an analysis response.
type Selection struct {
	Symbol null.String        `json:"symbol"`
	Data   *IndicatorSnapshot `json:"data"`
}

// Analysis holds the indicator snapshots of a universe plus an optional selected symbol.
type Analysis struct {
	Symbols  map[string]*IndicatorSnapshot `json:"symbols"`
	Selected Selection                     `json:"selected"`
}
