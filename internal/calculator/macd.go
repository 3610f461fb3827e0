package calculator

import (
	"fmt"

	"MarketPulse/internal/model"
)

// MACD holds the three MACD series, aligned with the input closes.
type MACD struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// CalculateMACD computes line = EMA(fast) - EMA(slow), signal = EMA(line, signal) and their difference.
func CalculateMACD(closes []float64, fast, slow, signal int) (*MACD, error) {
	fastEMA, err := CalculateEMA(closes, fast)
	if err != nil {
		return nil, fmt.Errorf("fast ema: %w", err)
	}
	slowEMA, err := CalculateEMA(closes, slow)
	if err != nil {
		return nil, fmt.Errorf("slow ema: %w", err)
	}

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	sig, err := CalculateEMA(line, signal)
	if err != nil {
		return nil, fmt.Errorf("signal ema: %w", err)
	}
	hist := make([]float64, len(closes))
	for i := range line {
		hist[i] = line[i] - sig[i]
	}
	return &MACD{Line: line, Signal: sig, Histogram: hist}, nil
}

// ClassifyCrossover compares the last two histogram values.
// A move from <= 0 to > 0 is bullish, from >= 0 to < 0 is bearish. A flat run at zero is neutral.
func ClassifyCrossover(hist []float64) model.Crossover {
	if len(hist) < 2 {
		return model.CrossoverNeutral
	}
	prev, curr := hist[len(hist)-2], hist[len(hist)-1]
	switch {
	case prev <= 0 && curr > 0:
		return model.CrossoverBullish
	case prev >= 0 && curr < 0:
		return model.CrossoverBearish
	default:
		return model.CrossoverNeutral
	}
}
