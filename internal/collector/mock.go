package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/guregu/null/v6"

	"MarketPulse/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  map[string][]model.Bar
	Err   map[string]error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.Err[symbol]; err != nil {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	if m.Price <= 0 {
		return nil, fmt.Errorf("mock: no data for %s", symbol)
	}
	return generateMockBars(m.Price, start, end), nil
}

// generateMockBars produces one bar per weekday in [start, end) on a gentle uptrend.
func generateMockBars(basePrice float64, start, end time.Time) []model.Bar {
	var bars []model.Bar
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; day.Before(end); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i)*0.001)
		bars = append(bars, model.Bar{
			Time:     day,
			Open:     null.FloatFrom(p * 0.999),
			High:     null.FloatFrom(p * 1.005),
			Low:      null.FloatFrom(p * 0.995),
			Close:    p,
			AdjClose: null.FloatFrom(p),
			Volume:   null.IntFrom(1000000),
		})
		i++
	}
	return bars
}
