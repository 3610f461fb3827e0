package collector

import (
	"context"
	"time"

	"MarketPulse/internal/model"
)

// Fetcher defines the interface for downloading daily history from a market-data provider.
type Fetcher interface {
	// FetchDailyBars returns bars in [start, end), ascending by time.
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error)
	Name() string
}
