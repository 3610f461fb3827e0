package analysis

import (
	"time"

	"github.com/guregu/null/v6"

	"MarketPulse/internal/calculator"
	"MarketPulse/internal/model"
)

// ComputeChange compares the latest close with the row nearest to latest date minus the horizon.
// It returns nil for an empty series or when the latest row has no close.
// A matched row without a close yields a summary with null prev_close and change_pct.
func ComputeChange(series model.PriceSeries, h model.Horizon) *model.ChangeSummary {
	last, ok := series.Last()
	if !ok || !last.Close.Valid {
		return nil
	}
	target := last.Date.AddDate(0, 0, -h.Days())

	matched, found := nearest(series.Rows, target)
	sum := &model.ChangeSummary{
		Date:  last.Date.Format(model.DateLayout),
		Close: last.Close.Float64,
	}
	if !found {
		return sum
	}
	sum.PrevDate = null.StringFrom(matched.Date.Format(model.DateLayout))
	if !matched.Close.Valid {
		return sum
	}
	sum.PrevClose = matched.Close
	sum.ChangePct = calculator.PercentChange(matched.Close.Float64, last.Close.Float64)
	return sum
}

// nearest scans rows in order and keeps the first row with the smallest day distance to target,
// so exact ties resolve to the earlier date.
func nearest(rows []model.PriceRow, target time.Time) (model.PriceRow, bool) {
	var best model.PriceRow
	bestDiff := -1
	for _, r := range rows {
		diff := dayDistance(r.Date, target)
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = r, diff
		}
	}
	return best, bestDiff >= 0
}

func dayDistance(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Round(time.Hour).Hours()) / 24
}
