package sector

import (
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/model"
)

func TestAverage(t *testing.T) {
	avg := Average([]null.Float{null.FloatFrom(2), {}, null.FloatFrom(4)})
	require.True(t, avg.Valid)
	assert.Equal(t, 3.0, avg.Float64)

	assert.False(t, Average([]null.Float{{}, {}}).Valid)
	assert.False(t, Average(nil).Valid)
}

func TestAggregate(t *testing.T) {
	universe := []model.UniverseEntry{
		{Symbol: "AAA", Name: "Alpha", Sector: "Tech"},
		{Symbol: "BBB", Name: "Beta", Sector: "Tech"},
		{Symbol: "CCC", Name: "Gamma", Sector: "Tech"},
		{Symbol: "DDD", Name: "Delta", Sector: "Energy"},
		{Symbol: "EEE", Name: "Epsilon"},
		{Symbol: "MISSING", Sector: "Energy"},
		{Name: "no symbol", Sector: "Tech"},
	}
	data := map[string]*model.ChangeSummary{
		"AAA": {Date: "2024-01-08", Close: 10, ChangePct: null.FloatFrom(2)},
		"BBB": {Date: "2024-01-08", Close: 20},
		"CCC": {Date: "2024-01-08", Close: 30, ChangePct: null.FloatFrom(4)},
		"DDD": {Date: "2024-01-08", Close: 40},
		"EEE": {Date: "2024-01-08", Close: 50, ChangePct: null.FloatFrom(-1)},
	}
	var calls []string
	lookup := func(symbol string) (*model.ChangeSummary, bool) {
		calls = append(calls, symbol)
		s, ok := data[symbol]
		return s, ok
	}

	sectors := Aggregate(universe, lookup)

	assert.Equal(t, []string{"AAA", "BBB", "CCC", "DDD", "EEE", "MISSING"}, calls)
	require.Len(t, sectors, 3)

	tech := sectors["Tech"]
	require.Len(t, tech.Symbols, 3)
	assert.Equal(t, "Alpha", tech.Symbols[0].Name)
	assert.Equal(t, null.FloatFrom(3), tech.AvgChangePct)

	energy := sectors["Energy"]
	require.Len(t, energy.Symbols, 1, "missing symbols are not listed")
	assert.False(t, energy.AvgChangePct.Valid)

	unknown := sectors[model.DefaultSector]
	require.NotNil(t, unknown)
	assert.Equal(t, null.FloatFrom(-1), unknown.AvgChangePct)
}

func TestAggregate_Empty(t *testing.T) {
	sectors := Aggregate(nil, func(string) (*model.ChangeSummary, bool) { return nil, false })
	assert.Empty(t, sectors)
}
