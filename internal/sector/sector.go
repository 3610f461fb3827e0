package sector

import (
	"github.com/guregu/null/v6"

	"MarketPulse/internal/model"
)

// Lookup returns the change summary of one symbol. ok is false when the symbol has no usable data.
type Lookup func(symbol string) (summary *model.ChangeSummary, ok bool)

// Aggregate groups change summaries of a universe by sector.
// Symbols without data are left out of both the symbol list and the sector average.
func Aggregate(universe []model.UniverseEntry, lookup Lookup) map[string]*model.SectorGroup {
	sectors := make(map[string]*model.SectorGroup)
	for _, e := range universe {
		if e.Symbol == "" {
			continue
		}
		sum, ok := lookup(e.Symbol)
		if !ok || sum == nil {
			continue
		}
		name := e.Sector
		if name == "" {
			name = model.DefaultSector
		}
		g, exists := sectors[name]
		if !exists {
			g = &model.SectorGroup{Symbols: []model.SymbolChange{}}
			sectors[name] = g
		}
		g.Symbols = append(g.Symbols, model.SymbolChange{
			Symbol:    e.Symbol,
			Name:      e.Name,
			Date:      sum.Date,
			Close:     sum.Close,
			ChangePct: sum.ChangePct,
		})
	}

	for _, g := range sectors {
		changes := make([]null.Float, len(g.Symbols))
		for i, s := range g.Symbols {
			changes[i] = s.ChangePct
		}
		g.AvgChangePct = Average(changes)
	}
	return sectors
}

// Average is the arithmetic mean of the defined values, null when none is defined.
func Average(values []null.Float) null.Float {
	var sum float64
	var n int
	for _, v := range values {
		if !v.Valid {
			continue
		}
		sum += v.Float64
		n++
	}
	if n == 0 {
		return null.Float{}
	}
	return null.FloatFrom(sum / float64(n))
}
