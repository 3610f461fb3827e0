package model

import "github.com/guregu/null/v6"

// DefaultSector is used when a universe entry carries no sector.
const DefaultSector = "Unknown"

// UniverseEntry is one tracked symbol.
type UniverseEntry struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
}

// SymbolChange is a per-symbol row of a sector heatmap.
type SymbolChange struct {
	Symbol    string     `json:"symbol"`
	Name      string     `json:"name"`
	Date      string     `json:"date"`
	Close     float64    `json:"close"`
	ChangePct null.Float `json:"change_pct"`
}

// SectorGroup aggregates the symbols of one sector.
type SectorGroup struct {
	Symbols      []SymbolChange `json:"symbols"`
	AvgChangePct null.Float     `json:"avg_change_pct"`
}

// SectorHeatmap is the per-sector change view for one horizon.
type SectorHeatmap struct {
	Duration Horizon                 `json:"duration"`
	Sectors  map[string]*SectorGroup `json:"sectors"`
}
