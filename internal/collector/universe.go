package collector

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"MarketPulse/internal/model"
)

// ErrUniverseUnavailable is returned when the universe file is missing.
var ErrUniverseUnavailable = errors.New("universe unavailable")

// ReadUniverse loads the tracked symbols from a JSON array of {symbol, name, sector}.
func ReadUniverse(path string) ([]model.UniverseEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUniverseUnavailable, path)
		}
		return nil, fmt.Errorf("read universe: %w", err)
	}
	var entries []model.UniverseEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode universe %s: %w", path, err)
	}
	return entries, nil
}

// Symbols lists the non-empty symbols of a universe in file order.
func Symbols(universe []model.UniverseEntry) []string {
	out := make([]string, 0, len(universe))
	for _, e := range universe {
		if e.Symbol != "" {
			out = append(out, e.Symbol)
		}
	}
	return out
}
