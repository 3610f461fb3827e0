package normalize

import (
	"strings"
	"unicode"
)

// RowFilter decides whether a raw record is a data row.
type RowFilter func(record []string) bool

// Policy declares how heterogeneous CSV input maps onto a PriceSeries.
// New data-source quirks are handled by extending the candidate lists or filters.
type Policy struct {
	// CloseColumns are tried in order; the first header match wins.
	CloseColumns []string
	// Optional columns, matched case-insensitively.
	OpenColumns   []string
	HighColumns   []string
	LowColumns    []string
	VolumeColumns []string
	// RowFilters must all accept a record for it to be treated as data.
	RowFilters []RowFilter
	// DateLayouts are tried in order on the first field of a data row.
	DateLayouts []string
	// MinRows is the minimum number of usable rows for indicator computation.
	MinRows int
}

// DefaultPolicy matches the CSV files written by common market-data downloaders.
var DefaultPolicy = Policy{
	CloseColumns:  []string{"Close", "close", "Adj Close", "AdjClose", "Adj_Close"},
	OpenColumns:   []string{"Open"},
	HighColumns:   []string{"High"},
	LowColumns:    []string{"Low"},
	VolumeColumns: []string{"Volume"},
	RowFilters:    []RowFilter{NonEmptyFirstField, DigitLeadingField(4)},
	DateLayouts: []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05-07:00",
		"2006-01-02T15:04:05Z07:00",
		"2006/01/02",
	},
	MinRows: 10,
}

// NonEmptyFirstField rejects blank records and records with an empty first cell.
func NonEmptyFirstField(record []string) bool {
	return len(record) > 0 && strings.TrimSpace(record[0]) != ""
}

// DigitLeadingField accepts records whose first field starts with a digit and has at least minLen characters.
func DigitLeadingField(minLen int) RowFilter {
	return func(record []string) bool {
		if len(record) == 0 {
			return false
		}
		f := strings.TrimSpace(record[0])
		if len(f) < minLen {
			return false
		}
		return unicode.IsDigit(rune(f[0]))
	}
}

// IsDataRow applies every row filter of the policy.
func (p Policy) IsDataRow(record []string) bool {
	for _, accept := range p.RowFilters {
		if !accept(record) {
			return false
		}
	}
	return true
}

// Sufficient reports whether n usable rows meet the policy minimum.
func (p Policy) Sufficient(n int) bool {
	return n >= p.MinRows
}

// columns is the resolved column layout of one source.
type columns struct {
	close         int
	closeFallback bool
	open          int
	high          int
	low           int
	volume        int
}

// resolve maps header names onto column indexes. Missing optional columns are -1.
func (p Policy) resolve(header []string) columns {
	cols := columns{close: -1, open: -1, high: -1, low: -1, volume: -1}
	for _, name := range p.CloseColumns {
		if i := indexOf(header, name, false); i > 0 {
			cols.close = i
			break
		}
	}
	if cols.close < 0 {
		cols.close = 1
		cols.closeFallback = true
	}
	cols.open = firstMatch(header, p.OpenColumns)
	cols.high = firstMatch(header, p.HighColumns)
	cols.low = firstMatch(header, p.LowColumns)
	cols.volume = firstMatch(header, p.VolumeColumns)
	return cols
}

func firstMatch(header []string, names []string) int {
	for _, name := range names {
		if i := indexOf(header, name, true); i > 0 {
			return i
		}
	}
	return -1
}

// indexOf finds name among the non-date columns (index >= 1).
func indexOf(header []string, name string, fold bool) int {
	for i := 1; i < len(header); i++ {
		h := strings.TrimSpace(header[i])
		if h == name || (fold && strings.EqualFold(h, name)) {
			return i
		}
	}
	return -1
}
