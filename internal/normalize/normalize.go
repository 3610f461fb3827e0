package normalize

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"MarketPulse/internal/model"
)

// Report describes what normalization discarded or guessed.
type Report struct {
	Records       int  // raw records seen, header included
	Discarded     int  // non-data records (headers, ticker rows, blanks)
	Malformed     int  // data rows with an unparsable date or close
	Duplicates    int  // data rows superseded by a later row with the same date
	CloseFallback bool // no close column matched; column 1 used
	Headerless    bool // first record was data
}

// Normalize turns raw CSV records into a PriceSeries sorted ascending by date.
// Row-level problems never fail: offending rows are dropped and counted in the report.
// The input records are not modified.
func Normalize(symbol string, records [][]string, p Policy) (model.PriceSeries, Report) {
	rep := Report{Records: len(records)}
	series := model.PriceSeries{Symbol: symbol}
	if len(records) == 0 {
		return series, rep
	}

	header := records[0]
	body := records[1:]
	if p.IsDataRow(header) {
		rep.Headerless = true
		header = nil
		body = records
	} else {
		rep.Discarded++
	}
	cols := p.resolve(header)
	rep.CloseFallback = cols.closeFallback

	byDate := make(map[time.Time]int, len(body))
	rows := make([]model.PriceRow, 0, len(body))
	for _, rec := range body {
		if !p.IsDataRow(rec) {
			rep.Discarded++
			continue
		}
		date, ok := p.parseDate(rec[0])
		if !ok {
			rep.Malformed++
			continue
		}
		row := model.PriceRow{
			Date:   date,
			Open:   floatAt(rec, cols.open),
			High:   floatAt(rec, cols.high),
			Low:    floatAt(rec, cols.low),
			Close:  floatAt(rec, cols.close),
			Volume: volumeAt(rec, cols.volume),
		}
		if !row.Close.Valid {
			rep.Malformed++
			continue
		}
		if i, dup := byDate[date]; dup {
			rows[i] = row
			rep.Duplicates++
			continue
		}
		byDate[date] = len(rows)
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	series.Rows = rows
	return series, rep
}

func (p Policy) parseDate(field string) (time.Time, bool) {
	f := strings.TrimSpace(field)
	for _, layout := range p.DateLayouts {
		if t, err := time.Parse(layout, f); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func floatAt(rec []string, i int) null.Float {
	if i < 0 || i >= len(rec) {
		return null.Float{}
	}
	s := strings.TrimSpace(rec[i])
	if s == "" {
		return null.Float{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

// volumeAt accepts integral values, including those written in float notation ("1.5e6").
func volumeAt(rec []string, i int) null.Int {
	f := floatAt(rec, i)
	if !f.Valid || f.Float64 < 0 || f.Float64 != math.Trunc(f.Float64) || f.Float64 >= 1<<63 {
		return null.Int{}
	}
	return null.IntFrom(int64(f.Float64))
}
