package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestNormalize_DownloaderLayout(t *testing.T) {
	records := [][]string{
		{"Price", "Adj Close", "Close", "High", "Low", "Open", "Volume"},
		{"Ticker", "AAPL", "AAPL", "AAPL", "AAPL", "AAPL", "AAPL"},
		{"Date", "", "", "", "", "", ""},
		{"2024-01-03", "183.9", "184.2", "185.8", "183.4", "184.2", "58414500"},
		{"2024-01-02", "184.5", "185.6", "188.4", "183.8", "187.1", "82488700"},
	}
	series, rep := Normalize("AAPL", records, DefaultPolicy)

	require.Len(t, series.Rows, 2)
	assert.Equal(t, "AAPL", series.Symbol)
	assert.Equal(t, day("2024-01-02"), series.Rows[0].Date)
	assert.Equal(t, 185.6, series.Rows[0].Close.Float64, "Close preferred over Adj Close")
	assert.Equal(t, 187.1, series.Rows[0].Open.Float64)
	assert.Equal(t, int64(82488700), series.Rows[0].Volume.Int64)
	assert.Equal(t, 3, rep.Discarded)
	assert.False(t, rep.CloseFallback)
}

func TestNormalize_CloseCandidatesInPriorityOrder(t *testing.T) {
	tests := []struct {
		header []string
		want   float64
	}{
		{[]string{"Date", "close", "Adj Close"}, 1},
		{[]string{"Date", "Adj Close", "AdjClose"}, 1},
		{[]string{"Date", "x", "AdjClose"}, 2},
		{[]string{"Date", "x", "y", "Adj_Close"}, 3},
		{[]string{"Date", "Close", "close"}, 1},
	}
	for _, tt := range tests {
		records := [][]string{tt.header, {"2024-01-02", "1", "2", "3"}}
		series, _ := Normalize("X", records, DefaultPolicy)
		require.Len(t, series.Rows, 1, "%v", tt.header)
		assert.Equal(t, tt.want, series.Rows[0].Close.Float64, "%v", tt.header)
	}
}

func TestNormalize_FallsBackToFirstNonDateColumn(t *testing.T) {
	records := [][]string{
		{"Date", "Price", "Other"},
		{"2024-01-02", "42.5", "7"},
	}
	series, rep := Normalize("X", records, DefaultPolicy)
	require.Len(t, series.Rows, 1)
	assert.True(t, rep.CloseFallback)
	assert.Equal(t, 42.5, series.Rows[0].Close.Float64)
	assert.False(t, series.Rows[0].Open.Valid)
	assert.False(t, series.Rows[0].Volume.Valid)
}

func TestNormalize_DropsMalformedRows(t *testing.T) {
	records := [][]string{
		{"Date", "Open", "High", "Low", "Close", "Volume"},
		{"2024-01-02", "1", "2", "0.5", "1.5", "100"},
		{"2024-13-45", "1", "2", "0.5", "1.5", "100"}, // bad date
		{"2024-01-03", "1", "2", "0.5", "", "100"},    // missing close
		{"2024-01-04", "1", "2", "0.5", "NaN", "100"}, // non-finite close
		{"abc", "1", "2", "0.5", "1.5", "100"},        // not a data row
		{"199", "1", "2", "0.5", "1.5", "100"},        // too short to be a date
		{},
		{"2024-01-05", "x", "2", "0.5", "1.7", "-3"},
	}
	series, rep := Normalize("X", records, DefaultPolicy)
	require.Len(t, series.Rows, 2)
	assert.Equal(t, 3, rep.Malformed)

	last := series.Rows[1]
	assert.Equal(t, day("2024-01-05"), last.Date)
	assert.False(t, last.Open.Valid, "unparsable open is absent")
	assert.False(t, last.Volume.Valid, "negative volume is absent")
}

func TestNormalize_SortsAndDeduplicates(t *testing.T) {
	records := [][]string{
		{"Date", "Close"},
		{"2024-01-05", "5"},
		{"2024-01-02", "2"},
		{"2024-01-05", "6"},
		{"2024-01-03 00:00:00", "3"},
	}
	series, rep := Normalize("X", records, DefaultPolicy)
	require.Len(t, series.Rows, 3)
	assert.Equal(t, 1, rep.Duplicates)
	assert.Equal(t, []float64{2, 3, 6}, series.Closes())
	for i := 1; i < len(series.Rows); i++ {
		assert.True(t, series.Rows[i-1].Date.Before(series.Rows[i].Date))
	}
}

func TestNormalize_Headerless(t *testing.T) {
	records := [][]string{
		{"2024-01-02", "10"},
		{"2024-01-03", "11"},
	}
	series, rep := Normalize("X", records, DefaultPolicy)
	assert.True(t, rep.Headerless)
	assert.Equal(t, []float64{10, 11}, series.Closes())
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	records := [][]string{
		{"Date", "Close"},
		{"2024-01-03", "3"},
		{"2024-01-02", "2"},
	}
	Normalize("X", records, DefaultPolicy)
	assert.Equal(t, "2024-01-03", records[1][0])
	assert.Equal(t, "2024-01-02", records[2][0])
}

func TestNormalize_Empty(t *testing.T) {
	series, rep := Normalize("X", nil, DefaultPolicy)
	assert.Empty(t, series.Rows)
	assert.Equal(t, 0, rep.Records)
}

func TestVolumeAt(t *testing.T) {
	assert.Equal(t, int64(1500000), volumeAt([]string{"1.5e6"}, 0).Int64)
	assert.False(t, volumeAt([]string{"1.5"}, 0).Valid)
	assert.False(t, volumeAt([]string{"1"}, 3).Valid)
}

func TestPolicy_Sufficient(t *testing.T) {
	assert.False(t, DefaultPolicy.Sufficient(9))
	assert.True(t, DefaultPolicy.Sufficient(10))
}
