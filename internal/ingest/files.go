package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/guregu/null/v6"

	"MarketPulse/internal/model"
)

// Header is the column layout of every CSV written by ingest.
var Header = []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}

// fileMode matches the per-job log so every ingest artifact is world-readable.
const fileMode = 0o644

// writeAtomic writes through a temp file in the target directory and renames it into place,
// so readers never observe a partial file.
func writeAtomic(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	return writeAtomic(path, func(f *os.File) error {
		return json.NewEncoder(f).Encode(v)
	})
}

func writeBars(path string, bars []model.Bar) error {
	return writeAtomic(path, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.Write(Header); err != nil {
			return err
		}
		for _, b := range bars {
			if err := w.Write([]string{
				b.Time.UTC().Format(model.DateLayout),
				optionalFloat(b.Open),
				optionalFloat(b.High),
				optionalFloat(b.Low),
				formatFloat(b.Close),
				optionalFloat(b.AdjClose),
				optionalInt(b.Volume),
			}); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// optionalFloat leaves the cell empty for an absent value, which normalization reads back as absent.
func optionalFloat(v null.Float) string {
	if !v.Valid {
		return ""
	}
	return formatFloat(v.Float64)
}

func optionalInt(v null.Int) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.Int64, 10)
}

func readProgress(path string) (*model.IngestProgress, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p model.IngestProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode progress %s: %w", path, err)
	}
	return &p, nil
}
