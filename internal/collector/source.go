package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrSourceUnavailable is returned when the raw rows of a symbol cannot be read at all.
var ErrSourceUnavailable = errors.New("source unavailable")

// RowSource yields the raw CSV records of one symbol, header included.
type RowSource interface {
	ReadRows(ctx context.Context, symbol string) ([][]string, error)
}

// CSVSource reads <Dir>/<SYMBOL>.csv files as written by the ingest job.
type CSVSource struct {
	Dir string
}

// NewCSVSource creates a source rooted at dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{Dir: dir}
}

// Path returns the file backing symbol.
func (s *CSVSource) Path(symbol string) string {
	return filepath.Join(s.Dir, symbol+".csv")
}

func (s *CSVSource) ReadRows(ctx context.Context, symbol string) ([][]string, error) {
	if !validSymbol(symbol) {
		return nil, fmt.Errorf("%w: invalid symbol %q", ErrSourceUnavailable, symbol)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path(symbol))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				// a broken line does not spoil the rest of the file
				continue
			}
			return nil, fmt.Errorf("%w: read %s: %v", ErrSourceUnavailable, symbol, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// validSymbol rejects names that would escape the data directory.
func validSymbol(symbol string) bool {
	if symbol == "" || symbol == "." || symbol == ".." {
		return false
	}
	return !strings.ContainsAny(symbol, `/\`) && !strings.Contains(symbol, "..")
}
