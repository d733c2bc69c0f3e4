package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures ReadCSVRecords.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // 0 = none
	LazyQuotes bool
}

// ReadCSVRecords reads a CSV with a header row and returns one map per data
// row keyed by lower-cased, trimmed header names. Missing trailing fields
// are left out of the map.
func ReadCSVRecords(ctx context.Context, r io.Reader, opts CSVOptions) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.Comment = opts.Comment
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	header = NormalizeHeader(header)

	var out []map[string]string
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "csv: context cancelled")
		}
		row, err := reader.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		out = append(out, RowToMap(header, row))
	}
}

// NormalizeHeader lower-cases and trims header cells, stripping a UTF-8 BOM
// from the first one.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

// RowToMap pairs header names with trimmed row values.
func RowToMap(header, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, h := range header {
		if i >= len(row) || h == "" {
			continue
		}
		m[h] = strings.TrimSpace(row[i])
	}
	return m
}
