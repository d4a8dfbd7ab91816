package market

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"execution-core/internal/strategy"
)

// CSVSource reads historical bars from a CSV file with the columns
// timestamp,symbol,open,high,low,close,volume. A header row is skipped when
// present. Timestamps are RFC3339 or unix seconds.
type CSVSource struct {
	Path string
}

// NewCSVSource points a source at a file; the file is read on Load.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// Load parses the file into an ordered bar series. Rows must already be in
// ascending time order; out-of-order rows are rejected so that replay stays
// deterministic.
func (s *CSVSource) Load() ([]strategy.Bar, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open bar file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}

	var bars []strategy.Bar
	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		if len(row) < 7 {
			return nil, fmt.Errorf("%s:%d: expected 7 columns, got %d", s.Path, i+1, len(row))
		}
		ts, err := parseTime(row[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", s.Path, i+1, err)
		}
		b := strategy.Bar{Symbol: row[1], Time: ts}
		for j, dst := range []*float64{&b.Open, &b.High, &b.Low, &b.Close, &b.Volume} {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[j+2]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: column %d: %w", s.Path, i+1, j+3, err)
			}
			*dst = v
		}
		if b.Close <= 0 {
			return nil, fmt.Errorf("%s:%d: close price must be positive", s.Path, i+1)
		}
		if n := len(bars); n > 0 && b.Time.Before(bars[n-1].Time) {
			return nil, fmt.Errorf("%s:%d: bars out of time order", s.Path, i+1)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func isHeader(row []string) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "timestamp")
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
