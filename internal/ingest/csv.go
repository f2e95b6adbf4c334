// Package ingest loads daily bars from provider exports into the history
// store. Two formats are supported: wide CSV (one file per field, one column
// per ticker) and the JSON export format.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"darvas/internal/logger"
	"darvas/internal/types"
)

// BarWriter is the slice of the history store ingest needs.
type BarWriter interface {
	InsertBars(ctx context.Context, bars []types.Bar) (int, error)
}

type Loader struct {
	store BarWriter
}

func NewLoader(store BarWriter) *Loader {
	return &Loader{store: store}
}

// csvFiles maps each OHLCV field to its wide-format file name.
var csvFiles = map[string]string{
	"open":   "yfinance_open.csv",
	"high":   "yfinance_high.csv",
	"low":    "yfinance_low.csv",
	"close":  "yfinance_close.csv",
	"volume": "yfinance_volume.csv",
}

// LoadCSVDir reads the five wide CSV files under dir and writes the joined
// bars to the store. A (date, ticker) cell that is empty or NaN in any file
// drops that bar.
func (l *Loader) LoadCSVDir(ctx context.Context, dir string) (int, error) {
	bars, err := ReadWideCSVDir(dir)
	if err != nil {
		return 0, err
	}
	n, err := l.store.InsertBars(ctx, bars)
	if err != nil {
		return n, err
	}
	logger.Infof("loaded %d bars from %s", n, dir)
	return n, nil
}

// ReadWideCSVDir parses the wide-format export: each file has a Date column
// followed by one column per ticker.
func ReadWideCSVDir(dir string) ([]types.Bar, error) {
	fields := make(map[string]map[cellKey]string, len(csvFiles))
	var tickers []string
	var dates []string
	for field, name := range csvFiles {
		path := filepath.Join(dir, name)
		cells, fileTickers, fileDates, err := readWideCSV(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		fields[field] = cells
		// The close file defines the universe, like the provider export does.
		if field == "close" {
			tickers = fileTickers
			dates = fileDates
		}
	}
	sort.Strings(dates)

	var bars []types.Bar
	for _, date := range dates {
		parsed, err := types.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", date, err)
		}
		for _, ticker := range tickers {
			bar, ok, err := assembleBar(fields, ticker, date, parsed)
			if err != nil {
				return nil, err
			}
			if ok {
				bars = append(bars, bar)
			}
		}
	}
	return bars, nil
}

type cellKey struct {
	date   string
	ticker string
}

func readWideCSV(path string) (map[cellKey]string, []string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, nil, fmt.Errorf("empty file")
	}
	header := records[0]
	if len(header) < 2 || !strings.EqualFold(header[0], "Date") {
		return nil, nil, nil, fmt.Errorf("expected a Date column followed by tickers, got %v", header)
	}
	tickers := header[1:]

	cells := make(map[cellKey]string)
	var dates []string
	for _, row := range records[1:] {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		date := normalizeDate(row[0])
		dates = append(dates, date)
		for i, ticker := range tickers {
			if i+1 >= len(row) {
				break
			}
			cells[cellKey{date: date, ticker: ticker}] = row[i+1]
		}
	}
	return cells, tickers, dates, nil
}

// normalizeDate trims a timestamp suffix some exports carry ("2024-01-02
// 00:00:00" or ISO T-forms) down to the date.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, " T"); i > 0 {
		raw = raw[:i]
	}
	return raw
}

func assembleBar(fields map[string]map[cellKey]string, ticker, date string, parsed time.Time) (types.Bar, bool, error) {
	key := cellKey{date: date, ticker: ticker}
	values := make(map[string]decimal.Decimal, len(csvFiles))
	for field, cells := range fields {
		raw, ok := cells[key]
		if !ok || !validCell(raw) {
			return types.Bar{}, false, nil
		}
		v, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return types.Bar{}, false, fmt.Errorf("bad %s value %q for %s on %s: %w", field, raw, ticker, date, err)
		}
		values[field] = v
	}
	return types.Bar{
		Ticker: ticker,
		Date:   parsed,
		Open:   values["open"],
		High:   values["high"],
		Low:    values["low"],
		Close:  values["close"],
		Volume: values["volume"].IntPart(),
	}, true, nil
}

func validCell(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	switch strings.ToLower(raw) {
	case "nan", "null", "none", "na":
		return false
	}
	return true
}
