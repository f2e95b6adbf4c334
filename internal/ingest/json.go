package ingest

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"darvas/internal/logger"
	"darvas/internal/types"
)

// LoadJSON reads a provider JSON export and writes its bars to the store.
//
// The format is a map of ticker to bar array:
//
//	{"ACME": [{"date": "2024-01-02", "open": 95.5, "high": 100.25,
//	           "low": 90.1, "close": 96, "volume": 120000}, ...]}
func (l *Loader) LoadJSON(ctx context.Context, path string) (int, error) {
	bars, err := ReadProviderJSON(path)
	if err != nil {
		return 0, err
	}
	n, err := l.store.InsertBars(ctx, bars)
	if err != nil {
		return n, err
	}
	logger.Infof("loaded %d bars from %s", n, path)
	return n, nil
}

// ReadProviderJSON parses the JSON export into bars. A bar missing any field
// is dropped, matching the CSV loader's NaN handling.
func ReadProviderJSON(path string) ([]types.Bar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%s is not valid JSON", path)
	}

	var bars []types.Bar
	var parseErr error
	gjson.ParseBytes(raw).ForEach(func(ticker, entries gjson.Result) bool {
		entries.ForEach(func(_, entry gjson.Result) bool {
			bar, ok, err := barFromJSON(ticker.String(), entry)
			if err != nil {
				parseErr = err
				return false
			}
			if ok {
				bars = append(bars, bar)
			}
			return true
		})
		return parseErr == nil
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return bars, nil
}

func barFromJSON(ticker string, entry gjson.Result) (types.Bar, bool, error) {
	dateRaw := entry.Get("date")
	if !dateRaw.Exists() {
		return types.Bar{}, false, nil
	}
	date, err := types.ParseDate(normalizeDate(dateRaw.String()))
	if err != nil {
		return types.Bar{}, false, fmt.Errorf("bad date %q for %s: %w", dateRaw.String(), ticker, err)
	}

	bar := types.Bar{Ticker: ticker, Date: date}
	for _, field := range []struct {
		name string
		dst  *decimal.Decimal
	}{
		{"open", &bar.Open}, {"high", &bar.High}, {"low", &bar.Low}, {"close", &bar.Close},
	} {
		v := entry.Get(field.name)
		if !v.Exists() || !validCell(v.String()) {
			return types.Bar{}, false, nil
		}
		dec, err := decimal.NewFromString(v.String())
		if err != nil {
			return types.Bar{}, false, fmt.Errorf("bad %s %q for %s on %s: %w",
				field.name, v.String(), ticker, bar.DateString(), err)
		}
		*field.dst = dec
	}
	vol := entry.Get("volume")
	if !vol.Exists() || !validCell(vol.String()) {
		return types.Bar{}, false, nil
	}
	bar.Volume = vol.Int()
	return bar, true, nil
}
