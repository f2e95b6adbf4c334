package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darvas/internal/types"
)

type captureWriter struct {
	bars []types.Bar
}

func (w *captureWriter) InsertBars(_ context.Context, bars []types.Bar) (int, error) {
	w.bars = append(w.bars, bars...)
	return len(bars), nil
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeWideCSVs(t *testing.T, dir string) {
	writeFile(t, dir, "yfinance_open.csv", "Date,AAA,BBB\n2024-01-02,95.5,10\n2024-01-03,96,11\n")
	writeFile(t, dir, "yfinance_high.csv", "Date,AAA,BBB\n2024-01-02,100.25,12\n2024-01-03,101,13\n")
	writeFile(t, dir, "yfinance_low.csv", "Date,AAA,BBB\n2024-01-02,90.1,9\n2024-01-03,91,10\n")
	writeFile(t, dir, "yfinance_close.csv", "Date,AAA,BBB\n2024-01-02,96,11\n2024-01-03,97,NaN\n")
	writeFile(t, dir, "yfinance_volume.csv", "Date,AAA,BBB\n2024-01-02,120000,5000\n2024-01-03,130000,6000\n")
}

func TestReadWideCSVDir(t *testing.T) {
	dir := t.TempDir()
	writeWideCSVs(t, dir)

	bars, err := ReadWideCSVDir(dir)
	require.NoError(t, err)
	// BBB on 2024-01-03 has a NaN close and is dropped.
	require.Len(t, bars, 3)

	first := bars[0]
	assert.Equal(t, "AAA", first.Ticker)
	assert.Equal(t, "2024-01-02", first.DateString())
	assert.True(t, first.Open.Equal(decimal.RequireFromString("95.5")))
	assert.True(t, first.High.Equal(decimal.RequireFromString("100.25")))
	assert.Equal(t, int64(120000), first.Volume)

	for _, b := range bars {
		if b.Ticker == "BBB" {
			assert.Equal(t, "2024-01-02", b.DateString())
		}
	}
}

func TestReadWideCSVDirTimestampDates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "yfinance_open.csv", "Date,AAA\n2024-01-02 00:00:00,95.5\n")
	writeFile(t, dir, "yfinance_high.csv", "Date,AAA\n2024-01-02 00:00:00,100\n")
	writeFile(t, dir, "yfinance_low.csv", "Date,AAA\n2024-01-02 00:00:00,90\n")
	writeFile(t, dir, "yfinance_close.csv", "Date,AAA\n2024-01-02 00:00:00,96\n")
	writeFile(t, dir, "yfinance_volume.csv", "Date,AAA\n2024-01-02 00:00:00,1000\n")

	bars, err := ReadWideCSVDir(dir)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "2024-01-02", bars[0].DateString())
}

func TestReadWideCSVDirMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "yfinance_open.csv", "Date,AAA\n2024-01-02,95.5\n")

	_, err := ReadWideCSVDir(dir)
	assert.Error(t, err)
}

func TestLoaderLoadCSVDir(t *testing.T) {
	dir := t.TempDir()
	writeWideCSVs(t, dir)
	w := &captureWriter{}

	n, err := NewLoader(w).LoadCSVDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, w.bars, 3)
}

func TestReadProviderJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "export.json", `{
		"AAA": [
			{"date": "2024-01-02", "open": 95.5, "high": 100.25, "low": 90.1, "close": 96, "volume": 120000},
			{"date": "2024-01-03", "open": 96, "high": 101, "low": 91, "close": null, "volume": 130000}
		],
		"BBB": [
			{"date": "2024-01-02", "open": 10, "high": 12, "low": 9, "close": 11, "volume": 5000}
		]
	}`)

	bars, err := ReadProviderJSON(filepath.Join(dir, "export.json"))
	require.NoError(t, err)
	// AAA's second entry has a null close and is dropped.
	require.Len(t, bars, 2)
	assert.Equal(t, "AAA", bars[0].Ticker)
	assert.True(t, bars[0].Close.Equal(decimal.RequireFromString("96")))
	assert.Equal(t, "BBB", bars[1].Ticker)
}

func TestReadProviderJSONInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", "{not json")

	_, err := ReadProviderJSON(filepath.Join(dir, "broken.json"))
	assert.Error(t, err)
}
