package history

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darvas/internal/types"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := types.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedBars(t *testing.T, s *Store, ticker string, n int) {
	t.Helper()
	bars := make([]types.Bar, 0, n)
	start := day("2024-01-01")
	for i := 0; i < n; i++ {
		bars = append(bars, types.Bar{
			Ticker: ticker,
			Date:   start.AddDate(0, 0, i),
			Open:   d("95.50"),
			High:   d("100.25"),
			Low:    d("90.10"),
			Close:  d("96"),
			Volume: int64(1000 + i),
		})
	}
	n2, err := s.InsertBars(context.Background(), bars)
	require.NoError(t, err)
	require.Equal(t, n, n2)
}

func TestBarOn(t *testing.T) {
	s := openStore(t)
	seedBars(t, s, "ACME", 3)
	ctx := context.Background()

	bar, ok, err := s.BarOn(ctx, "ACME", day("2024-01-02"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ACME", bar.Ticker)
	assert.True(t, bar.Open.Equal(d("95.50")), "prices survive the round trip exactly")
	assert.Equal(t, int64(1001), bar.Volume)

	_, ok, err = s.BarOn(ctx, "ACME", day("2024-02-01"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.BarOn(ctx, "OTHER", day("2024-01-02"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetBarsWindow(t *testing.T) {
	s := openStore(t)
	seedBars(t, s, "ACME", 10)
	ctx := context.Background()

	bars, err := s.GetBars(ctx, "ACME", day("2024-01-08"), 5)
	require.NoError(t, err)
	require.Len(t, bars, 5)
	assert.Equal(t, day("2024-01-03"), bars[0].Date, "oldest first")
	assert.Equal(t, day("2024-01-07"), bars[4].Date, "strictly before the end date")

	_, err = s.GetBars(ctx, "ACME", day("2024-01-04"), 5)
	assert.ErrorIs(t, err, types.ErrInsufficientHistory)
}

func TestRecentBarsIsLenient(t *testing.T) {
	s := openStore(t)
	seedBars(t, s, "ACME", 3)

	bars, err := s.RecentBars(context.Background(), "ACME", day("2024-01-10"), 30)
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}

func TestInsertOverwritesDuplicateDay(t *testing.T) {
	s := openStore(t)
	seedBars(t, s, "ACME", 1)
	ctx := context.Background()

	_, err := s.InsertBars(ctx, []types.Bar{{
		Ticker: "ACME", Date: day("2024-01-01"),
		Open: d("1"), High: d("2"), Low: d("0.5"), Close: d("1.5"), Volume: 9,
	}})
	require.NoError(t, err)

	bar, ok, err := s.BarOn(ctx, "ACME", day("2024-01-01"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, bar.Close.Equal(d("1.5")))
}

func TestTickersAndTradingDates(t *testing.T) {
	s := openStore(t)
	seedBars(t, s, "BBB", 2)
	seedBars(t, s, "AAA", 3)
	ctx := context.Background()

	tickers, err := s.Tickers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, tickers)

	dates, err := s.TradingDates(ctx, day("2024-01-02"), day("2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2024-01-02"), day("2024-01-03")}, dates)
}

func TestLastBarUpTo(t *testing.T) {
	s := openStore(t)
	seedBars(t, s, "ACME", 3)
	ctx := context.Background()

	bar, ok, err := s.LastBarUpTo(ctx, "ACME", day("2024-02-01"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day("2024-01-03"), bar.Date)

	_, ok, err = s.LastBarUpTo(ctx, "ACME", day("2023-12-31"))
	require.NoError(t, err)
	assert.False(t, ok)
}
