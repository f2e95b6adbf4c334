package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical format for trade dates across stores and APIs.
const DateLayout = "2006-01-02"

// Bar is one ticker-day of OHLCV data. Immutable once recorded.
type Bar struct {
	Ticker string          `json:"ticker"`
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// DateString renders the bar date in DateLayout.
func (b Bar) DateString() string { return b.Date.Format(DateLayout) }

// ParseDate parses a DateLayout string into a UTC date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Day truncates t to a UTC calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
