package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Box is the active price channel for a ticker: min(low)/max(high) over a
// trailing window anchored at StartDate. At most one active box per ticker.
type Box struct {
	ID        int64           `json:"id"`
	Ticker    string          `json:"ticker"`
	StartDate time.Time       `json:"start_date"`
	EndDate   *time.Time      `json:"end_date,omitempty"` // nil while active
	MinPrice  decimal.Decimal `json:"min_price"`
	MaxPrice  decimal.Decimal `json:"max_price"`
	BaseClose decimal.Decimal `json:"base_close"`
	IsActive  bool            `json:"is_active"`
}

// UpperBound returns MaxPrice*(1+bufferPct), the breakout qualification level.
func (b Box) UpperBound(bufferPct decimal.Decimal) decimal.Decimal {
	return b.MaxPrice.Mul(decimal.NewFromInt(1).Add(bufferPct))
}
