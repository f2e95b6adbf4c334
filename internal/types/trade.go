package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxnSide labels a transaction as a buy or sell execution.
type TxnSide string

const (
	TxnBuy  TxnSide = "BUY"
	TxnSell TxnSide = "SELL"
)

// ActiveTrade exists only while a position is open for a ticker.
type ActiveTrade struct {
	Ticker      string          `json:"ticker"`
	QtyOwned    int64           `json:"qty_owned"`
	BuyPrice    decimal.Decimal `json:"buy_price"`
	StopLossAmt decimal.Decimal `json:"stop_loss_amt"`
}

// Transaction is an append-only audit record of an executed buy or sell.
type Transaction struct {
	ID     int64           `json:"id"`
	Date   time.Time       `json:"date"`
	Ticker string          `json:"ticker"`
	Side   TxnSide         `json:"side"`
	Price  decimal.Decimal `json:"price"`
	Qty    int64           `json:"qty"`
}

// StrategyState is the per-ticker mutable state of the decision engine.
type StrategyState struct {
	Ticker         string          `json:"ticker"`
	BreakoutStreak int             `json:"breakout_streak"`
	HeightPct      decimal.Decimal `json:"height_pct"`
	LastEvaluated  *time.Time      `json:"last_evaluated,omitempty"`
	LossCarryover  bool            `json:"loss_carryover"`
}
