package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the kind of decision the engine emits for one (ticker, date).
type Action string

const (
	ActionBuy      Action = "BUY"
	ActionSell     Action = "SELL"
	ActionUpdateSL Action = "UPDATE_SL"
	ActionNop      Action = "NOP"
)

// Decision is the sole public artifact of the decision engine.
type Decision struct {
	Ticker      string           `json:"ticker"`
	Date        time.Time        `json:"date"`
	Action      Action           `json:"action"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Qty         int64            `json:"qty,omitempty"`
	StopLossAmt *decimal.Decimal `json:"stop_loss_amt,omitempty"`
	Reason      string           `json:"reason,omitempty"`
}

// Nop builds a no-op decision with an audit reason.
func Nop(ticker string, date time.Time, reason string) Decision {
	return Decision{Ticker: ticker, Date: date, Action: ActionNop, Reason: reason}
}
