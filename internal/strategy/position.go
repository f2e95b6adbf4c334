package strategy

import (
	"github.com/shopspring/decimal"

	"darvas/internal/pkg/fees"
	"darvas/internal/types"
)

// PositionEvent is the outcome kind of one position-manager step.
type PositionEvent int

const (
	EventNone PositionEvent = iota
	EventBuy
	EventSell
	EventRaiseStop
)

// PositionOutcome carries the execution details of a position transition.
type PositionOutcome struct {
	Event     PositionEvent
	Price     decimal.Decimal // buy: today's open; sell: the stop price
	Qty       int64
	StopLoss  decimal.Decimal // buy: initial stop; raise: new stop
	Fees      decimal.Decimal
	CashDelta decimal.Decimal // applied to the wallet, fees included
	Loss      bool            // sell netted less than the cost basis
	Reason    string
}

// PositionManager drives the FLAT -> LONG -> FLAT lifecycle and the stop-loss
// escalation while LONG.
type PositionManager struct {
	params Params
}

func NewPositionManager(params Params) *PositionManager {
	return &PositionManager{params: params}
}

// AdvanceLong is the LONG branch. The stop trigger is checked before the
// stop raise: an exit takes priority over raising a stop that would be hit
// the same day. The stop sells at the stop price itself, using the day low
// as the trigger.
func (m *PositionManager) AdvanceLong(trade types.ActiveTrade, today types.Bar, box types.Box) PositionOutcome {
	if today.Low.LessThanOrEqual(trade.StopLossAmt) {
		qty := decimal.NewFromInt(trade.QtyOwned)
		value := trade.StopLossAmt.Mul(qty)
		charge := fees.Charges(value, false)
		proceeds := value.Sub(charge)
		return PositionOutcome{
			Event:     EventSell,
			Price:     trade.StopLossAmt,
			Qty:       trade.QtyOwned,
			Fees:      charge,
			CashDelta: proceeds,
			Loss:      proceeds.LessThan(trade.BuyPrice.Mul(qty)),
			Reason:    "stop-loss triggered",
		}
	}
	if box.MinPrice.GreaterThan(trade.StopLossAmt) {
		return PositionOutcome{
			Event:    EventRaiseStop,
			StopLoss: box.MinPrice,
			Reason:   "box floor above current stop",
		}
	}
	return PositionOutcome{Event: EventNone, Reason: "holding"}
}

// TryOpen is the FLAT branch once the streak threshold and gating have been
// met. budget is min(available cash, cap_per_stock); sizing accounts for
// buy-side fees. A zero qty means the signal could not be funded.
func (m *PositionManager) TryOpen(today types.Bar, budget decimal.Decimal) PositionOutcome {
	qty := fees.MaxAffordableQty(budget, today.Open)
	if qty <= 0 {
		return PositionOutcome{Event: EventNone, Reason: "insufficient cash"}
	}
	stop := today.Open.Mul(decimal.NewFromInt(1).Sub(m.params.StopLossPct))
	value := today.Open.Mul(decimal.NewFromInt(qty))
	charge := fees.Charges(value, true)
	return PositionOutcome{
		Event:     EventBuy,
		Price:     today.Open,
		Qty:       qty,
		StopLoss:  stop,
		Fees:      charge,
		CashDelta: value.Add(charge).Neg(),
		Reason:    "breakout threshold reached",
	}
}
