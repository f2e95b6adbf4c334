// Package fees provides the transaction charge schedule and buy sizing math.
package fees

import "github.com/shopspring/decimal"

var (
	brokerageRate = decimal.RequireFromString("0.001")
	brokerageMin  = decimal.NewFromInt(5)
	brokerageMax  = decimal.NewFromInt(20)
	sttRate       = decimal.RequireFromString("0.001")
	turnoverRate  = decimal.RequireFromString("0.000001")
	stampDutyRate = decimal.RequireFromString("0.001")
)

// Charges computes the total transaction cost for a trade value:
// brokerage 0.1% clamped to [5, 20], STT 0.1%, turnover 0.0001%, and stamp
// duty 0.1% on the buy side only.
func Charges(tradeValue decimal.Decimal, isBuy bool) decimal.Decimal {
	brokerage := brokerageRate.Mul(tradeValue)
	if brokerage.LessThan(brokerageMin) {
		brokerage = brokerageMin
	}
	if brokerage.GreaterThan(brokerageMax) {
		brokerage = brokerageMax
	}
	total := brokerage.
		Add(sttRate.Mul(tradeValue)).
		Add(turnoverRate.Mul(tradeValue))
	if isBuy {
		total = total.Add(stampDutyRate.Mul(tradeValue))
	}
	return total
}

// MaxAffordableQty returns the largest integer qty with
// qty*price + Charges(qty*price, buy) <= budget.
func MaxAffordableQty(budget, price decimal.Decimal) int64 {
	if price.Sign() <= 0 || budget.Sign() <= 0 {
		return 0
	}
	qty := budget.Div(price).IntPart()
	for qty > 0 {
		tradeValue := price.Mul(decimal.NewFromInt(qty))
		if tradeValue.Add(Charges(tradeValue, true)).LessThanOrEqual(budget) {
			return qty
		}
		qty--
	}
	return 0
}
