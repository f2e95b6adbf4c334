package strategy

import (
	"github.com/shopspring/decimal"

	"darvas/internal/types"
)

// IsBreakout reports whether today's open clears the box top by more than
// bufferPct. Strictly greater-than: equality never qualifies, so flat
// repeated prices cannot fake a breakout. Pure function.
func IsBreakout(todayOpen decimal.Decimal, box types.Box, bufferPct decimal.Decimal) bool {
	return todayOpen.GreaterThan(box.UpperBound(bufferPct))
}
