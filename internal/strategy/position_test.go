package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darvas/internal/pkg/fees"
	"darvas/internal/types"
)

func TestAdvanceLongStopTrigger(t *testing.T) {
	m := NewPositionManager(persistentParams())
	trade := types.ActiveTrade{
		Ticker:      "ACME",
		QtyOwned:    10,
		BuyPrice:    d("103"),
		StopLossAmt: d("97.85"),
	}
	box := types.Box{MinPrice: d("90"), MaxPrice: d("100")}

	t.Run("low at or below stop sells at the stop price", func(t *testing.T) {
		today := mkBar("ACME", "2024-01-20", "99", "100", "96", "97", 1000)
		out := m.AdvanceLong(trade, today, box)

		require.Equal(t, EventSell, out.Event)
		assert.True(t, out.Price.Equal(d("97.85")), "execution at the stop, not the day low")
		assert.Equal(t, int64(10), out.Qty)
		assert.True(t, out.Loss, "exit below the buy price is a loss")

		value := d("97.85").Mul(decimal.NewFromInt(10))
		want := value.Sub(fees.Charges(value, false))
		assert.True(t, out.CashDelta.Equal(want), "proceeds are net of sell charges")
	})

	t.Run("low equal to stop still triggers", func(t *testing.T) {
		today := mkBar("ACME", "2024-01-20", "99", "100", "97.85", "98", 1000)
		out := m.AdvanceLong(trade, today, box)
		assert.Equal(t, EventSell, out.Event)
	})

	t.Run("trigger takes priority over a raise", func(t *testing.T) {
		raised := types.Box{MinPrice: d("98.50"), MaxPrice: d("110")}
		today := mkBar("ACME", "2024-01-20", "99", "100", "97", "98", 1000)
		out := m.AdvanceLong(trade, today, raised)
		assert.Equal(t, EventSell, out.Event)
	})
}

func TestAdvanceLongStopRaise(t *testing.T) {
	m := NewPositionManager(persistentParams())
	trade := types.ActiveTrade{Ticker: "ACME", QtyOwned: 10, BuyPrice: d("103"), StopLossAmt: d("97.85")}
	today := mkBar("ACME", "2024-01-20", "105", "106", "104", "105", 1000)

	t.Run("box floor above stop raises it", func(t *testing.T) {
		box := types.Box{MinPrice: d("99"), MaxPrice: d("110")}
		out := m.AdvanceLong(trade, today, box)
		require.Equal(t, EventRaiseStop, out.Event)
		assert.True(t, out.StopLoss.Equal(d("99")))
	})

	t.Run("box floor below stop never lowers it", func(t *testing.T) {
		box := types.Box{MinPrice: d("95"), MaxPrice: d("110")}
		out := m.AdvanceLong(trade, today, box)
		assert.Equal(t, EventNone, out.Event)
	})

	t.Run("box floor equal to stop is a hold", func(t *testing.T) {
		box := types.Box{MinPrice: d("97.85"), MaxPrice: d("110")}
		out := m.AdvanceLong(trade, today, box)
		assert.Equal(t, EventNone, out.Event)
	})
}

func TestTryOpen(t *testing.T) {
	m := NewPositionManager(persistentParams())
	today := mkBar("ACME", "2024-01-18", "103", "104", "102", "103", 1000)

	t.Run("buys at the open with a derived stop", func(t *testing.T) {
		out := m.TryOpen(today, d("10000"))
		require.Equal(t, EventBuy, out.Event)
		assert.True(t, out.Price.Equal(d("103")))
		assert.True(t, out.StopLoss.Equal(d("97.85")), "stop = open * (1 - stop_loss_pct)")
		assert.Greater(t, out.Qty, int64(0))

		value := d("103").Mul(decimal.NewFromInt(out.Qty))
		cost := value.Add(fees.Charges(value, true))
		assert.True(t, cost.LessThanOrEqual(d("10000")), "sizing never exceeds the budget")
		assert.True(t, out.CashDelta.Equal(cost.Neg()))

		oneMore := d("103").Mul(decimal.NewFromInt(out.Qty + 1))
		assert.True(t, oneMore.Add(fees.Charges(oneMore, true)).GreaterThan(d("10000")),
			"sizing is maximal for the budget")
	})

	t.Run("budget below one share is unfunded", func(t *testing.T) {
		out := m.TryOpen(today, d("50"))
		assert.Equal(t, EventNone, out.Event)
	})

	t.Run("zero budget is unfunded", func(t *testing.T) {
		out := m.TryOpen(today, decimal.Zero)
		assert.Equal(t, EventNone, out.Event)
	})
}
