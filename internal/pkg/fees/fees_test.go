package fees

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCharges(t *testing.T) {
	t.Run("brokerage floor", func(t *testing.T) {
		// 0.1% of 1000 = 1, clamped up to 5. STT 1, turnover 0.001,
		// stamp duty 1 on the buy side.
		got := Charges(d("1000"), true)
		assert.True(t, got.Equal(d("7.001")), "got %s", got)
	})

	t.Run("brokerage cap", func(t *testing.T) {
		// 0.1% of 100000 = 100, clamped down to 20.
		got := Charges(d("100000"), true)
		assert.True(t, got.Equal(d("220.1")), "got %s", got)
	})

	t.Run("no stamp duty on sells", func(t *testing.T) {
		buy := Charges(d("10000"), true)
		sell := Charges(d("10000"), false)
		assert.True(t, buy.Sub(sell).Equal(d("10")), "stamp duty is 0.1% of value")
	})
}

func TestMaxAffordableQty(t *testing.T) {
	t.Run("fees shrink the naive qty", func(t *testing.T) {
		// 10000/103 truncates to 97, but 97 shares plus charges
		// overshoot the budget.
		qty := MaxAffordableQty(d("10000"), d("103"))
		assert.Equal(t, int64(96), qty)
	})

	t.Run("budget below one share", func(t *testing.T) {
		assert.Equal(t, int64(0), MaxAffordableQty(d("100"), d("103")))
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		assert.Equal(t, int64(0), MaxAffordableQty(d("0"), d("103")))
		assert.Equal(t, int64(0), MaxAffordableQty(d("1000"), d("0")))
	})
}
