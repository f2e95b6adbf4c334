package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"darvas/internal/types"
)

func leaderWindow(highs []string, vols []int64) []types.Bar {
	bars := make([]types.Bar, len(highs))
	start := day("2024-01-01")
	for i := range highs {
		bars[i] = types.Bar{
			Ticker: "ACME",
			Date:   start.AddDate(0, 0, i),
			Open:   d("95"),
			High:   d(highs[i]),
			Low:    d("90"),
			Close:  d("95"),
			Volume: vols[i],
		}
	}
	return bars
}

func TestLeaderGateDisabled(t *testing.T) {
	g := NewLeaderGate(0)
	assert.False(t, g.Enabled())
	assert.True(t, g.Allows(nil, d("1")), "disabled gate allows everything")
}

func TestLeaderGateAllows(t *testing.T) {
	g := NewLeaderGate(5)

	t.Run("near high on elevated volume", func(t *testing.T) {
		window := leaderWindow(
			[]string{"100", "102", "101", "100", "99"},
			[]int64{1000, 1000, 1000, 1000, 2000},
		)
		// open 98 >= 0.95*102, prev vol 2000 >= 1.3*1000
		assert.True(t, g.Allows(window, d("98")))
	})

	t.Run("open too far below the high", func(t *testing.T) {
		window := leaderWindow(
			[]string{"100", "102", "101", "100", "99"},
			[]int64{1000, 1000, 1000, 1000, 2000},
		)
		assert.False(t, g.Allows(window, d("90")))
	})

	t.Run("volume not elevated", func(t *testing.T) {
		window := leaderWindow(
			[]string{"100", "102", "101", "100", "99"},
			[]int64{1000, 1000, 1000, 1000, 1100},
		)
		assert.False(t, g.Allows(window, d("98")))
	})

	t.Run("window too short", func(t *testing.T) {
		window := leaderWindow([]string{"100"}, []int64{1000})
		assert.False(t, g.Allows(window, d("98")))
	})
}
