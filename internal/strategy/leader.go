package strategy

import (
	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"

	"darvas/internal/types"
)

// LeaderGate is the optional leadership filter applied before a breakout is
// allowed to become a buy: the ticker must be trading near its lookback high
// on elevated volume. Disabled when lookback is zero.
type LeaderGate struct {
	lookback int
}

func NewLeaderGate(lookbackDays int) *LeaderGate {
	return &LeaderGate{lookback: lookbackDays}
}

// Enabled reports whether the gate participates in buy decisions.
func (g *LeaderGate) Enabled() bool { return g.lookback > 0 }

// Lookback returns the gate's window size in trading days.
func (g *LeaderGate) Lookback() int { return g.lookback }

// Allows checks both leadership conditions against the lookback window
// (oldest first, strictly before the evaluation day):
//   - price: today's open within 5% of the window's max high
//   - volume: the previous day's volume at least 30% above the average of
//     the rest of the window
//
// The gate is a screening heuristic, not bookkeeping, so it runs on floats.
func (g *LeaderGate) Allows(window []types.Bar, todayOpen decimal.Decimal) bool {
	if !g.Enabled() {
		return true
	}
	if len(window) < 2 {
		return false
	}

	highs := make([]float64, len(window))
	vols := make([]float64, len(window))
	for i, bar := range window {
		highs[i], _ = bar.High.Float64()
		vols[i] = float64(bar.Volume)
	}

	maxHigh := talib.Max(highs, len(highs))[len(highs)-1]
	open, _ := todayOpen.Float64()
	priceOK := maxHigh > 0 && open >= 0.95*maxHigh

	prevVol := vols[len(vols)-1]
	rest := vols[:len(vols)-1]
	avgVol := talib.Sma(rest, len(rest))[len(rest)-1]
	volumeOK := avgVol > 0 && prevVol >= 1.3*avgVol

	return priceOK && volumeOK
}
