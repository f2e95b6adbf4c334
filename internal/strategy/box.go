package strategy

import (
	"github.com/shopspring/decimal"

	"darvas/internal/types"
)

// BoxTracker maintains the active box per ticker: min(low)/max(high) over
// the box_length bars strictly before the evaluation day.
type BoxTracker struct {
	params Params
}

func NewBoxTracker(params Params) *BoxTracker {
	return &BoxTracker{params: params}
}

// BoxUpdate describes what happened to the ticker's box this evaluation.
type BoxUpdate struct {
	Box         types.Box  // the box decisions are made against
	Closed      *types.Box // the previous box, end-dated, when Replaced
	Created     bool       // Box is brand new (no box was active)
	Replaced    bool       // the previous box was closed and Box opened
	Refreshed   bool       // the active box's bounds were recomputed in place
	Invalidated bool       // fancy-mode band exit; the streak must reset
}

// Update recomputes the box for one evaluation. window holds the box_length
// bars strictly before the evaluation day, oldest first; today is the
// evaluation day's bar. heightPct is the ticker's fancy-band half-width on
// top of the configured buffer.
func (t *BoxTracker) Update(active *types.Box, window []types.Bar, today types.Bar, heightPct decimal.Decimal) BoxUpdate {
	minLow, maxHigh := windowBounds(window)

	if active == nil {
		return BoxUpdate{
			Box:     newBox(today.Ticker, window, minLow, maxHigh),
			Created: true,
		}
	}

	if t.params.fancy() && outsideBand(today.Close, active.BaseClose, t.params.BufferPct.Add(heightPct)) {
		prev := window[len(window)-1]
		end := types.Day(prev.Date)
		closed := *active
		closed.EndDate = &end
		closed.IsActive = false

		replacement := types.Box{
			Ticker:    today.Ticker,
			StartDate: types.Day(today.Date),
			MinPrice:  minLow,
			MaxPrice:  maxHigh,
			BaseClose: prev.Close,
			IsActive:  true,
		}
		return BoxUpdate{Box: replacement, Closed: &closed, Replaced: true, Invalidated: true}
	}

	refreshed := *active
	refreshed.MinPrice = minLow
	refreshed.MaxPrice = maxHigh
	return BoxUpdate{
		Box:       refreshed,
		Refreshed: !active.MinPrice.Equal(minLow) || !active.MaxPrice.Equal(maxHigh),
	}
}

func newBox(ticker string, window []types.Bar, minLow, maxHigh decimal.Decimal) types.Box {
	oldest := window[0]
	return types.Box{
		Ticker:    ticker,
		StartDate: types.Day(oldest.Date),
		MinPrice:  minLow,
		MaxPrice:  maxHigh,
		BaseClose: oldest.Close,
		IsActive:  true,
	}
}

func windowBounds(window []types.Bar) (minLow, maxHigh decimal.Decimal) {
	minLow, maxHigh = window[0].Low, window[0].High
	for _, bar := range window[1:] {
		if bar.Low.LessThan(minLow) {
			minLow = bar.Low
		}
		if bar.High.GreaterThan(maxHigh) {
			maxHigh = bar.High
		}
	}
	return minLow, maxHigh
}

func outsideBand(close, base, halfWidth decimal.Decimal) bool {
	one := decimal.NewFromInt(1)
	lower := base.Mul(one.Sub(halfWidth))
	upper := base.Mul(one.Add(halfWidth))
	return close.LessThan(lower) || close.GreaterThan(upper)
}
