package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"darvas/internal/types"
)

// History supplies ordered daily bars for a ticker. Implementations live in
// internal/store/history; the engine only depends on this surface.
type History interface {
	// BarOn returns the bar for the exact date, with ok=false when the
	// ticker did not trade that day.
	BarOn(ctx context.Context, ticker string, date time.Time) (types.Bar, bool, error)
	// GetBars returns the lookback most recent bars strictly before end,
	// oldest first. Fails with types.ErrInsufficientHistory when fewer exist.
	GetBars(ctx context.Context, ticker string, end time.Time, lookback int) ([]types.Bar, error)
	// RecentBars is the lenient variant of GetBars: it returns up to n bars
	// strictly before end, oldest first, and never fails on short history.
	RecentBars(ctx context.Context, ticker string, end time.Time, n int) ([]types.Bar, error)
}

// StateStore persists the engine's per-ticker state. Commit applies one
// evaluation's effects as a single transaction; partial application of a
// Mutation is a correctness violation.
type StateStore interface {
	ActiveBox(ctx context.Context, ticker string) (*types.Box, error)
	TickerState(ctx context.Context, ticker string) (*types.StrategyState, error)
	Trade(ctx context.Context, ticker string) (*types.ActiveTrade, error)
	// AvailableCash resolves the wallet mode internally: the global pool or
	// the ticker's own allocation.
	AvailableCash(ctx context.Context, ticker string) (decimal.Decimal, error)
	Commit(ctx context.Context, mut Mutation) error
}

// Mutation is the full set of state changes one Evaluate call produces.
type Mutation struct {
	Ticker string
	Date   time.Time

	// Boxes are upserted in order: ID zero inserts a new row, a set ID
	// updates that row (bound refresh, end-dating, deactivation).
	Boxes []types.Box

	State *types.StrategyState

	CreateTrade *types.ActiveTrade
	NewStopLoss *decimal.Decimal
	DeleteTrade bool

	Txn *types.Transaction

	// CashDelta is applied to the wallet (or the ticker allocation,
	// depending on wallet mode): negative on buy, positive on sell.
	CashDelta decimal.Decimal

	LogLevel   string
	LogMessage string
	Decision   *types.Decision
}
