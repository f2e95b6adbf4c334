package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darvas/internal/config"
	"darvas/internal/store/model"
	"darvas/internal/strategy"
	"darvas/internal/types"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := types.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func openStore(t *testing.T, walletMode string) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "state.db"), walletMode)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCommitAppliesAllRows(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, config.WalletModeGlobal)
	require.NoError(t, s.InitWallet(ctx, d("100000"), nil))

	date := day("2024-01-18")
	price := d("103")
	dec := types.Decision{Ticker: "ACME", Date: date, Action: types.ActionBuy, Price: &price, Qty: 96}
	mut := strategy.Mutation{
		Ticker: "ACME",
		Date:   date,
		Boxes: []types.Box{{
			Ticker:    "ACME",
			StartDate: day("2024-01-01"),
			MinPrice:  d("90"),
			MaxPrice:  d("100"),
			BaseClose: d("95"),
			IsActive:  true,
		}},
		State:       &types.StrategyState{Ticker: "ACME", BreakoutStreak: 0, HeightPct: decimal.Zero, LastEvaluated: &date},
		CreateTrade: &types.ActiveTrade{Ticker: "ACME", QtyOwned: 96, BuyPrice: price, StopLossAmt: d("97.85")},
		Txn:         &types.Transaction{Date: date, Ticker: "ACME", Side: types.TxnBuy, Price: price, Qty: 96},
		CashDelta:   d("-9917.67"),
		LogLevel:    "INFO",
		LogMessage:  "BUY: breakout threshold reached",
		Decision:    &dec,
	}
	require.NoError(t, s.Commit(ctx, mut))

	box, err := s.ActiveBox(ctx, "ACME")
	require.NoError(t, err)
	require.NotNil(t, box)
	assert.True(t, box.MaxPrice.Equal(d("100")))
	assert.NotZero(t, box.ID)

	state, err := s.TickerState(ctx, "ACME")
	require.NoError(t, err)
	require.NotNil(t, state)
	require.NotNil(t, state.LastEvaluated)
	assert.Equal(t, date, *state.LastEvaluated)

	trade, err := s.Trade(ctx, "ACME")
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.True(t, trade.StopLossAmt.Equal(d("97.85")))

	cash, err := s.AvailableCash(ctx, "ACME")
	require.NoError(t, err)
	assert.True(t, cash.Equal(d("90082.33")), "cash moves exactly by the delta")

	txns, err := s.Transactions(ctx, "ACME", 0)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, types.TxnBuy, txns[0].Side)

	logs, err := s.EvalLogs(ctx, "ACME", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "INFO", logs[0].Level)
	assert.NotEmpty(t, logs[0].DecisionJSON)
}

func TestCommitUpdatesExistingRows(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, config.WalletModeGlobal)
	require.NoError(t, s.InitWallet(ctx, d("1000"), nil))

	first := strategy.Mutation{
		Ticker: "ACME",
		Date:   day("2024-01-16"),
		Boxes: []types.Box{{
			Ticker: "ACME", StartDate: day("2024-01-01"),
			MinPrice: d("90"), MaxPrice: d("100"), BaseClose: d("95"), IsActive: true,
		}},
		State:      &types.StrategyState{Ticker: "ACME", BreakoutStreak: 1, HeightPct: decimal.Zero},
		LogMessage: "NOP",
		LogLevel:   "INFO",
	}
	require.NoError(t, s.Commit(ctx, first))

	box, err := s.ActiveBox(ctx, "ACME")
	require.NoError(t, err)
	require.NotNil(t, box)

	// Refresh the same box row and bump the streak.
	box.MinPrice = d("88")
	box.MaxPrice = d("104")
	second := strategy.Mutation{
		Ticker:     "ACME",
		Date:       day("2024-01-17"),
		Boxes:      []types.Box{*box},
		State:      &types.StrategyState{Ticker: "ACME", BreakoutStreak: 2, HeightPct: decimal.Zero},
		LogMessage: "NOP",
		LogLevel:   "INFO",
	}
	require.NoError(t, s.Commit(ctx, second))

	again, err := s.ActiveBox(ctx, "ACME")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, box.ID, again.ID, "refresh does not create a second row")
	assert.True(t, again.MinPrice.Equal(d("88")))

	state, err := s.TickerState(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, 2, state.BreakoutStreak)

	boxes, err := s.Boxes(ctx, "ACME")
	require.NoError(t, err)
	assert.Len(t, boxes, 1)
}

func TestCommitClosesBoxAndTrade(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, config.WalletModeGlobal)
	require.NoError(t, s.InitWallet(ctx, d("1000"), nil))

	open := strategy.Mutation{
		Ticker: "ACME",
		Date:   day("2024-01-16"),
		Boxes: []types.Box{{
			Ticker: "ACME", StartDate: day("2024-01-01"),
			MinPrice: d("90"), MaxPrice: d("100"), BaseClose: d("95"), IsActive: true,
		}},
		CreateTrade: &types.ActiveTrade{Ticker: "ACME", QtyOwned: 5, BuyPrice: d("103"), StopLossAmt: d("97.85")},
		LogMessage:  "BUY",
		LogLevel:    "INFO",
	}
	require.NoError(t, s.Commit(ctx, open))

	box, err := s.ActiveBox(ctx, "ACME")
	require.NoError(t, err)
	end := day("2024-01-20")
	box.EndDate = &end
	box.IsActive = false

	closeMut := strategy.Mutation{
		Ticker:      "ACME",
		Date:        end,
		Boxes:       []types.Box{*box},
		DeleteTrade: true,
		CashDelta:   d("489.25"),
		LogMessage:  "SELL",
		LogLevel:    "INFO",
	}
	require.NoError(t, s.Commit(ctx, closeMut))

	gone, err := s.ActiveBox(ctx, "ACME")
	require.NoError(t, err)
	assert.Nil(t, gone)

	trade, err := s.Trade(ctx, "ACME")
	require.NoError(t, err)
	assert.Nil(t, trade)

	cash, err := s.TotalCash(ctx)
	require.NoError(t, err)
	assert.True(t, cash.Equal(d("1489.25")))
}

func TestCommitRejectsOverdraw(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, config.WalletModeGlobal)
	require.NoError(t, s.InitWallet(ctx, d("100"), nil))

	mut := strategy.Mutation{
		Ticker:     "ACME",
		Date:       day("2024-01-16"),
		Txn:        &types.Transaction{Date: day("2024-01-16"), Ticker: "ACME", Side: types.TxnBuy, Price: d("103"), Qty: 5},
		CashDelta:  d("-515"),
		LogMessage: "BUY",
		LogLevel:   "INFO",
	}
	err := s.Commit(ctx, mut)
	require.ErrorIs(t, err, types.ErrInsufficientCash)

	txns, err := s.Transactions(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, txns, "the failed commit rolled back every row")

	cash, err := s.AvailableCash(ctx, "ACME")
	require.NoError(t, err)
	assert.True(t, cash.Equal(d("100")))
}

func TestPerTickerWallet(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, config.WalletModePerTicker)
	require.NoError(t, s.InitWallet(ctx, d("1000"), []string{"AAA", "BBB"}))

	cash, err := s.AvailableCash(ctx, "AAA")
	require.NoError(t, err)
	assert.True(t, cash.Equal(d("500")), "initial cash split evenly")

	mut := strategy.Mutation{
		Ticker:     "AAA",
		Date:       day("2024-01-16"),
		CashDelta:  d("-200"),
		LogMessage: "BUY",
		LogLevel:   "INFO",
	}
	require.NoError(t, s.Commit(ctx, mut))

	cash, err = s.AvailableCash(ctx, "AAA")
	require.NoError(t, err)
	assert.True(t, cash.Equal(d("300")), "only the ticker's pool moves")

	other, err := s.AvailableCash(ctx, "BBB")
	require.NoError(t, err)
	assert.True(t, other.Equal(d("500")))

	total, err := s.TotalCash(ctx)
	require.NoError(t, err)
	assert.True(t, total.Equal(d("800")))
}

func TestRunsLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, config.WalletModeGlobal)

	run := model.RunModel{
		ID:          "run-1",
		Profile:     "default",
		StartDate:   "2024-01-01",
		EndDate:     "2024-06-30",
		InitialCash: "100000",
	}
	require.NoError(t, s.CreateRun(ctx, run))

	got, found, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, RunStatusRunning, got.Status)

	report := map[string]any{"return_pct": 12.5}
	require.NoError(t, s.CompleteRun(ctx, "run-1", RunStatusCompleted, "", report))

	got, found, err = s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.NotEmpty(t, got.ReportJSON)

	_, found, err = s.GetRun(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, found)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestResetClearsMutableState(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, config.WalletModeGlobal)
	require.NoError(t, s.InitWallet(ctx, d("1000"), nil))
	require.NoError(t, s.Commit(ctx, strategy.Mutation{
		Ticker:     "ACME",
		Date:       day("2024-01-16"),
		State:      &types.StrategyState{Ticker: "ACME", BreakoutStreak: 1, HeightPct: decimal.Zero},
		LogMessage: "NOP",
		LogLevel:   "INFO",
	}))
	require.NoError(t, s.CreateRun(ctx, model.RunModel{ID: "run-1", Profile: "default"}))

	require.NoError(t, s.Reset(ctx))

	state, err := s.TickerState(ctx, "ACME")
	require.NoError(t, err)
	assert.Nil(t, state)

	_, found, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, found, "run records survive a reset")
}
