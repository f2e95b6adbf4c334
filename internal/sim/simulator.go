// Package sim replays the decision engine over stored history, one run at a
// time, and produces the final portfolio report.
package sim

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"darvas/internal/config"
	"darvas/internal/logger"
	"darvas/internal/strategy"
	"darvas/internal/types"
)

// HistorySource is the history store surface the simulator needs.
type HistorySource interface {
	strategy.History
	Tickers(ctx context.Context) ([]string, error)
	TradingDates(ctx context.Context, start, end time.Time) ([]time.Time, error)
	LastBarUpTo(ctx context.Context, ticker string, date time.Time) (types.Bar, bool, error)
}

// StateBackend is the state store surface the simulator needs.
type StateBackend interface {
	strategy.StateStore
	Reset(ctx context.Context) error
	InitWallet(ctx context.Context, initialCash decimal.Decimal, tickers []string) error
	TotalCash(ctx context.Context) (decimal.Decimal, error)
	Positions(ctx context.Context) ([]types.ActiveTrade, error)
	Transactions(ctx context.Context, ticker string, limit int) ([]types.Transaction, error)
}

// RunRequest is one fully-resolved simulation.
type RunRequest struct {
	RunID         string
	Profile       string
	Params        strategy.Params
	WalletMode    string
	StartDate     time.Time
	EndDate       time.Time
	InitialCash   decimal.Decimal
	MaxConcurrent int
	Tickers       []string // empty means every ticker in history
}

type Simulator struct {
	history HistorySource
	states  StateBackend
}

func New(history HistorySource, states StateBackend) *Simulator {
	return &Simulator{history: history, states: states}
}

// Run resets run state, replays every trading date in range and returns the
// report. With a global wallet the walk is date-major and strictly
// sequential, so tickers compete for cash in a deterministic order. With
// per-ticker wallets the pools are independent and tickers replay their full
// date range in parallel, bounded by MaxConcurrent.
func (s *Simulator) Run(ctx context.Context, req RunRequest) (Report, error) {
	tickers := req.Tickers
	if len(tickers) == 0 {
		var err error
		tickers, err = s.history.Tickers(ctx)
		if err != nil {
			return Report{}, fmt.Errorf("listing tickers: %w", err)
		}
	}
	if len(tickers) == 0 {
		return Report{}, fmt.Errorf("no tickers in history")
	}
	sort.Strings(tickers)

	dates, err := s.history.TradingDates(ctx, req.StartDate, req.EndDate)
	if err != nil {
		return Report{}, fmt.Errorf("listing trading dates: %w", err)
	}
	if len(dates) == 0 {
		return Report{}, fmt.Errorf("no trading dates between %s and %s",
			req.StartDate.Format(types.DateLayout), req.EndDate.Format(types.DateLayout))
	}

	if err := s.states.Reset(ctx); err != nil {
		return Report{}, fmt.Errorf("resetting state: %w", err)
	}
	if err := s.states.InitWallet(ctx, req.InitialCash, tickers); err != nil {
		return Report{}, fmt.Errorf("seeding wallet: %w", err)
	}

	engine := strategy.NewEngine(req.Params, s.history, s.states)
	logger.Infof("run %s: %d tickers, %d trading days (%s mode wallet)",
		req.RunID, len(tickers), len(dates), req.WalletMode)

	if req.WalletMode == config.WalletModePerTicker {
		err = s.replayParallel(ctx, engine, tickers, dates, req.MaxConcurrent)
	} else {
		err = s.replaySequential(ctx, engine, tickers, dates)
	}
	if err != nil {
		return Report{}, err
	}

	return s.buildReport(ctx, req, tickers)
}

func (s *Simulator) replaySequential(ctx context.Context, engine *strategy.Engine, tickers []string, dates []time.Time) error {
	for _, date := range dates {
		for _, ticker := range tickers {
			if _, err := engine.Evaluate(ctx, ticker, date); err != nil {
				return fmt.Errorf("evaluating %s on %s: %w", ticker, date.Format(types.DateLayout), err)
			}
		}
	}
	return nil
}

func (s *Simulator) replayParallel(ctx context.Context, engine *strategy.Engine, tickers []string, dates []time.Time, maxConcurrent int) error {
	g, ctx := errgroup.WithContext(ctx)
	if maxConcurrent > 0 {
		g.SetLimit(maxConcurrent)
	}
	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			for _, date := range dates {
				if _, err := engine.Evaluate(ctx, ticker, date); err != nil {
					return fmt.Errorf("evaluating %s on %s: %w", ticker, date.Format(types.DateLayout), err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}
