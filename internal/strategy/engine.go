package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"darvas/internal/logger"
	"darvas/internal/types"
)

// Engine composes the box tracker, breakout detector, streak counter and
// position manager into the single public operation Evaluate. One decision
// per (ticker, date); every state change of a call is committed atomically.
type Engine struct {
	params  Params
	history History
	states  StateStore
	boxes   *BoxTracker
	streaks *StreakCounter
	gate    *LeaderGate
	manager *PositionManager
}

func NewEngine(params Params, history History, states StateStore) *Engine {
	return &Engine{
		params:  params,
		history: history,
		states:  states,
		boxes:   NewBoxTracker(params),
		streaks: NewStreakCounter(params.StackSize),
		gate:    NewLeaderGate(params.LeaderLookbackDays),
		manager: NewPositionManager(params),
	}
}

// Evaluate produces the decision for one ticker-day.
//
// A date at or before the ticker's last evaluated date fails with
// types.ErrDuplicateEvaluation and mutates nothing. Missing or short history
// yields NOP without mutating state. Everything else runs the full pipeline
// and commits the resulting Mutation in one transaction.
func (e *Engine) Evaluate(ctx context.Context, ticker string, date time.Time) (types.Decision, error) {
	date = types.Day(date)

	state, err := e.states.TickerState(ctx, ticker)
	if err != nil {
		return types.Decision{}, err
	}
	trade, err := e.states.Trade(ctx, ticker)
	if err != nil {
		return types.Decision{}, err
	}
	if trade != nil && state == nil {
		return types.Decision{}, fmt.Errorf("%w: %s holds a trade but has no strategy state", types.ErrInconsistentState, ticker)
	}
	if state != nil && state.LastEvaluated != nil && !date.After(*state.LastEvaluated) {
		return types.Decision{}, fmt.Errorf("%w: %s on %s", types.ErrDuplicateEvaluation, ticker, date.Format(types.DateLayout))
	}
	if state == nil {
		state = &types.StrategyState{Ticker: ticker, HeightPct: e.params.DefaultHeightPct}
	}

	today, ok, err := e.history.BarOn(ctx, ticker, date)
	if err != nil {
		return types.Decision{}, err
	}
	if !ok {
		return types.Nop(ticker, date, "no bar for date"), nil
	}

	window, err := e.history.GetBars(ctx, ticker, date, e.params.BoxLength)
	if errors.Is(err, types.ErrInsufficientHistory) {
		logger.Debugf("%s %s: insufficient history for box (need %d bars)", ticker, date.Format(types.DateLayout), e.params.BoxLength)
		return types.Nop(ticker, date, "insufficient history"), nil
	}
	if err != nil {
		return types.Decision{}, err
	}

	activeBox, err := e.states.ActiveBox(ctx, ticker)
	if err != nil {
		return types.Decision{}, err
	}

	upd := e.boxes.Update(activeBox, window, today, state.HeightPct)

	mut := Mutation{Ticker: ticker, Date: date}
	if upd.Closed != nil {
		mut.Boxes = append(mut.Boxes, *upd.Closed)
	}
	mut.Boxes = append(mut.Boxes, upd.Box)

	var dec types.Decision
	if trade != nil {
		dec = e.advanceLong(&mut, state, *trade, today, upd.Box)
	} else {
		dec, err = e.advanceFlat(ctx, &mut, state, upd, today)
		if err != nil {
			return types.Decision{}, err
		}
	}

	state.LastEvaluated = &date
	mut.State = state
	mut.Decision = &dec
	if mut.LogLevel == "" {
		mut.LogLevel = "INFO"
	}
	if mut.LogMessage == "" {
		mut.LogMessage = fmt.Sprintf("%s: %s", dec.Action, dec.Reason)
	}
	if err := e.states.Commit(ctx, mut); err != nil {
		return types.Decision{}, fmt.Errorf("committing evaluation for %s on %s: %w", ticker, date.Format(types.DateLayout), err)
	}
	return dec, nil
}

// advanceLong handles an open position: stop trigger, stop raise, or hold.
// Breakouts are ignored while LONG; streak tracking is suspended.
func (e *Engine) advanceLong(mut *Mutation, state *types.StrategyState, trade types.ActiveTrade, today types.Bar, box types.Box) types.Decision {
	out := e.manager.AdvanceLong(trade, today, box)
	ticker, date := trade.Ticker, types.Day(today.Date)
	switch out.Event {
	case EventSell:
		mut.DeleteTrade = true
		mut.Txn = &types.Transaction{Date: date, Ticker: ticker, Side: types.TxnSell, Price: out.Price, Qty: out.Qty}
		mut.CashDelta = out.CashDelta
		if out.Loss {
			state.LossCarryover = true
			if e.params.HeightIncrementPct.Sign() > 0 {
				state.HeightPct = state.HeightPct.Add(e.params.HeightIncrementPct)
			}
		}
		price := out.Price
		return types.Decision{Ticker: ticker, Date: date, Action: types.ActionSell, Price: &price, Qty: out.Qty, Reason: out.Reason}
	case EventRaiseStop:
		stop := out.StopLoss
		mut.NewStopLoss = &stop
		return types.Decision{Ticker: ticker, Date: date, Action: types.ActionUpdateSL, StopLossAmt: &stop, Reason: out.Reason}
	default:
		return types.Nop(ticker, date, out.Reason)
	}
}

// advanceFlat handles a flat ticker: streak accounting, leader gating and
// the buy transition.
func (e *Engine) advanceFlat(ctx context.Context, mut *Mutation, state *types.StrategyState, upd BoxUpdate, today types.Bar) (types.Decision, error) {
	ticker, date := today.Ticker, types.Day(today.Date)
	if upd.Invalidated {
		state.BreakoutStreak = 0
	}

	breakout := IsBreakout(today.Open, upd.Box, e.params.BufferPct)
	state.BreakoutStreak = e.streaks.RecordDay(state.BreakoutStreak, breakout)
	if !breakout {
		return types.Nop(ticker, date, "open within box"), nil
	}
	if state.BreakoutStreak < e.params.StackSize {
		return types.Nop(ticker, date, fmt.Sprintf("breakout streak %d/%d", state.BreakoutStreak, e.params.StackSize)), nil
	}

	if e.gate.Enabled() {
		leaderWindow, err := e.history.RecentBars(ctx, ticker, date, e.gate.Lookback())
		if err != nil {
			return types.Decision{}, err
		}
		if !e.gate.Allows(leaderWindow, today.Open) {
			return types.Nop(ticker, date, "leader gating failed"), nil
		}
	}

	cash, err := e.states.AvailableCash(ctx, ticker)
	if err != nil {
		return types.Decision{}, err
	}
	budget := cash
	if budget.GreaterThan(e.params.CapPerStock) {
		budget = e.params.CapPerStock
	}
	out := e.manager.TryOpen(today, budget)
	if out.Event != EventBuy {
		// Qualifying signal without funds downgrades to NOP, never fails.
		mut.LogLevel = "WARNING"
		mut.LogMessage = fmt.Sprintf("missed buy: %v available, open %s", cash, today.Open)
		logger.Warnf("%s %s: missed buy opportunity, %s", ticker, date.Format(types.DateLayout), types.ErrInsufficientCash)
		return types.Nop(ticker, date, "insufficient cash"), nil
	}

	state.BreakoutStreak = 0
	state.LossCarryover = false
	// The broken box closes with the trade; a fresh one starts next call.
	last := len(mut.Boxes) - 1
	mut.Boxes[last].EndDate = &date
	mut.Boxes[last].IsActive = false

	stop := out.StopLoss
	price := out.Price
	mut.CreateTrade = &types.ActiveTrade{Ticker: ticker, QtyOwned: out.Qty, BuyPrice: out.Price, StopLossAmt: out.StopLoss}
	mut.Txn = &types.Transaction{Date: date, Ticker: ticker, Side: types.TxnBuy, Price: out.Price, Qty: out.Qty}
	mut.CashDelta = out.CashDelta
	return types.Decision{
		Ticker: ticker, Date: date,
		Action:      types.ActionBuy,
		Price:       &price,
		Qty:         out.Qty,
		StopLossAmt: &stop,
		Reason:      out.Reason,
	}, nil
}
