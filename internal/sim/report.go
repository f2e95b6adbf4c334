package sim

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"darvas/internal/types"
)

// capitalGainsRate is applied to positive realized gains in the final report.
var capitalGainsRate = decimal.RequireFromString("0.20")

// Report is the final accounting of one run.
type Report struct {
	RunID       string          `json:"run_id"`
	Profile     string          `json:"profile"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	InitialCash decimal.Decimal `json:"initial_cash"`
	FinalCash   decimal.Decimal `json:"final_cash"`

	// PositionsValue marks open positions at their last close on or before
	// the run's end date; InvestedCost is what those positions cost to open.
	PositionsValue  decimal.Decimal `json:"positions_value"`
	InvestedCost    decimal.Decimal `json:"invested_cost"`
	RealizedGains   decimal.Decimal `json:"realized_gains"`
	CapitalGainsTax decimal.Decimal `json:"capital_gains_tax"`
	FinalValue      decimal.Decimal `json:"final_value"`
	ReturnPct       decimal.Decimal `json:"return_pct"`

	Buys    int            `json:"buys"`
	Sells   int            `json:"sells"`
	Tickers []TickerReport `json:"tickers,omitempty"`
}

// TickerReport is one ticker's contribution to the run.
type TickerReport struct {
	Ticker        string          `json:"ticker"`
	Buys          int             `json:"buys"`
	Sells         int             `json:"sells"`
	RealizedGains decimal.Decimal `json:"realized_gains"`
	Open          *OpenPosition   `json:"open,omitempty"`
}

// OpenPosition describes a position still held at the end of the run.
type OpenPosition struct {
	Qty       int64           `json:"qty"`
	BuyPrice  decimal.Decimal `json:"buy_price"`
	LastClose decimal.Decimal `json:"last_close"`
	Value     decimal.Decimal `json:"value"`
}

func (s *Simulator) buildReport(ctx context.Context, req RunRequest, tickers []string) (Report, error) {
	report := Report{
		RunID:       req.RunID,
		Profile:     req.Profile,
		StartDate:   req.StartDate.Format(types.DateLayout),
		EndDate:     req.EndDate.Format(types.DateLayout),
		InitialCash: req.InitialCash,
	}

	cash, err := s.states.TotalCash(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("reading wallet: %w", err)
	}
	report.FinalCash = cash

	positions, err := s.states.Positions(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("reading positions: %w", err)
	}
	open := make(map[string]*OpenPosition, len(positions))
	for _, pos := range positions {
		bar, ok, err := s.history.LastBarUpTo(ctx, pos.Ticker, req.EndDate)
		if err != nil {
			return Report{}, err
		}
		if !ok {
			return Report{}, fmt.Errorf("no bars for open position %s", pos.Ticker)
		}
		value := bar.Close.Mul(decimal.NewFromInt(pos.QtyOwned))
		open[pos.Ticker] = &OpenPosition{
			Qty:       pos.QtyOwned,
			BuyPrice:  pos.BuyPrice,
			LastClose: bar.Close,
			Value:     value,
		}
		report.PositionsValue = report.PositionsValue.Add(value)
		report.InvestedCost = report.InvestedCost.Add(pos.BuyPrice.Mul(decimal.NewFromInt(pos.QtyOwned)))
	}

	for _, ticker := range tickers {
		tr, err := s.tickerReport(ctx, ticker, open[ticker])
		if err != nil {
			return Report{}, err
		}
		if tr.Buys == 0 && tr.Sells == 0 && tr.Open == nil {
			continue
		}
		report.Buys += tr.Buys
		report.Sells += tr.Sells
		report.RealizedGains = report.RealizedGains.Add(tr.RealizedGains)
		report.Tickers = append(report.Tickers, tr)
	}

	if report.RealizedGains.IsPositive() {
		report.CapitalGainsTax = report.RealizedGains.Mul(capitalGainsRate)
	}
	report.FinalValue = report.FinalCash.Add(report.PositionsValue).Sub(report.CapitalGainsTax)
	if req.InitialCash.IsPositive() {
		report.ReturnPct = report.FinalValue.Sub(req.InitialCash).
			Div(req.InitialCash).Mul(decimal.NewFromInt(100)).Round(4)
	}
	return report, nil
}

// tickerReport folds the ticker's transaction history. Every sell closes the
// whole position opened by the preceding buy, so realized gains pair each
// sell with the buy before it.
func (s *Simulator) tickerReport(ctx context.Context, ticker string, open *OpenPosition) (TickerReport, error) {
	txns, err := s.states.Transactions(ctx, ticker, 0)
	if err != nil {
		return TickerReport{}, err
	}
	// Newest first from the store; fold oldest first.
	tr := TickerReport{Ticker: ticker, Open: open}
	var lastBuy decimal.Decimal
	for i := len(txns) - 1; i >= 0; i-- {
		txn := txns[i]
		value := txn.Price.Mul(decimal.NewFromInt(txn.Qty))
		switch txn.Side {
		case types.TxnBuy:
			tr.Buys++
			lastBuy = value
		case types.TxnSell:
			tr.Sells++
			tr.RealizedGains = tr.RealizedGains.Add(value.Sub(lastBuy))
		}
	}
	return tr, nil
}
