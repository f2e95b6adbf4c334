package state

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"darvas/internal/config"
	"darvas/internal/store/model"
	"darvas/internal/types"
)

// Positions lists every open trade.
func (s *Store) Positions(ctx context.Context) ([]types.ActiveTrade, error) {
	var rows []model.ActiveTradeModel
	if err := s.db.WithContext(ctx).Order("ticker").Find(&rows).Error; err != nil {
		return nil, err
	}
	trades := make([]types.ActiveTrade, 0, len(rows))
	for _, row := range rows {
		trade, err := tradeFromModel(row)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

// Transactions lists executed trades, newest first. ticker filters when
// non-empty; limit <= 0 means no limit.
func (s *Store) Transactions(ctx context.Context, ticker string, limit int) ([]types.Transaction, error) {
	q := s.db.WithContext(ctx).Order("date DESC, id DESC")
	if ticker != "" {
		q = q.Where("ticker = ?", ticker)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []model.TransactionModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	txns := make([]types.Transaction, 0, len(rows))
	for _, row := range rows {
		date, err := types.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("corrupt transaction date %q: %w", row.Date, err)
		}
		price, err := parseDec(row.Price)
		if err != nil {
			return nil, err
		}
		txns = append(txns, types.Transaction{
			ID:     row.ID,
			Date:   date,
			Ticker: row.Ticker,
			Side:   types.TxnSide(row.Side),
			Price:  price,
			Qty:    row.Qty,
		})
	}
	return txns, nil
}

// EvalLogs returns audit-log rows, newest first. ticker filters when
// non-empty; limit <= 0 means no limit.
func (s *Store) EvalLogs(ctx context.Context, ticker string, limit int) ([]model.EvalLogModel, error) {
	q := s.db.WithContext(ctx).Order("date DESC, id DESC")
	if ticker != "" {
		q = q.Where("ticker = ?", ticker)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []model.EvalLogModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Boxes lists a ticker's box history, oldest first.
func (s *Store) Boxes(ctx context.Context, ticker string) ([]types.Box, error) {
	var rows []model.BoxModel
	err := s.db.WithContext(ctx).Where("ticker = ?", ticker).Order("id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	boxes := make([]types.Box, 0, len(rows))
	for _, row := range rows {
		box, err := boxFromModel(row)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}

// TotalCash sums the wallet: the single pool, or every ticker allocation.
func (s *Store) TotalCash(ctx context.Context) (decimal.Decimal, error) {
	db := s.db.WithContext(ctx)
	if s.walletMode == config.WalletModePerTicker {
		var rows []model.PortfolioCashModel
		if err := db.Find(&rows).Error; err != nil {
			return decimal.Zero, err
		}
		total := decimal.Zero
		for _, row := range rows {
			cash, err := parseDec(row.Cash)
			if err != nil {
				return decimal.Zero, err
			}
			total = total.Add(cash)
		}
		return total, nil
	}
	var row model.WalletModel
	if err := db.Where("id = ?", globalWalletID).First(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return parseDec(row.Cash)
}
