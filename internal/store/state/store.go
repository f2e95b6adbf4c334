// Package state persists the decision engine's mutable state (boxes, streaks,
// trades, wallet, audit log) behind a gorm + sqlite store. Every evaluation's
// effects are applied through Commit as a single transaction.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"darvas/internal/config"
	"darvas/internal/store/model"
	"darvas/internal/strategy"
	"darvas/internal/types"
)

const globalWalletID = 1

type Store struct {
	db         *gorm.DB
	walletMode string
}

// NewStore opens (or creates) the state database at path. walletMode decides
// whether cash is a single pool or partitioned per ticker.
func NewStore(path, walletMode string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("state store: path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(&sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	models := []interface{}{
		&model.BoxModel{},
		&model.StrategyStateModel{},
		&model.ActiveTradeModel{},
		&model.TransactionModel{},
		&model.WalletModel{},
		&model.PortfolioCashModel{},
		&model.EvalLogModel{},
		&model.RunModel{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: a little parallelism for HTTP reads, low lock contention.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db, walletMode: walletMode}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ strategy.StateStore = (*Store)(nil)

func (s *Store) ActiveBox(ctx context.Context, ticker string) (*types.Box, error) {
	var row model.BoxModel
	err := s.db.WithContext(ctx).
		Where("ticker = ? AND is_active = ?", ticker, true).
		Order("id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	box, err := boxFromModel(row)
	if err != nil {
		return nil, err
	}
	return &box, nil
}

func (s *Store) TickerState(ctx context.Context, ticker string) (*types.StrategyState, error) {
	var row model.StrategyStateModel
	err := s.db.WithContext(ctx).Where("ticker = ?", ticker).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	state, err := stateFromModel(row)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) Trade(ctx context.Context, ticker string) (*types.ActiveTrade, error) {
	var row model.ActiveTradeModel
	err := s.db.WithContext(ctx).Where("ticker = ?", ticker).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	trade, err := tradeFromModel(row)
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

// AvailableCash resolves the wallet mode: the global pool, or the ticker's
// own allocation. A missing row reads as zero.
func (s *Store) AvailableCash(ctx context.Context, ticker string) (decimal.Decimal, error) {
	return s.availableCash(s.db.WithContext(ctx), ticker)
}

func (s *Store) availableCash(tx *gorm.DB, ticker string) (decimal.Decimal, error) {
	var raw string
	var err error
	if s.walletMode == config.WalletModePerTicker {
		var row model.PortfolioCashModel
		err = tx.Where("ticker = ?", ticker).First(&row).Error
		raw = row.Cash
	} else {
		var row model.WalletModel
		err = tx.Where("id = ?", globalWalletID).First(&row).Error
		raw = row.Cash
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return parseDec(raw)
}

// Commit applies one evaluation's effects atomically: box upserts, state,
// trade lifecycle, transaction record, cash movement and the audit log row.
// An overdraw fails the whole transaction with types.ErrInsufficientCash.
func (s *Store) Commit(ctx context.Context, mut strategy.Mutation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, box := range mut.Boxes {
			row := boxToModel(box)
			if err := tx.Save(&row).Error; err != nil {
				return fmt.Errorf("saving box: %w", err)
			}
		}
		if mut.State != nil {
			row := stateToModel(*mut.State)
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "ticker"}},
				DoUpdates: clause.AssignmentColumns([]string{"breakout_streak", "height_pct", "last_evaluated", "loss_carryover"}),
			}).Create(&row).Error
			if err != nil {
				return fmt.Errorf("saving strategy state: %w", err)
			}
		}
		if mut.CreateTrade != nil {
			row := tradeToModel(*mut.CreateTrade)
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("creating trade: %w", err)
			}
		}
		if mut.NewStopLoss != nil {
			err := tx.Model(&model.ActiveTradeModel{}).
				Where("ticker = ?", mut.Ticker).
				Update("stop_loss_amt", mut.NewStopLoss.String()).Error
			if err != nil {
				return fmt.Errorf("raising stop: %w", err)
			}
		}
		if mut.DeleteTrade {
			err := tx.Where("ticker = ?", mut.Ticker).Delete(&model.ActiveTradeModel{}).Error
			if err != nil {
				return fmt.Errorf("closing trade: %w", err)
			}
		}
		if mut.Txn != nil {
			row := model.TransactionModel{
				Date:   mut.Txn.Date.Format(types.DateLayout),
				Ticker: mut.Txn.Ticker,
				Side:   string(mut.Txn.Side),
				Price:  mut.Txn.Price.String(),
				Qty:    mut.Txn.Qty,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("recording transaction: %w", err)
			}
		}
		if !mut.CashDelta.IsZero() {
			if err := s.applyCashDelta(tx, mut.Ticker, mut.CashDelta); err != nil {
				return err
			}
		}
		if mut.LogMessage != "" {
			entry := model.EvalLogModel{
				Date:    mut.Date.Format(types.DateLayout),
				Ticker:  mut.Ticker,
				Level:   mut.LogLevel,
				Message: mut.LogMessage,
			}
			if mut.Decision != nil {
				raw, err := json.Marshal(mut.Decision)
				if err != nil {
					return fmt.Errorf("encoding decision: %w", err)
				}
				entry.DecisionJSON = raw
			}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("writing eval log: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) applyCashDelta(tx *gorm.DB, ticker string, delta decimal.Decimal) error {
	cash, err := s.availableCash(tx, ticker)
	if err != nil {
		return err
	}
	next := cash.Add(delta)
	if next.IsNegative() {
		return fmt.Errorf("%w: %s available, %s required", types.ErrInsufficientCash, cash, delta.Neg())
	}
	if s.walletMode == config.WalletModePerTicker {
		return tx.Model(&model.PortfolioCashModel{}).
			Where("ticker = ?", ticker).
			Update("cash", next.String()).Error
	}
	return tx.Model(&model.WalletModel{}).
		Where("id = ?", globalWalletID).
		Update("cash", next.String()).Error
}

// InitWallet seeds the cash pools for a fresh run. In per-ticker mode the
// initial cash is split evenly across the tickers.
func (s *Store) InitWallet(ctx context.Context, initialCash decimal.Decimal, tickers []string) error {
	db := s.db.WithContext(ctx)
	if s.walletMode == config.WalletModePerTicker {
		if len(tickers) == 0 {
			return fmt.Errorf("per-ticker wallet needs at least one ticker")
		}
		share := initialCash.DivRound(decimal.NewFromInt(int64(len(tickers))), 8)
		for _, ticker := range tickers {
			row := model.PortfolioCashModel{Ticker: ticker, Cash: share.String()}
			err := db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "ticker"}},
				DoUpdates: clause.AssignmentColumns([]string{"cash"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	}
	row := model.WalletModel{ID: globalWalletID, Cash: initialCash.String()}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"cash"}),
	}).Create(&row).Error
}

// Reset clears all mutable run state. Completed run records are kept.
func (s *Store) Reset(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	for _, m := range []interface{}{
		&model.BoxModel{},
		&model.StrategyStateModel{},
		&model.ActiveTradeModel{},
		&model.TransactionModel{},
		&model.WalletModel{},
		&model.PortfolioCashModel{},
		&model.EvalLogModel{},
	} {
		if err := db.Where("1 = 1").Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}

func parseDec(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt decimal %q: %w", raw, err)
	}
	return v, nil
}

func boxToModel(b types.Box) model.BoxModel {
	row := model.BoxModel{
		ID:        b.ID,
		Ticker:    b.Ticker,
		StartDate: b.StartDate.Format(types.DateLayout),
		MinPrice:  b.MinPrice.String(),
		MaxPrice:  b.MaxPrice.String(),
		BaseClose: b.BaseClose.String(),
		IsActive:  b.IsActive,
	}
	if b.EndDate != nil {
		end := b.EndDate.Format(types.DateLayout)
		row.EndDate = &end
	}
	return row
}

func boxFromModel(row model.BoxModel) (types.Box, error) {
	start, err := types.ParseDate(row.StartDate)
	if err != nil {
		return types.Box{}, fmt.Errorf("corrupt box start date %q: %w", row.StartDate, err)
	}
	box := types.Box{
		ID:        row.ID,
		Ticker:    row.Ticker,
		StartDate: start,
		IsActive:  row.IsActive,
	}
	if row.EndDate != nil {
		end, err := types.ParseDate(*row.EndDate)
		if err != nil {
			return types.Box{}, fmt.Errorf("corrupt box end date %q: %w", *row.EndDate, err)
		}
		box.EndDate = &end
	}
	for _, field := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&box.MinPrice, row.MinPrice}, {&box.MaxPrice, row.MaxPrice}, {&box.BaseClose, row.BaseClose},
	} {
		v, err := parseDec(field.src)
		if err != nil {
			return types.Box{}, err
		}
		*field.dst = v
	}
	return box, nil
}

func stateToModel(st types.StrategyState) model.StrategyStateModel {
	row := model.StrategyStateModel{
		Ticker:         st.Ticker,
		BreakoutStreak: st.BreakoutStreak,
		HeightPct:      st.HeightPct.String(),
		LossCarryover:  st.LossCarryover,
	}
	if st.LastEvaluated != nil {
		last := st.LastEvaluated.Format(types.DateLayout)
		row.LastEvaluated = &last
	}
	return row
}

func stateFromModel(row model.StrategyStateModel) (types.StrategyState, error) {
	height, err := parseDec(row.HeightPct)
	if err != nil {
		return types.StrategyState{}, err
	}
	state := types.StrategyState{
		Ticker:         row.Ticker,
		BreakoutStreak: row.BreakoutStreak,
		HeightPct:      height,
		LossCarryover:  row.LossCarryover,
	}
	if row.LastEvaluated != nil {
		last, err := types.ParseDate(*row.LastEvaluated)
		if err != nil {
			return types.StrategyState{}, fmt.Errorf("corrupt last_evaluated %q: %w", *row.LastEvaluated, err)
		}
		state.LastEvaluated = &last
	}
	return state, nil
}

func tradeToModel(tr types.ActiveTrade) model.ActiveTradeModel {
	return model.ActiveTradeModel{
		Ticker:      tr.Ticker,
		QtyOwned:    tr.QtyOwned,
		BuyPrice:    tr.BuyPrice.String(),
		StopLossAmt: tr.StopLossAmt.String(),
	}
}

func tradeFromModel(row model.ActiveTradeModel) (types.ActiveTrade, error) {
	buy, err := parseDec(row.BuyPrice)
	if err != nil {
		return types.ActiveTrade{}, err
	}
	stop, err := parseDec(row.StopLossAmt)
	if err != nil {
		return types.ActiveTrade{}, err
	}
	return types.ActiveTrade{
		Ticker:      row.Ticker,
		QtyOwned:    row.QtyOwned,
		BuyPrice:    buy,
		StopLossAmt: stop,
	}, nil
}
