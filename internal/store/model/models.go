package model

// Money columns are TEXT holding exact decimal strings; dates are TEXT in
// the canonical YYYY-MM-DD layout. Conversions live in the state store.

type BoxModel struct {
	ID        int64   `gorm:"column:id;primaryKey"`
	Ticker    string  `gorm:"column:ticker;index:idx_boxes_ticker_active,priority:1"`
	StartDate string  `gorm:"column:start_date"`
	EndDate   *string `gorm:"column:end_date"`
	MinPrice  string  `gorm:"column:min_price;type:TEXT"`
	MaxPrice  string  `gorm:"column:max_price;type:TEXT"`
	BaseClose string  `gorm:"column:base_close;type:TEXT"`
	IsActive  bool    `gorm:"column:is_active;index:idx_boxes_ticker_active,priority:2"`
}

func (BoxModel) TableName() string { return "boxes" }

type StrategyStateModel struct {
	ID             int64   `gorm:"column:id;primaryKey"`
	Ticker         string  `gorm:"column:ticker;uniqueIndex"`
	BreakoutStreak int     `gorm:"column:breakout_streak"`
	HeightPct      string  `gorm:"column:height_pct;type:TEXT"`
	LastEvaluated  *string `gorm:"column:last_evaluated"`
	LossCarryover  bool    `gorm:"column:loss_carryover"`
}

func (StrategyStateModel) TableName() string { return "strategy_state" }

type ActiveTradeModel struct {
	ID          int64  `gorm:"column:id;primaryKey"`
	Ticker      string `gorm:"column:ticker;uniqueIndex"`
	QtyOwned    int64  `gorm:"column:qty_owned"`
	BuyPrice    string `gorm:"column:buy_price;type:TEXT"`
	StopLossAmt string `gorm:"column:stop_loss_amt;type:TEXT"`
}

func (ActiveTradeModel) TableName() string { return "active_trades" }

type TransactionModel struct {
	ID     int64  `gorm:"column:id;primaryKey"`
	Date   string `gorm:"column:date;index"`
	Ticker string `gorm:"column:ticker;index"`
	Side   string `gorm:"column:side"`
	Price  string `gorm:"column:price;type:TEXT"`
	Qty    int64  `gorm:"column:qty"`
}

func (TransactionModel) TableName() string { return "transactions" }

// WalletModel is the single global cash pool row.
type WalletModel struct {
	ID   int64  `gorm:"column:id;primaryKey"`
	Cash string `gorm:"column:cash;type:TEXT"`
}

func (WalletModel) TableName() string { return "wallet" }

// PortfolioCashModel holds one ticker's allocation in per-ticker wallet mode.
type PortfolioCashModel struct {
	ID     int64  `gorm:"column:id;primaryKey"`
	Ticker string `gorm:"column:ticker;uniqueIndex"`
	Cash   string `gorm:"column:cash;type:TEXT"`
}

func (PortfolioCashModel) TableName() string { return "portfolio_cash" }
