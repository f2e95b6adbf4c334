package model

import "gorm.io/datatypes"

// EvalLogModel is the append-only audit trail of every evaluation.
type EvalLogModel struct {
	ID           int64          `gorm:"column:id;primaryKey" json:"id"`
	Date         string         `gorm:"column:date;index:idx_eval_log_date_ticker,priority:1" json:"date"`
	Ticker       string         `gorm:"column:ticker;index:idx_eval_log_date_ticker,priority:2" json:"ticker"`
	Level        string         `gorm:"column:level" json:"level"`
	Message      string         `gorm:"column:message" json:"message"`
	DecisionJSON datatypes.JSON `gorm:"column:decision_json;type:TEXT" json:"decision,omitempty"`
	CreatedAt    int64          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (EvalLogModel) TableName() string { return "eval_log" }

// RunModel records one simulation run and its final report.
type RunModel struct {
	ID          string         `gorm:"column:id;primaryKey" json:"id"`
	Profile     string         `gorm:"column:profile" json:"profile"`
	Status      string         `gorm:"column:status;index" json:"status"`
	StartDate   string         `gorm:"column:start_date" json:"start_date"`
	EndDate     string         `gorm:"column:end_date" json:"end_date"`
	InitialCash string         `gorm:"column:initial_cash;type:TEXT" json:"initial_cash"`
	ParamsJSON  datatypes.JSON `gorm:"column:params_json;type:TEXT" json:"params,omitempty"`
	ReportJSON  datatypes.JSON `gorm:"column:report_json;type:TEXT" json:"-"`
	Message     string         `gorm:"column:message" json:"message,omitempty"`
	CreatedAt   int64          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	CompletedAt *int64         `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (RunModel) TableName() string { return "runs" }
