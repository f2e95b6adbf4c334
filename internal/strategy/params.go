package strategy

import (
	"github.com/shopspring/decimal"

	"darvas/internal/config"
)

// Params is the decimal-typed view of config.StrategyConfig the engine
// computes with. Converted once at construction; never mutated.
type Params struct {
	BoxLength          int
	BufferPct          decimal.Decimal
	StopLossPct        decimal.Decimal
	StackSize          int
	BoxMode            string
	CapPerStock        decimal.Decimal
	LeaderLookbackDays int
	DefaultHeightPct   decimal.Decimal
	HeightIncrementPct decimal.Decimal
}

// ParamsFromConfig converts the float-typed config into decimal params.
func ParamsFromConfig(c config.StrategyConfig) Params {
	return Params{
		BoxLength:          c.BoxLength,
		BufferPct:          decimal.NewFromFloat(c.BufferPct),
		StopLossPct:        decimal.NewFromFloat(c.StopLossPct),
		StackSize:          c.StackSize,
		BoxMode:            c.NormalizedBoxMode(),
		CapPerStock:        decimal.NewFromFloat(c.CapPerStock),
		LeaderLookbackDays: c.LeaderLookbackDays,
		DefaultHeightPct:   decimal.NewFromFloat(c.DefaultHeightPct),
		HeightIncrementPct: decimal.NewFromFloat(c.HeightIncrementPct),
	}
}

func (p Params) fancy() bool { return p.BoxMode == config.BoxModeFancy }
