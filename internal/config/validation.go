package config

import (
	"fmt"
	"time"
)

func validate(c *Config) error {
	if err := c.Strategy.validate(); err != nil {
		return err
	}
	if err := c.Sim.validate(); err != nil {
		return err
	}
	return nil
}

func (s *StrategyConfig) validate() error {
	if s.BoxLength <= 0 {
		return fmt.Errorf("strategy.box_length must be > 0")
	}
	if s.BufferPct < 0 {
		return fmt.Errorf("strategy.buffer_pct must be >= 0")
	}
	if s.StopLossPct < 0 || s.StopLossPct >= 1 {
		return fmt.Errorf("strategy.stop_loss_pct must be in [0, 1)")
	}
	if s.StackSize <= 0 {
		return fmt.Errorf("strategy.stack_size must be > 0")
	}
	switch s.NormalizedBoxMode() {
	case BoxModePersistent, BoxModeFancy:
	default:
		return fmt.Errorf("strategy.box_mode must be %q or %q", BoxModePersistent, BoxModeFancy)
	}
	switch s.NormalizedWalletMode() {
	case WalletModeGlobal, WalletModePerTicker:
	default:
		return fmt.Errorf("strategy.wallet_mode must be %q or %q", WalletModeGlobal, WalletModePerTicker)
	}
	if s.CapPerStock <= 0 {
		return fmt.Errorf("strategy.cap_per_stock must be > 0")
	}
	if s.LeaderLookbackDays < 0 {
		return fmt.Errorf("strategy.leader_lookback_days must be >= 0")
	}
	if s.DefaultHeightPct < 0 {
		return fmt.Errorf("strategy.default_height_pct must be >= 0")
	}
	if s.HeightIncrementPct < 0 {
		return fmt.Errorf("strategy.height_increment_pct must be >= 0")
	}
	return nil
}

func (s *SimConfig) validate() error {
	if s.InitialCash <= 0 {
		return fmt.Errorf("sim.initial_cash must be > 0")
	}
	if s.MaxConcurrent <= 0 {
		return fmt.Errorf("sim.max_concurrent must be > 0")
	}
	for _, d := range []struct{ key, val string }{
		{"sim.start_date", s.StartDate},
		{"sim.end_date", s.EndDate},
	} {
		if d.val == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d.val); err != nil {
			return fmt.Errorf("%s must be YYYY-MM-DD: %w", d.key, err)
		}
	}
	return nil
}
