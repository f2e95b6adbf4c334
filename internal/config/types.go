package config

import "strings"

// BoxMode selects the box replacement policy.
const (
	BoxModePersistent = "persistent"
	BoxModeFancy      = "fancy"
)

// WalletMode selects where buy budgets are drawn from.
const (
	WalletModeGlobal    = "global"
	WalletModePerTicker = "per_ticker"
)

// Config is the main configuration carrier.
type Config struct {
	App      AppConfig      `toml:"app"`
	Strategy StrategyConfig `toml:"strategy"`
	Sim      SimConfig      `toml:"sim"`
}

type AppConfig struct {
	Env          string `toml:"env"`
	LogLevel     string `toml:"log_level"`
	LogPath      string `toml:"log_path"`
	HTTPAddr     string `toml:"http_addr"`
	HistoryPath  string `toml:"history_path"`
	StatePath    string `toml:"state_path"`
	ProfilesPath string `toml:"profiles_path"`
}

// StrategyConfig carries the Darvas engine parameters. Percent fields are
// fractions (0.05 = 5%).
type StrategyConfig struct {
	BoxLength          int     `toml:"box_length"`
	BufferPct          float64 `toml:"buffer_pct"`
	StopLossPct        float64 `toml:"stop_loss_pct"`
	StackSize          int     `toml:"stack_size"`
	BoxMode            string  `toml:"box_mode"`
	WalletMode         string  `toml:"wallet_mode"`
	CapPerStock        float64 `toml:"cap_per_stock"`
	LeaderLookbackDays int     `toml:"leader_lookback_days"`
	DefaultHeightPct   float64 `toml:"default_height_pct"`
	HeightIncrementPct float64 `toml:"height_increment_pct"`
}

// NormalizedBoxMode lowercases and trims the configured box mode.
func (s StrategyConfig) NormalizedBoxMode() string {
	return strings.ToLower(strings.TrimSpace(s.BoxMode))
}

// NormalizedWalletMode lowercases and trims the configured wallet mode.
func (s StrategyConfig) NormalizedWalletMode() string {
	return strings.ToLower(strings.TrimSpace(s.WalletMode))
}

type SimConfig struct {
	StartDate     string  `toml:"start_date"`
	EndDate       string  `toml:"end_date"`
	InitialCash   float64 `toml:"initial_cash"`
	MaxConcurrent int     `toml:"max_concurrent"`
	Profile       string  `toml:"profile"`
}

// keySet tracks field paths explicitly set in the config file, so defaults
// never clobber explicit zero values.
type keySet map[string]struct{}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}
