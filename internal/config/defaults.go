package config

import "strings"

const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppHTTPAddr     = ":9991"
	defaultAppHistoryPath  = "data/history"
	defaultAppStatePath    = "data/state.db"
	defaultAppProfilesPath = "configs/profiles.yaml"

	defaultBoxLength          = 15
	defaultBufferPct          = 0.0
	defaultStopLossPct        = 0.05
	defaultStackSize          = 1
	defaultBoxMode            = BoxModePersistent
	defaultWalletMode         = WalletModeGlobal
	defaultCapPerStock        = 10_000
	defaultLeaderLookbackDays = 0

	defaultSimInitialCash   = 100_000
	defaultSimMaxConcurrent = 4
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Strategy.applyDefaults(keys)
	c.Sim.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.history_path", &a.HistoryPath, defaultAppHistoryPath),
		stringFieldDefault("app.state_path", &a.StatePath, defaultAppStatePath),
		stringFieldDefault("app.profiles_path", &a.ProfilesPath, defaultAppProfilesPath),
	)
}

func (s *StrategyConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("strategy.box_length", &s.BoxLength, defaultBoxLength),
		floatFieldDefault("strategy.buffer_pct", &s.BufferPct, defaultBufferPct),
		floatFieldDefault("strategy.stop_loss_pct", &s.StopLossPct, defaultStopLossPct),
		intFieldDefault("strategy.stack_size", &s.StackSize, defaultStackSize),
		stringFieldDefault("strategy.box_mode", &s.BoxMode, defaultBoxMode),
		stringFieldDefault("strategy.wallet_mode", &s.WalletMode, defaultWalletMode),
		floatFieldDefault("strategy.cap_per_stock", &s.CapPerStock, defaultCapPerStock),
		intFieldDefault("strategy.leader_lookback_days", &s.LeaderLookbackDays, defaultLeaderLookbackDays),
	)
}

func (s *SimConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("sim.initial_cash", &s.InitialCash, defaultSimInitialCash),
		intFieldDefault("sim.max_concurrent", &s.MaxConcurrent, defaultSimMaxConcurrent),
	)
}

// fieldDefault describes the default rule for a single field.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target == 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target == 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
