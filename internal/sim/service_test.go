package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darvas/internal/config"
)

// The state store's wallet layout is fixed when the app starts; a run built
// from a resolved profile must never replay under a different mode.
func TestRunRequestKeepsStartupWalletMode(t *testing.T) {
	cfg := &config.Config{
		Strategy: config.StrategyConfig{
			BoxLength:   15,
			StopLossPct: 0.05,
			StackSize:   1,
			BoxMode:     config.BoxModePersistent,
			WalletMode:  config.WalletModeGlobal,
			CapPerStock: 10000,
		},
		Sim: config.SimConfig{
			StartDate:   "2024-01-01",
			EndDate:     "2024-01-31",
			InitialCash: 100000,
		},
	}
	svc := NewService(cfg, nil, nil, nil)

	resolved := cfg.Strategy
	resolved.WalletMode = config.WalletModePerTicker

	req, err := svc.buildRunRequest("classic", resolved, StartRunRequest{})
	require.NoError(t, err)
	assert.Equal(t, config.WalletModeGlobal, req.WalletMode)
}
