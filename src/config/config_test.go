package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("expands environment variables", func(t *testing.T) {
		t.Setenv("TEST_DISCORD_TOKEN", "secret-token")

		path := writeConfig(t, `
discord:
  token: ${TEST_DISCORD_TOKEN}
  channel_id: "12345"
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "secret-token", cfg.Discord.Token)
		assert.Equal(t, "12345", cfg.Discord.ChannelID)
	})

	t.Run("uses fallback when variable unset", func(t *testing.T) {
		path := writeConfig(t, `
tradestation:
  base_url: ${TEST_UNSET_BASE_URL:-https://example.com/v3}
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "https://example.com/v3", cfg.TradeStation.BaseURL)
	})

	t.Run("applies defaults", func(t *testing.T) {
		path := writeConfig(t, `
discord:
  channel_id: "12345"
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 5, cfg.Risk.MaxOpenPositions)
		assert.Equal(t, 100.0, cfg.Risk.MaxRiskPerTrade)
		assert.Equal(t, 300.0, cfg.Risk.MaxTotalRisk)
		assert.Equal(t, 100, cfg.Risk.ContractMultiplier)
		assert.Equal(t, 1, cfg.Trade.Quantity)
		assert.Equal(t, 3, cfg.Controls.MaxConsecutiveFailures)
		assert.Equal(t, ":8080", cfg.Admin.Addr)
		assert.Equal(t, "https://sim-api.tradestation.com/v3", cfg.TradeStation.BaseURL)
	})

	t.Run("explicit values win over defaults", func(t *testing.T) {
		path := writeConfig(t, `
risk:
  max_open_positions: 2
  max_risk_per_trade: 50.0
controls:
  max_consecutive_failures: 5
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 2, cfg.Risk.MaxOpenPositions)
		assert.Equal(t, 50.0, cfg.Risk.MaxRiskPerTrade)
		assert.Equal(t, 5, cfg.Controls.MaxConsecutiveFailures)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
