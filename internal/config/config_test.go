package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 0.999, cfg.Arbitrage.FeeMultiplier)
	assert.Equal(t, []string{"BTC", "USDT"}, cfg.Arbitrage.BridgeCurrencies)
	assert.Empty(t, cfg.Arbitrage.AllowCoins)
	assert.Empty(t, cfg.Arbitrage.ExcludeCoins)
	assert.Equal(t, 10*time.Second, cfg.Arbitrage.ColdStartTimeout())
	assert.Equal(t, "binance", cfg.Exchange.Name)
	assert.Equal(t, "none", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
arbitrage:
  fee_multiplier: 0.998
  bridge_currencies: [BTC, USDT, ETH]
  exclude_coins: [LUNA]
  cold_start_timeout_ms: 500
database:
  driver: sqlite
  path: /tmp/opps.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("TRIARB_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 0.998, cfg.Arbitrage.FeeMultiplier)
	assert.Equal(t, []string{"BTC", "USDT", "ETH"}, cfg.Arbitrage.BridgeCurrencies)
	assert.Equal(t, []string{"LUNA"}, cfg.Arbitrage.ExcludeCoins)
	assert.Equal(t, 500*time.Millisecond, cfg.Arbitrage.ColdStartTimeout())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/opps.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.Arbitrage.FeeMultiplier = 0.999
		c.Arbitrage.BridgeCurrencies = []string{"BTC", "USDT"}
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"zero fee", func(c *Config) { c.Arbitrage.FeeMultiplier = 0 }, false},
		{"fee above one", func(c *Config) { c.Arbitrage.FeeMultiplier = 1.01 }, false},
		{"single bridge", func(c *Config) { c.Arbitrage.BridgeCurrencies = []string{"BTC"} }, false},
		{"negative timeout", func(c *Config) { c.Arbitrage.ColdStartTimeoutMS = -1 }, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "triarb"}
	assert.Equal(t, "postgres://u:p@db:5432/triarb", d.DSN())
}
