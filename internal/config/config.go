package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Arbitrage ArbitrageConfig
	Exchange  ExchangeConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Metrics   MetricsConfig
	Stats     StatsConfig
	Log       LogConfig
}

// ArbitrageConfig defines the triangle derivation and detection settings.
type ArbitrageConfig struct {
	FeeMultiplier      float64  `mapstructure:"fee_multiplier"`
	BridgeCurrencies   []string `mapstructure:"bridge_currencies"`
	AllowCoins         []string `mapstructure:"allow_coins"`
	ExcludeCoins       []string `mapstructure:"exclude_coins"`
	ColdStartTimeoutMS int      `mapstructure:"cold_start_timeout_ms"`
	OpportunityBuffer  int      `mapstructure:"opportunity_buffer"`
}

// ColdStartTimeout is the cold-start deadline as a duration.
func (a ArbitrageConfig) ColdStartTimeout() time.Duration {
	return time.Duration(a.ColdStartTimeoutMS) * time.Millisecond
}

// ExchangeConfig defines where instrument metadata and quotes come from.
type ExchangeConfig struct {
	Name            string
	RestURL         string `mapstructure:"rest_url"`
	WSURL           string `mapstructure:"ws_url"`
	InstrumentsFile string `mapstructure:"instruments_file"`
}

// DatabaseConfig defines the opportunity journal. Driver is one of none, postgres, sqlite.
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	Path     string
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, d.Port, d.DBName)
}

// RedisConfig defines the opportunity publisher.
type RedisConfig struct {
	Enabled   bool
	Addr      string
	Channel   string
	LatestKey string `mapstructure:"latest_key"`
}

// MetricsConfig defines the admin HTTP endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string
}

// StatsConfig defines the periodic diagnostics job.
type StatsConfig struct {
	Schedule string
}

// LogConfig defines the logger.
type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("arbitrage.fee_multiplier", 0.999)
	v.SetDefault("arbitrage.bridge_currencies", []string{"BTC", "USDT"})
	v.SetDefault("arbitrage.cold_start_timeout_ms", 10000)
	v.SetDefault("arbitrage.opportunity_buffer", 1024)
	v.SetDefault("exchange.name", "binance")
	v.SetDefault("exchange.rest_url", "https://api.binance.com")
	v.SetDefault("exchange.ws_url", "wss://stream.binance.com:9443/ws/!bookTicker")
	v.SetDefault("database.driver", "none")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.path", "triarb.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.channel", "triarb:opportunities")
	v.SetDefault("redis.latest_key", "triarb:latest")
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("stats.schedule", "@every 1m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults and environment still apply.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("TRIARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	err = config.Validate()
	return
}

// Validate rejects settings the detector cannot run with.
func (c Config) Validate() error {
	a := c.Arbitrage
	if a.FeeMultiplier <= 0 || a.FeeMultiplier > 1 {
		return fmt.Errorf("arbitrage.fee_multiplier must be in (0,1], got %v", a.FeeMultiplier)
	}
	if len(a.BridgeCurrencies) < 2 {
		return fmt.Errorf("arbitrage.bridge_currencies needs at least 2 currencies, got %v", a.BridgeCurrencies)
	}
	if a.ColdStartTimeoutMS < 0 {
		return fmt.Errorf("arbitrage.cold_start_timeout_ms must not be negative, got %d", a.ColdStartTimeoutMS)
	}
	if a.OpportunityBuffer < 0 {
		return fmt.Errorf("arbitrage.opportunity_buffer must not be negative, got %d", a.OpportunityBuffer)
	}
	switch c.Database.Driver {
	case "", "none", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	return nil
}
