package exchange

import (
	"context"
	"fmt"
	"log/slog"

	"triarb/internal/config"
	"triarb/internal/model"
)

// NewClient creates a new exchange client based on the given name and configuration.
func NewClient(name string, logger *slog.Logger, cfg *config.ExchangeConfig) (ExchangeClient, error) {
	switch name {
	case "binance":
		return NewBinanceClient(logger, cfg), nil
	default:
		return nil, fmt.Errorf("unknown exchange: %s", name)
	}
}

// LoadInstruments reads the instrument listing from the configured fixture file,
// or from the exchange when no file is set.
func LoadInstruments(ctx context.Context, client ExchangeClient, cfg *config.ExchangeConfig) ([]model.Instrument, error) {
	if cfg.InstrumentsFile != "" {
		return LoadInstrumentsFile(cfg.InstrumentsFile)
	}
	return client.FetchInstruments(ctx)
}
