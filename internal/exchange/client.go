package exchange

import (
	"context"
	"errors"

	"triarb/internal/model"
)

// ErrMalformedQuote means a feed message carried numbers that could not be parsed.
// It is fatal: a poisoned quote must never reach the profit math.
var ErrMalformedQuote = errors.New("malformed quote")

// ExchangeClient defines the standard interface for all exchange clients.
type ExchangeClient interface {
	GetName() string
	// FetchInstruments returns the exchange listing in exchange order.
	FetchInstruments(ctx context.Context) ([]model.Instrument, error)
	// StartStream delivers best bid/ask updates for the symbols in symbolIDs until ctx
	// is cancelled. Unknown symbols are dropped. It reconnects on transport errors and
	// returns an error only for malformed data.
	StartStream(ctx context.Context, quoteChan chan<- model.QuoteEvent, symbolIDs map[string]uint32) error
}
