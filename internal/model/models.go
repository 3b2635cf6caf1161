package model

import (
	"fmt"
	"time"
)

// Side is the trade direction of the base asset on one leg of a triangle.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Direction tells which way a triangle is traversed.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	switch string(b) {
	case "forward":
		*d = Forward
	case "reverse":
		*d = Reverse
	default:
		return fmt.Errorf("unknown direction %q", b)
	}
	return nil
}

// Level is a single best price level.
type Level struct {
	Price float64
	Qty   float64
}

// Quote is the best ask and best bid of one trading pair.
// A zero ask price means the pair has not been quoted yet.
type Quote struct {
	PairID uint32
	Ask    Level
	Bid    Level
}

// Ready reports whether the quote carries real data.
func (q Quote) Ready() bool {
	return q.Ask.Price != 0
}

// Instrument is one entry of the exchange metadata listing.
type Instrument struct {
	Symbol     string  `yaml:"symbol"`
	BaseAsset  string  `yaml:"base_asset"`
	QuoteAsset string  `yaml:"quote_asset"`
	LotStep    float64 `yaml:"lot_step"`
	Active     bool    `yaml:"active"`
}

// QuoteEvent is a best bid/ask update already resolved to a pair id.
type QuoteEvent struct {
	Quote
	Received time.Time
}

// Opportunity is a triangle evaluation worth reporting.
type Opportunity struct {
	ID               int64     `db:"id"`
	Timestamp        time.Time `db:"timestamp"`
	Coin             string    `db:"coin"`
	Triangle         string    `db:"triangle"`
	Legs             [3]string `db:"-"`
	TriggerPair      string    `db:"trigger_pair"`
	Direction        Direction `db:"direction"`
	Ratio            float64   `db:"ratio"`
	Amount           float64   `db:"amount"`
	ExecutableAmount float64   `db:"executable_amount"`
	Profit           float64   `db:"profit"`
	ProfitAsset      string    `db:"profit_asset"`
	Quotes           [3]Quote  `db:"-"`
}
