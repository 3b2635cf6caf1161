// Package catalog holds the trading pairs known to the detector. Pairs live in an
// arena indexed by their sequential id; everything else refers to them by id.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"triarb/internal/model"
)

var (
	// ErrMalformedPair is returned when a pair has empty or identical assets.
	ErrMalformedPair = errors.New("malformed trading pair")
	// ErrDuplicatePair is returned by Add when an economically identical pair is already registered.
	ErrDuplicatePair = errors.New("duplicate trading pair")
)

// TradingPair is a tradable instrument exchanging Base for Quote.
type TradingPair struct {
	ID      uint32
	Symbol  string
	Base    string
	Quote   string
	LotStep float64
	Fee     float64

	tick model.Quote
}

// Text returns the "BASE/QUOTE" form used for lookups.
func (p *TradingPair) Text() string {
	return p.Base + "/" + p.Quote
}

func (p *TradingPair) String() string {
	return "<TradingPair " + p.Text() + ">"
}

// HasAsset reports whether asset is either side of the pair.
func (p *TradingPair) HasAsset(asset string) bool {
	return asset == p.Base || asset == p.Quote
}

// Other returns the asset on the other side of asset, or "" when asset is not in the pair.
func (p *TradingPair) Other(asset string) string {
	switch asset {
	case p.Base:
		return p.Quote
	case p.Quote:
		return p.Base
	}
	return ""
}

// Equivalent reports economic identity: both pairs exchange the same two assets,
// in either orientation.
func (p *TradingPair) Equivalent(o *TradingPair) bool {
	return (p.Base == o.Base && p.Quote == o.Quote) || (p.Base == o.Quote && p.Quote == o.Base)
}

// RoundToStep floors qty to a whole number of lot steps.
func (p *TradingPair) RoundToStep(qty float64) float64 {
	if p.LotStep <= 0 {
		return qty
	}
	step := decimal.NewFromFloat(p.LotStep)
	lots := decimal.NewFromFloat(qty).Div(step).Floor()
	f, _ := lots.Mul(step).Float64()
	return f
}

// Catalog is the pair arena. It is populated once at startup; afterwards only the
// cached quotes change, and only through SetQuote.
type Catalog struct {
	fee      float64
	pairs    []*TradingPair
	byText   map[string]*TradingPair
	bySymbol map[string]*TradingPair
}

// New creates an empty catalog whose pairs carry the given fee multiplier.
func New(fee float64) *Catalog {
	return &Catalog{
		fee:      fee,
		byText:   make(map[string]*TradingPair),
		bySymbol: make(map[string]*TradingPair),
	}
}

// FromInstruments ingests the active instruments in the given order. A pair that
// duplicates an earlier one is skipped with a warning; malformed pairs are fatal.
func FromInstruments(logger *slog.Logger, instruments []model.Instrument, fee float64) (*Catalog, error) {
	c := New(fee)
	for _, in := range instruments {
		if !in.Active {
			continue
		}
		if _, err := c.Add(in.Symbol, in.BaseAsset, in.QuoteAsset, in.LotStep); err != nil {
			if errors.Is(err, ErrDuplicatePair) {
				logger.Warn("Catalog: skipping duplicate pair", "symbol", in.Symbol, "error", err)
				continue
			}
			return nil, err
		}
	}
	return c, nil
}

// Add registers a pair and assigns it the next id, starting at 1.
func (c *Catalog) Add(symbol, base, quote string, lotStep float64) (*TradingPair, error) {
	base = strings.TrimSpace(base)
	quote = strings.TrimSpace(quote)
	if base == "" || quote == "" || base == quote || strings.Contains(base, "/") || strings.Contains(quote, "/") {
		return nil, fmt.Errorf("%w: symbol=%q base=%q quote=%q", ErrMalformedPair, symbol, base, quote)
	}
	if symbol == "" {
		symbol = base + quote
	}
	p := &TradingPair{
		ID:      uint32(len(c.pairs) + 1),
		Symbol:  symbol,
		Base:    base,
		Quote:   quote,
		LotStep: lotStep,
		Fee:     c.fee,
	}
	if _, ok := c.bySymbol[symbol]; ok {
		return nil, fmt.Errorf("%w: symbol %s", ErrDuplicatePair, symbol)
	}
	for _, existing := range c.pairs {
		if existing.Equivalent(p) {
			return nil, fmt.Errorf("%w: %s and %s", ErrDuplicatePair, existing.Text(), p.Text())
		}
	}
	p.tick.PairID = p.ID
	c.pairs = append(c.pairs, p)
	c.byText[p.Text()] = p
	c.bySymbol[symbol] = p
	return p, nil
}

// Len returns the number of registered pairs.
func (c *Catalog) Len() int {
	return len(c.pairs)
}

// Pairs returns the pairs in id order.
func (c *Catalog) Pairs() []*TradingPair {
	return c.pairs
}

// ByID returns the pair with the given id.
func (c *Catalog) ByID(id uint32) (*TradingPair, bool) {
	if id == 0 || int(id) > len(c.pairs) {
		return nil, false
	}
	return c.pairs[id-1], true
}

// ByText looks a pair up by its exact "BASE/QUOTE" text. The reversed text does not match.
func (c *Catalog) ByText(text string) (*TradingPair, bool) {
	p, ok := c.byText[text]
	return p, ok
}

// SymbolIDs maps exchange symbols to pair ids for the quote feed.
func (c *Catalog) SymbolIDs() map[string]uint32 {
	ids := make(map[string]uint32, len(c.pairs))
	for _, p := range c.pairs {
		ids[p.Symbol] = p.ID
	}
	return ids
}

// SetQuote stores the latest quote of a pair. It reports whether the pair exists.
func (c *Catalog) SetQuote(q model.Quote) bool {
	p, ok := c.ByID(q.PairID)
	if !ok {
		return false
	}
	p.tick = q
	return true
}

// Quote returns the cached quote of a pair; the zero quote when unknown or not yet quoted.
func (c *Catalog) Quote(id uint32) model.Quote {
	p, ok := c.ByID(id)
	if !ok {
		return model.Quote{}
	}
	return p.tick
}
