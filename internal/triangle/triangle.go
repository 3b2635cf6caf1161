// Package triangle derives three-pair arbitrage cycles from a pair catalog and
// indexes them by the pairs they reference.
package triangle

import (
	"errors"
	"fmt"

	"triarb/internal/catalog"
	"triarb/internal/model"
)

// ErrDirectionMismatch means a bridge pair does not connect to the first leg.
// It cannot happen with bridges from ResolveBridges.
var ErrDirectionMismatch = errors.New("bridge pair does not match first leg")

// Triangle is a 3-leg cycle driven by Coin. Legs 0 and 1 trade Coin, leg 2 is the
// bridge pair. Triangles are immutable once derived.
type Triangle struct {
	ID    int
	Coin  string
	Name  string
	Pairs [3]uint32
	Sides [3]model.Side
	Legs  [3]string
}

func (t *Triangle) String() string {
	return fmt.Sprintf("<Triangle %s: %s %s %s>", t.Coin, t.Legs[0], t.Legs[1], t.Legs[2])
}

// newTriangle fixes the trade directions of the cycle a -> b -> bridge.
func newTriangle(coin string, a, b, bridge *catalog.TradingPair) (*Triangle, error) {
	t := &Triangle{
		Coin:  coin,
		Pairs: [3]uint32{a.ID, b.ID, bridge.ID},
		Legs:  [3]string{a.Text(), b.Text(), bridge.Text()},
	}
	switch a.Quote {
	case bridge.Quote:
		// ADA/USDT ADA/BTC BTC/USDT
		t.Sides = [3]model.Side{model.Buy, model.Sell, model.Sell}
		t.Name = coin + "-" + a.Quote + "-" + bridge.Base
	case bridge.Base:
		// ADA/BTC ADA/USDT BTC/USDT
		t.Sides = [3]model.Side{model.Buy, model.Sell, model.Buy}
		t.Name = coin + "-" + a.Quote + "-" + bridge.Quote
	default:
		return nil, fmt.Errorf("%w: %s %s %s", ErrDirectionMismatch, a.Text(), b.Text(), bridge.Text())
	}
	return t, nil
}
