package triangle

import (
	"sort"

	"triarb/internal/catalog"
)

// Filter restricts which coins get triangles. An empty list is treated as absent.
// Allow gates entry and Deny removes a coin regardless of Allow.
type Filter struct {
	Allow []string
	Deny  []string
}

// Accepts reports whether triangles should be derived for coin.
func (f Filter) Accepts(coin string) bool {
	if len(f.Allow) > 0 && !contains(f.Allow, coin) {
		return false
	}
	if len(f.Deny) > 0 && contains(f.Deny, coin) {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Derive builds every triangle reachable from the catalog through the given bridges.
// Pairs are grouped by base asset; each unordered combination of a coin's pairs whose
// quote assets are joined by a bridge becomes a triangle. Coins are visited in sorted
// order and pairs in id order, so the result does not depend on map iteration.
func Derive(c *catalog.Catalog, bridges map[string]*catalog.TradingPair, f Filter) ([]*Triangle, error) {
	byCoin := make(map[string][]*catalog.TradingPair)
	for _, p := range c.Pairs() {
		byCoin[p.Base] = append(byCoin[p.Base], p)
	}
	coins := make([]string, 0, len(byCoin))
	for coin := range byCoin {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	var out []*Triangle
	for _, coin := range coins {
		if !f.Accepts(coin) {
			continue
		}
		tris, err := deriveCoin(coin, byCoin[coin], bridges)
		if err != nil {
			return nil, err
		}
		for _, t := range tris {
			t.ID = len(out)
			out = append(out, t)
		}
	}
	return out, nil
}

func deriveCoin(coin string, pairs []*catalog.TradingPair, bridges map[string]*catalog.TradingPair) ([]*Triangle, error) {
	if len(pairs) < 2 {
		return nil, nil
	}
	var out []*Triangle
	for i, a := range pairs {
		for _, b := range pairs[i+1:] {
			bridge, ok := bridges[a.Quote+"/"+b.Quote]
			if !ok {
				bridge, ok = bridges[b.Quote+"/"+a.Quote]
			}
			if !ok {
				continue
			}
			t, err := newTriangle(coin, a, b, bridge)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
	}
	return out, nil
}
