package triangle

import "triarb/internal/catalog"

// ResolveBridges finds, for every unordered combination of the bridge currencies,
// the pair connecting them. The result is keyed by the pair's "BASE/QUOTE" text.
func ResolveBridges(c *catalog.Catalog, currencies []string) map[string]*catalog.TradingPair {
	bridges := make(map[string]*catalog.TradingPair)
	for i := 0; i < len(currencies); i++ {
		for j := i + 1; j < len(currencies); j++ {
			c1, c2 := currencies[i], currencies[j]
			if p, ok := c.ByText(c1 + "/" + c2); ok {
				bridges[p.Text()] = p
			} else if p, ok := c.ByText(c2 + "/" + c1); ok {
				bridges[p.Text()] = p
			}
		}
	}
	return bridges
}
