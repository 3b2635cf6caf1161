package arbitrage

import (
	"time"

	"triarb/internal/model"
	"triarb/internal/triangle"
)

// Profit is the outcome of evaluating one triangle. The zero value means the
// triangle could not be evaluated. Non-positive results are returned as well;
// callers test Ratio or Profit.
type Profit struct {
	Direction model.Direction
	Ratio     float64
	Amount    float64
	Profit    float64
	Capital   float64
	Timestamp time.Time
	Quotes    [3]model.Quote
}

// IsZero reports whether p is the "no result" value.
func (p Profit) IsZero() bool {
	return p == Profit{}
}

// CalcProfit evaluates both traversal directions of tri with the given quotes and
// returns the better one. fee is the multiplier kept after each trade (0.999 for
// 0.1%). Forward buys the coin on leg 0, sells it on leg 1 and converts back on
// leg 2. Reverse buys on leg 1, sells on leg 0 and uses leg 2 the opposite way.
// Forward profit is in the quote asset of leg 0 and reverse profit in that of leg 1;
// the reverse profit is converted through the leg 2 quote before the two are
// compared. Forward is kept when both are equal. The result carries the raw values.
func CalcProfit(tri *triangle.Triangle, q0, q1, q2 model.Quote, fee float64, now time.Time) Profit {
	if q0.Ask.Price == 0 || q1.Ask.Price == 0 || q2.Ask.Price == 0 || fee <= 0 {
		return Profit{}
	}

	vol := min(q0.Ask.Qty, q1.Bid.Qty)
	cost := vol * q0.Ask.Price / fee
	proceeds := vol * q1.Bid.Price * fee
	end := convert(tri.Sides[2], proceeds, q2, fee)
	profit := end - cost

	vol2 := min(q1.Ask.Qty, q0.Bid.Qty)
	cost2 := vol2 * q1.Ask.Price / fee
	proceeds2 := vol2 * q0.Bid.Price * fee
	end2 := convert(tri.Sides[2].Opposite(), proceeds2, q2, fee)
	profit2 := end2 - cost2
	profit2InLeg0 := convert(tri.Sides[2], profit2, q2, 1)

	res := Profit{
		Direction: model.Forward,
		Amount:    vol,
		Profit:    profit,
		Capital:   cost,
		Timestamp: now,
		Quotes:    [3]model.Quote{q0, q1, q2},
	}
	if profit < profit2InLeg0 {
		res.Direction = model.Reverse
		res.Amount = vol2
		res.Profit = profit2
		res.Capital = cost2
	}
	if res.Capital != 0 {
		res.Ratio = res.Profit / res.Capital
	}
	return res
}

// convert trades amount through the bridge quote q on the given side.
func convert(side model.Side, amount float64, q model.Quote, fee float64) float64 {
	if side == model.Sell {
		return amount * q.Bid.Price * fee
	}
	return amount * fee / q.Ask.Price
}
