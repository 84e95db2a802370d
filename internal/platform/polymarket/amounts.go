package polymarket

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

var (
	collateralScale = int32(6) // USDC and outcome tokens both use 6 decimals
	sizeDecimals    = int32(2)
)

// marketPrice walks the book best level first and returns the price of the
// level at which amount is fully covered. For buys amount is USD against
// the asks; for sells it is shares against the bids.
func marketPrice(book OrderBook, amount decimal.Decimal, buy bool) (decimal.Decimal, error) {
	levels := book.Bids
	if buy {
		levels = book.Asks
	}
	sorted := make([]BookLevel, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool {
		if buy {
			return sorted[i].Price < sorted[j].Price
		}
		return sorted[i].Price > sorted[j].Price
	})

	filled := decimal.Zero
	for _, lvl := range sorted {
		price := decimal.NewFromFloat(float64(lvl.Price))
		size := decimal.NewFromFloat(float64(lvl.Size))
		if buy {
			filled = filled.Add(size.Mul(price))
		} else {
			filled = filled.Add(size)
		}
		if filled.GreaterThanOrEqual(amount) {
			return price, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: not enough liquidity to fill %s", domain.ErrInvalidOrder, amount)
}

// priceDecimals is the number of decimals implied by a tick size.
func priceDecimals(tick float64) int32 {
	if tick <= 0 {
		return 2
	}
	return -decimal.NewFromFloat(tick).Exponent()
}

// buyAmounts returns maker (USDC) and taker (shares) amounts in base units.
func buyAmounts(usd, price decimal.Decimal, pd int32) (maker, taker decimal.Decimal, err error) {
	if !price.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: price %s", domain.ErrInvalidOrder, price)
	}
	m := usd.RoundDown(sizeDecimals)
	t := m.Div(price).RoundDown(pd + sizeDecimals)
	if !m.IsPositive() || !t.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: amount %s too small", domain.ErrInvalidOrder, usd)
	}
	return m.Shift(collateralScale), t.Shift(collateralScale).Truncate(0), nil
}

// sellAmounts returns maker (shares) and taker (USDC) amounts in base units.
func sellAmounts(shares, price decimal.Decimal, pd int32) (maker, taker decimal.Decimal, err error) {
	m := shares.RoundDown(sizeDecimals)
	t := m.Mul(price).RoundDown(pd + sizeDecimals)
	if !m.IsPositive() || !t.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %s shares at %s", domain.ErrInvalidOrder, shares, price)
	}
	return m.Shift(collateralScale), t.Shift(collateralScale).Truncate(0), nil
}
