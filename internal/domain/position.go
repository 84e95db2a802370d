package domain

// Position is a holding of shares in one outcome of a listing. Values are a
// snapshot taken at fetch time; the positions list is replaced wholesale on
// refresh, never patched in place.
type Position struct {
	ListingID    string
	ConditionID  string
	Question     string
	Outcome      string // outcome label as reported by the backend
	TokenID      string
	Size         float64
	AvgPrice     float64
	CurrentPrice float64
	Value        float64 // mark-to-market value
	PnL          float64 // unrealized profit or loss
}

// NewPosition builds a Position and derives Value and PnL from size and
// prices.
func NewPosition(p Position) Position {
	p.Value = p.Size * p.CurrentPrice
	p.PnL = p.Value - p.Size*p.AvgPrice
	return p
}

// PnLPercent is PnL relative to cost basis, or zero when the cost is zero.
func (p Position) PnLPercent() float64 {
	cost := p.Size * p.AvgPrice
	if cost == 0 {
		return 0
	}
	return p.PnL / cost * 100
}

// PositionTotals sums value and unrealized PnL over a positions list.
func PositionTotals(positions []Position) (value, pnl float64) {
	for _, p := range positions {
		value += p.Value
		pnl += p.PnL
	}
	return value, pnl
}
