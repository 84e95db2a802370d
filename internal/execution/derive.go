package execution

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// BuyShares estimates the shares a market buy of usd at price would fill.
// It returns zero for a non-positive price.
func BuyShares(usd, price float64) float64 {
	p := decimal.NewFromFloat(price)
	if !p.IsPositive() {
		return 0
	}
	return decimal.NewFromFloat(usd).Div(p).Round(6).InexactFloat64()
}

// SellPortion returns the shares and value corresponding to percent of pos.
func SellPortion(pos domain.Position, percent int) (shares, value float64) {
	pct := decimal.NewFromInt(int64(percent)).Div(hundred)
	shares = decimal.NewFromFloat(pos.Size).Mul(pct).Round(6).InexactFloat64()
	value = decimal.NewFromFloat(pos.Value).Mul(pct).Round(6).InexactFloat64()
	return shares, value
}

// Order is the set of parameters derived from a confirmed intent.
type Order struct {
	Kind      domain.IntentKind
	TokenID   string
	AmountUSD float64
	Percent   int
	Shares    float64
	Value     float64
	Price     float64
}

// Derive computes the order parameters of in. The caller has already checked
// HasOrderParams.
func Derive(in *domain.Intent) Order {
	o := Order{Kind: in.Kind, TokenID: in.OutcomeID}
	switch in.Kind {
	case domain.IntentBuy:
		o.AmountUSD = in.Amount
		o.Price = in.Price
		o.Shares = BuyShares(in.Amount, in.Price)
		o.Value = in.Amount
	case domain.IntentSell:
		o.Percent = in.Percent
		o.Price = in.Position.CurrentPrice
		o.Shares, o.Value = SellPortion(*in.Position, in.Percent)
	}
	return o
}
