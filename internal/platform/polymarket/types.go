package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

// flexBool unmarshals from a JSON bool or a "true"/"false" string. Gamma is
// not consistent about which one it sends.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// stringList decodes Gamma's JSON-in-a-string arrays such as
// "[\"Yes\", \"No\"]". A plain JSON array is accepted too.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*l = nil
		return nil
	}
	return json.Unmarshal([]byte(s), (*[]string)(l))
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket is a market as returned by the Gamma API.
type APIMarket struct {
	ID              string     `json:"id"`
	Question        string     `json:"question"`
	ConditionID     string     `json:"conditionId"`
	Slug            string     `json:"slug"`
	Outcomes        stringList `json:"outcomes"`
	OutcomePrices   stringList `json:"outcomePrices"`
	ClobTokenIDs    stringList `json:"clobTokenIds"`
	Volume          flexFloat  `json:"volume"`
	Active          flexBool   `json:"active"`
	Closed          flexBool   `json:"closed"`
	EnableOrderBook flexBool   `json:"enableOrderBook"`
	NegRisk         flexBool   `json:"negRisk"`
}

// APIEvent groups related markets.
type APIEvent struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Slug    string      `json:"slug"`
	Volume  flexFloat   `json:"volume"`
	Markets []APIMarket `json:"markets"`
}

// searchResponse is the body of GET /public-search.
type searchResponse struct {
	Events []APIEvent `json:"events"`
}

// Tradable reports whether the market is an open binary order book market.
func (m *APIMarket) Tradable() bool {
	return bool(m.Active) && !bool(m.Closed) && bool(m.EnableOrderBook) &&
		len(m.Outcomes) == 2 && len(m.ClobTokenIDs) == 2
}

// ToListing converts the market into a domain.Listing. ok is false when the
// market is not tradable.
func (m *APIMarket) ToListing() (domain.Listing, bool) {
	if !m.Tradable() {
		return domain.Listing{}, false
	}
	l := domain.Listing{
		ID:          m.ID,
		ConditionID: m.ConditionID,
		Question:    m.Question,
		Slug:        m.Slug,
		Volume:      float64(m.Volume),
	}
	for i := range 2 {
		l.Outcomes[i] = domain.Outcome{
			Label:   m.Outcomes[i],
			TokenID: m.ClobTokenIDs[i],
		}
		if i < len(m.OutcomePrices) {
			l.Outcomes[i].Price, _ = strconv.ParseFloat(m.OutcomePrices[i], 64)
		}
	}
	return l, true
}

// listingsFromEvents flattens tradable markets out of events, keeping event
// order, up to limit.
func listingsFromEvents(events []APIEvent, limit int) []domain.Listing {
	out := make([]domain.Listing, 0, limit)
	seen := make(map[string]struct{})
	for i := range events {
		for j := range events[i].Markets {
			l, ok := events[i].Markets[j].ToListing()
			if !ok {
				continue
			}
			if _, dup := seen[l.ID]; dup {
				continue
			}
			seen[l.ID] = struct{}{}
			out = append(out, l)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

// --------------------------------------------------------------------------
// Data API DTOs
// --------------------------------------------------------------------------

// APIPosition is a holding as returned by the Data API /positions endpoint.
type APIPosition struct {
	Asset        string    `json:"asset"`
	ConditionID  string    `json:"conditionId"`
	Size         flexFloat `json:"size"`
	AvgPrice     flexFloat `json:"avgPrice"`
	CurPrice     flexFloat `json:"curPrice"`
	CurrentValue flexFloat `json:"currentValue"`
	CashPnl      flexFloat `json:"cashPnl"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Outcome      string    `json:"outcome"`
	Redeemable   flexBool  `json:"redeemable"`
}

// ToPosition converts to a domain.Position, keeping the backend's value and
// P&L figures.
func (p *APIPosition) ToPosition() domain.Position {
	return domain.Position{
		ListingID:    p.Slug,
		ConditionID:  p.ConditionID,
		Question:     p.Title,
		Outcome:      p.Outcome,
		TokenID:      p.Asset,
		Size:         float64(p.Size),
		AvgPrice:     float64(p.AvgPrice),
		CurrentPrice: float64(p.CurPrice),
		Value:        float64(p.CurrentValue),
		PnL:          float64(p.CashPnl),
	}
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// BookLevel is one price level of an order book.
type BookLevel struct {
	Price flexFloat `json:"price"`
	Size  flexFloat `json:"size"`
}

// OrderBook is the body of GET /book.
type OrderBook struct {
	AssetID string      `json:"asset_id"`
	Bids    []BookLevel `json:"bids"`
	Asks    []BookLevel `json:"asks"`
}

// signedOrder is the wire form of a signed exchange order.
type signedOrder struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          string `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// postOrderRequest is the body of POST /order.
type postOrderRequest struct {
	Order     signedOrder `json:"order"`
	Owner     string      `json:"owner"`
	OrderType string      `json:"orderType"`
}

// APIOrderResult is the response from placing an order.
type APIOrderResult struct {
	Success      bool   `json:"success"`
	ErrorMsg     string `json:"errorMsg,omitempty"`
	OrderID      string `json:"orderID,omitempty"`
	Status       string `json:"status,omitempty"`
	TakingAmount string `json:"takingAmount,omitempty"`
	MakingAmount string `json:"makingAmount,omitempty"`
}

// apiKeyResponse is returned by the L1 auth endpoints.
type apiKeyResponse struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// toOrderResult normalizes the CLOB response. For buys the taker side is
// shares; for sells it is the maker side.
func (r *APIOrderResult) toOrderResult(sell bool) domain.OrderResult {
	res := domain.OrderResult{
		Success: r.Success && r.ErrorMsg == "",
		OrderID: r.OrderID,
		Error:   r.ErrorMsg,
	}
	switch strings.ToLower(r.Status) {
	case "matched", "mined", "confirmed":
		res.Status = domain.OrderStatusMatched
	case "":
		if res.Success {
			res.Status = domain.OrderStatusMatched
		} else {
			res.Status = domain.OrderStatusFailed
		}
	default:
		res.Status = domain.OrderStatusPending
	}
	if !res.Success {
		res.Status = domain.OrderStatusFailed
		return res
	}

	taking, _ := strconv.ParseFloat(r.TakingAmount, 64)
	making, _ := strconv.ParseFloat(r.MakingAmount, 64)
	shares, usd := taking, making
	if sell {
		shares, usd = making, taking
	}
	res.FilledSize = shares
	if shares > 0 {
		res.AvgPrice = usd / shares
	}
	return res
}
