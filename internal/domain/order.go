package domain

import "time"

// OrderStatus tracks what the backend reported for an order.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusMatched OrderStatus = "matched"
	OrderStatusFailed  OrderStatus = "failed"
)

// OrderResult is the normalized outcome of one execution attempt.
type OrderResult struct {
	Success    bool
	OrderID    string
	Status     OrderStatus
	FilledSize float64 // shares
	AvgPrice   float64
	Error      string // backend-provided detail on failure
}

// OrderRecord is what gets persisted for every execution attempt.
type OrderRecord struct {
	IntentID  string
	UserID    int64
	Kind      IntentKind
	Mode      string // "paper" or "live"
	ListingID string
	Question  string
	Outcome   string
	TokenID   string
	AmountUSD float64
	Percent   int
	Shares    float64
	Price     float64
	Result    OrderResult
	CreatedAt time.Time
}
