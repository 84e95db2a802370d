package domain

import "context"

// MarketData is the read side of the trading backend. Implementations return
// an empty slice, not an error, when nothing matches.
type MarketData interface {
	ListPositions(ctx context.Context, userID int64) ([]Position, error)
	SearchListings(ctx context.Context, query string, limit int) ([]Listing, error)
	ListByCategory(ctx context.Context, category string, limit int) ([]Listing, error)
}

// Trader places market orders. Each call must correspond to at most one
// user-confirmed intent. A non-nil error or a result with Success=false are
// both backend failures.
type Trader interface {
	PlaceBuy(ctx context.Context, userID int64, tokenID string, usd float64) (OrderResult, error)
	PlaceSell(ctx context.Context, userID int64, tokenID string, percent int) (OrderResult, error)
}
