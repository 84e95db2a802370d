package domain

import "time"

// Favorite is a saved listing outcome a user can jump back to.
type Favorite struct {
	ID        int64
	UserID    int64
	ListingID string
	Label     string // listing question
	Outcome   string
	Side      Side
	TokenID   string
	Price     float64 // price when saved
	CreatedAt time.Time
}
