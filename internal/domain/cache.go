package domain

import (
	"context"
	"time"
)

// ListingCache keeps recent listing query results so repeated browsing does
// not hit the market-data API every time.
type ListingCache interface {
	Get(ctx context.Context, key string) ([]Listing, error)
	Set(ctx context.Context, key string, listings []Listing) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out of events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
