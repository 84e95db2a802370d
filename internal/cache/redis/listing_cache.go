package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

// DefaultListingTTL keeps category and search results for a short while so
// paging and repeated taps do not hit Gamma.
const DefaultListingTTL = 2 * time.Minute

// ListingCache implements domain.ListingCache with one JSON string per
// query key.
//
// Key schema:
//
//	polytg:listings:{query key} - JSON array of listings
type ListingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewListingCache creates a ListingCache. A non-positive ttl selects
// DefaultListingTTL.
func NewListingCache(c *Client, ttl time.Duration) *ListingCache {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	return &ListingCache{rdb: c.Underlying(), ttl: ttl}
}

func listingKey(key string) string { return keyPrefix + "listings:" + key }

// Get returns the cached listings for key, or domain.ErrNotFound.
func (lc *ListingCache) Get(ctx context.Context, key string) ([]domain.Listing, error) {
	data, err := lc.rdb.Get(ctx, listingKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get listings %s: %w", key, err)
	}

	var listings []domain.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("redis: unmarshal listings %s: %w", key, err)
	}
	return listings, nil
}

// Set stores listings under key with the cache TTL.
func (lc *ListingCache) Set(ctx context.Context, key string, listings []domain.Listing) error {
	data, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("redis: marshal listings %s: %w", key, err)
	}
	if err := lc.rdb.Set(ctx, listingKey(key), data, lc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set listings %s: %w", key, err)
	}
	return nil
}

var _ domain.ListingCache = (*ListingCache)(nil)
