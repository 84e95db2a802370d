// Package service composes the backend adapters behind the domain ports the
// conversation flow uses.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alanyoungcy/polytgbot/internal/domain"
	"github.com/alanyoungcy/polytgbot/internal/metrics"
)

// ListingSource finds listings upstream (Gamma).
type ListingSource interface {
	SearchListings(ctx context.Context, query string, limit int) ([]domain.Listing, error)
	ListByCategory(ctx context.Context, category string, limit int) ([]domain.Listing, error)
}

// PositionSource lists a user's holdings (paper book or live wallet).
type PositionSource interface {
	ListPositions(ctx context.Context, userID int64) ([]domain.Position, error)
}

// MarketService implements domain.MarketData. Listing queries go through
// an optional ListingCache; positions are always read fresh.
type MarketService struct {
	listings  ListingSource
	positions PositionSource
	cache     domain.ListingCache
	logger    *slog.Logger
}

// NewMarketService creates a MarketService. cache may be nil.
func NewMarketService(
	listings ListingSource,
	positions PositionSource,
	cache domain.ListingCache,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		listings:  listings,
		positions: positions,
		cache:     cache,
		logger:    logger.With(slog.String("component", "market_service")),
	}
}

// SearchListings returns listings matching a free-text query.
func (s *MarketService) SearchListings(ctx context.Context, query string, limit int) ([]domain.Listing, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	return s.cached(ctx, "search:"+q+":"+strconv.Itoa(limit), func() ([]domain.Listing, error) {
		return s.listings.SearchListings(ctx, q, limit)
	})
}

// ListByCategory returns listings under a category or sport tag.
func (s *MarketService) ListByCategory(ctx context.Context, category string, limit int) ([]domain.Listing, error) {
	return s.cached(ctx, "cat:"+category+":"+strconv.Itoa(limit), func() ([]domain.Listing, error) {
		return s.listings.ListByCategory(ctx, category, limit)
	})
}

// ListPositions returns the user's current positions.
func (s *MarketService) ListPositions(ctx context.Context, userID int64) ([]domain.Position, error) {
	positions, err := s.positions.ListPositions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("market_service: list positions: %w", err)
	}
	return positions, nil
}

func (s *MarketService) cached(ctx context.Context, key string, fetch func() ([]domain.Listing, error)) ([]domain.Listing, error) {
	if s.cache != nil {
		listings, err := s.cache.Get(ctx, key)
		if err == nil {
			metrics.IncListingFetch("cache")
			return listings, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "listing cache get failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	listings, err := fetch()
	if err != nil {
		return nil, fmt.Errorf("market_service: fetch %s: %w", key, err)
	}
	metrics.IncListingFetch("api")

	// Empty results are not cached so a sport fallback search is retried.
	if s.cache != nil && len(listings) > 0 {
		if err := s.cache.Set(ctx, key, listings); err != nil {
			s.logger.WarnContext(ctx, "listing cache set failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	return listings, nil
}
