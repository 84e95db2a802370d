// Package paper simulates order execution against live midpoint prices so
// the bot can be exercised without a funded wallet.
package paper

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

// dustShares is the size below which a holding is dropped after a sell.
var dustShares = decimal.RequireFromString("0.000001")

// PriceSource quotes the current price of an outcome token.
type PriceSource interface {
	Midpoint(ctx context.Context, tokenID string) (float64, error)
}

// ListingLookup finds the listing an outcome token belongs to. It is only
// used to label holdings.
type ListingLookup interface {
	ListingByToken(ctx context.Context, tokenID string) (domain.Listing, error)
}

type holding struct {
	tokenID  string
	listing  domain.Listing
	outcome  string
	shares   decimal.Decimal
	cost     decimal.Decimal
	lastSeen float64
}

// Broker is an in-memory book of simulated holdings, one per user. It
// implements domain.Trader and the positions half of domain.MarketData.
type Broker struct {
	prices   PriceSource
	listings ListingLookup
	logger   *slog.Logger

	mu    sync.Mutex
	books map[int64]map[string]*holding
}

// NewBroker creates an empty paper broker. listings may be nil.
func NewBroker(prices PriceSource, listings ListingLookup, logger *slog.Logger) *Broker {
	return &Broker{
		prices:   prices,
		listings: listings,
		logger:   logger.With(slog.String("component", "paper_broker")),
		books:    make(map[int64]map[string]*holding),
	}
}

// PlaceBuy fills usd worth of tokenID at the current midpoint.
func (b *Broker) PlaceBuy(ctx context.Context, userID int64, tokenID string, usd float64) (domain.OrderResult, error) {
	price, err := b.quote(ctx, tokenID)
	if err != nil {
		return domain.OrderResult{}, err
	}
	amount := decimal.NewFromFloat(usd)
	shares := amount.Div(price).Round(6)

	listing, outcome := b.describe(ctx, tokenID)

	b.mu.Lock()
	book := b.books[userID]
	if book == nil {
		book = make(map[string]*holding)
		b.books[userID] = book
	}
	h := book[tokenID]
	if h == nil {
		h = &holding{tokenID: tokenID, listing: listing, outcome: outcome}
		book[tokenID] = h
	}
	h.shares = h.shares.Add(shares)
	h.cost = h.cost.Add(amount)
	h.lastSeen, _ = price.Float64()
	b.mu.Unlock()

	b.logger.InfoContext(ctx, "paper buy filled",
		slog.Int64("user_id", userID),
		slog.String("token_id", tokenID),
		slog.String("usd", amount.StringFixed(2)),
		slog.String("shares", shares.StringFixed(4)),
	)
	return filled(shares, price), nil
}

// PlaceSell sells percent of the user's holding in tokenID at the current
// midpoint.
func (b *Broker) PlaceSell(ctx context.Context, userID int64, tokenID string, percent int) (domain.OrderResult, error) {
	if percent < 1 || percent > 100 {
		return domain.OrderResult{}, fmt.Errorf("paper: sell %d%%: %w", percent, domain.ErrInvalidOrder)
	}
	price, err := b.quote(ctx, tokenID)
	if err != nil {
		return domain.OrderResult{}, err
	}

	b.mu.Lock()
	h := b.books[userID][tokenID]
	if h == nil || !h.shares.IsPositive() {
		b.mu.Unlock()
		return domain.OrderResult{}, fmt.Errorf("paper: no holding in token: %w", domain.ErrNotFound)
	}
	sold := h.shares
	if percent < 100 {
		sold = h.shares.Mul(decimal.NewFromInt(int64(percent))).Div(decimal.NewFromInt(100)).Round(6)
	}
	// Cost basis shrinks proportionally so the average entry is unchanged.
	h.cost = h.cost.Sub(h.cost.Mul(sold).Div(h.shares))
	h.shares = h.shares.Sub(sold)
	h.lastSeen, _ = price.Float64()
	if h.shares.LessThan(dustShares) {
		delete(b.books[userID], tokenID)
	}
	b.mu.Unlock()

	b.logger.InfoContext(ctx, "paper sell filled",
		slog.Int64("user_id", userID),
		slog.String("token_id", tokenID),
		slog.Int("percent", percent),
		slog.String("shares", sold.StringFixed(4)),
	)
	return filled(sold, price), nil
}

// ListPositions marks every holding of userID to the current midpoint. A
// holding whose quote fails keeps its last seen price.
func (b *Broker) ListPositions(ctx context.Context, userID int64) ([]domain.Position, error) {
	b.mu.Lock()
	snapshot := make([]holding, 0, len(b.books[userID]))
	for _, h := range b.books[userID] {
		snapshot = append(snapshot, *h)
	}
	b.mu.Unlock()

	out := make([]domain.Position, 0, len(snapshot))
	for _, h := range snapshot {
		current := h.lastSeen
		if p, err := b.prices.Midpoint(ctx, h.tokenID); err == nil && p > 0 {
			current = p
		} else if err != nil {
			b.logger.WarnContext(ctx, "paper quote failed", slog.String("token_id", h.tokenID), slog.String("error", err.Error()))
		}
		size, _ := h.shares.Float64()
		avg, _ := h.cost.Div(h.shares).Float64()
		out = append(out, domain.NewPosition(domain.Position{
			ListingID:    h.listing.ID,
			ConditionID:  h.listing.ConditionID,
			Question:     h.listing.Question,
			Outcome:      h.outcome,
			TokenID:      h.tokenID,
			Size:         size,
			AvgPrice:     avg,
			CurrentPrice: current,
		}))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Question != out[j].Question {
			return out[i].Question < out[j].Question
		}
		return out[i].TokenID < out[j].TokenID
	})
	return out, nil
}

func (b *Broker) quote(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	p, err := b.prices.Midpoint(ctx, tokenID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("paper: quote: %w", err)
	}
	if p <= 0 || p >= 1 {
		return decimal.Zero, fmt.Errorf("paper: quote %.4f: %w", p, domain.ErrInvalidOrder)
	}
	return decimal.NewFromFloat(p), nil
}

// describe labels a token with its listing and outcome. Lookup failures
// leave a placeholder label.
func (b *Broker) describe(ctx context.Context, tokenID string) (domain.Listing, string) {
	unknown := domain.Listing{Question: "Unknown market"}
	if b.listings == nil {
		return unknown, "?"
	}
	l, err := b.listings.ListingByToken(ctx, tokenID)
	if err != nil {
		b.logger.WarnContext(ctx, "listing lookup failed", slog.String("token_id", tokenID), slog.String("error", err.Error()))
		return unknown, "?"
	}
	for _, o := range l.Outcomes {
		if o.TokenID == tokenID {
			return l, o.Label
		}
	}
	return l, "?"
}

func filled(shares, price decimal.Decimal) domain.OrderResult {
	size, _ := shares.Float64()
	avg, _ := price.Float64()
	return domain.OrderResult{
		Success:    true,
		OrderID:    "paper-" + uuid.NewString(),
		Status:     domain.OrderStatusMatched,
		FilledSize: size,
		AvgPrice:   avg,
	}
}
