package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery and search.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string) *GammaClient {
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SearchListings runs a free-text search and returns up to limit tradable
// listings in relevance order.
func (g *GammaClient) SearchListings(ctx context.Context, query string, limit int) ([]domain.Listing, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit_per_type", strconv.Itoa(limit))
	params.Set("events_status", "active")

	body, err := g.doGet(ctx, "/public-search?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: search %q: %w", query, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode search: %w", err)
	}
	return listingsFromEvents(resp.Events, limit), nil
}

// ListByCategory returns up to limit tradable listings from active events
// carrying the tag slug, highest 24h volume first.
func (g *GammaClient) ListByCategory(ctx context.Context, tag string, limit int) ([]domain.Listing, error) {
	params := url.Values{}
	params.Set("tag_slug", tag)
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("order", "volume24hr")
	params.Set("ascending", "false")

	body, err := g.doGet(ctx, "/events?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: events for %q: %w", tag, err)
	}

	var events []APIEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode events: %w", err)
	}
	return listingsFromEvents(events, limit), nil
}

// ListingByToken looks up the listing that owns an outcome token.
func (g *GammaClient) ListingByToken(ctx context.Context, tokenID string) (domain.Listing, error) {
	params := url.Values{}
	params.Set("clob_token_ids", tokenID)

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return domain.Listing{}, fmt.Errorf("polymarket/gamma: market for token: %w", err)
	}

	var markets []APIMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return domain.Listing{}, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}
	for i := range markets {
		// Closed markets are still useful for labelling a held token.
		m := markets[i]
		m.Active, m.Closed, m.EnableOrderBook = true, false, true
		if l, ok := m.ToListing(); ok {
			return l, nil
		}
	}
	return domain.Listing{}, fmt.Errorf("polymarket/gamma: token %s: %w", tokenID, domain.ErrNotFound)
}

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	return getJSON(ctx, g.httpClient, g.baseURL+path)
}

// getJSON is the shared unauthenticated GET used by the Gamma, Data and
// public CLOB endpoints.
func getJSON(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}
