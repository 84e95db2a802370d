package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

// minPositionSize hides dust left over after partial sells.
const minPositionSize = 0.01

// DataClient reads wallet holdings from the Polymarket Data API.
type DataClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDataClient creates a Data API client for baseURL, e.g.
// "https://data-api.polymarket.com".
func NewDataClient(baseURL string) *DataClient {
	return &DataClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Positions returns the open positions held by address, skipping dust and
// redeemable (resolved) holdings.
func (d *DataClient) Positions(ctx context.Context, address string) ([]domain.Position, error) {
	params := url.Values{}
	params.Set("user", address)
	params.Set("sizeThreshold", "0.01")

	body, err := getJSON(ctx, d.httpClient, d.baseURL+"/positions?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: positions: %w", err)
	}

	var raw []APIPosition
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("polymarket/data: decode positions: %w", err)
	}

	out := make([]domain.Position, 0, len(raw))
	for i := range raw {
		if float64(raw[i].Size) < minPositionSize || bool(raw[i].Redeemable) {
			continue
		}
		out = append(out, raw[i].ToPosition())
	}
	return out, nil
}
