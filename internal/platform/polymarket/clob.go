package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/alanyoungcy/polytgbot/internal/crypto"
	"github.com/alanyoungcy/polytgbot/internal/domain"
)

// ClobClient is the REST client for the Polymarket CLOB (Central Limit
// Order Book) API: books, tick sizes and order placement.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	signer     *crypto.Signer

	mu    sync.RWMutex
	creds *crypto.APICreds
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
// signer may be nil for read-only use (books and prices). creds may be nil
// until DeriveAPIKey is called.
func NewClobClient(baseURL string, signer *crypto.Signer, creds *crypto.APICreds) *ClobClient {
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer: signer,
		creds:  creds,
	}
}

// Book returns the current order book for a token.
func (c *ClobClient) Book(ctx context.Context, tokenID string) (OrderBook, error) {
	body, err := getJSON(ctx, c.httpClient, c.baseURL+"/book?token_id="+url.QueryEscape(tokenID))
	if err != nil {
		return OrderBook{}, fmt.Errorf("polymarket/clob: book: %w", err)
	}
	var book OrderBook
	if err := json.Unmarshal(body, &book); err != nil {
		return OrderBook{}, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}
	return book, nil
}

// Midpoint returns the midpoint between best bid and best ask.
func (c *ClobClient) Midpoint(ctx context.Context, tokenID string) (float64, error) {
	body, err := getJSON(ctx, c.httpClient, c.baseURL+"/midpoint?token_id="+url.QueryEscape(tokenID))
	if err != nil {
		return 0, fmt.Errorf("polymarket/clob: midpoint: %w", err)
	}
	var resp struct {
		Mid flexFloat `json:"mid"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("polymarket/clob: decode midpoint: %w", err)
	}
	return float64(resp.Mid), nil
}

// TickSize returns the minimum price increment for a token.
func (c *ClobClient) TickSize(ctx context.Context, tokenID string) (float64, error) {
	body, err := getJSON(ctx, c.httpClient, c.baseURL+"/tick-size?token_id="+url.QueryEscape(tokenID))
	if err != nil {
		return 0, fmt.Errorf("polymarket/clob: tick size: %w", err)
	}
	var resp struct {
		MinimumTickSize flexFloat `json:"minimum_tick_size"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("polymarket/clob: decode tick size: %w", err)
	}
	return float64(resp.MinimumTickSize), nil
}

// NegRisk reports whether the token trades on the neg-risk exchange.
func (c *ClobClient) NegRisk(ctx context.Context, tokenID string) (bool, error) {
	body, err := getJSON(ctx, c.httpClient, c.baseURL+"/neg-risk?token_id="+url.QueryEscape(tokenID))
	if err != nil {
		return false, fmt.Errorf("polymarket/clob: neg risk: %w", err)
	}
	var resp struct {
		NegRisk flexBool `json:"neg_risk"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("polymarket/clob: decode neg risk: %w", err)
	}
	return bool(resp.NegRisk), nil
}

// PostOrder submits a signed order. A rejection reported in the response
// body comes back as a result with Success=false and the CLOB's message.
func (c *ClobClient) PostOrder(ctx context.Context, order signedOrder, orderType string) (domain.OrderResult, error) {
	creds := c.Creds()
	if creds == nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: post order: %w", domain.ErrUnauthorized)
	}

	req := postOrderRequest{Order: order, Owner: creds.Key, OrderType: orderType}
	respBody, err := c.doAuthenticatedRequest(ctx, http.MethodPost, "/order", req)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: post order: %w", err)
	}

	var apiResult APIOrderResult
	if err := json.Unmarshal(respBody, &apiResult); err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: decode order result: %w", err)
	}
	return apiResult.toOrderResult(order.Side == "SELL"), nil
}

// DeriveAPIKey obtains L2 credentials for the signer's wallet, creating
// them when none exist yet, and installs them on the client.
func (c *ClobClient) DeriveAPIKey(ctx context.Context) (*crypto.APICreds, error) {
	if c.signer == nil {
		return nil, errors.New("polymarket/clob: derive api key: no signer")
	}

	creds, err := c.l1Request(ctx, http.MethodGet, "/auth/derive-api-key")
	if err != nil {
		creds, err = c.l1Request(ctx, http.MethodPost, "/auth/api-key")
	}
	if err != nil {
		return nil, fmt.Errorf("polymarket/clob: derive api key: %w", err)
	}

	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
	return creds, nil
}

// Creds returns the installed L2 credentials, or nil.
func (c *ClobClient) Creds() *crypto.APICreds {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

func (c *ClobClient) l1Request(ctx context.Context, method, path string) (*crypto.APICreds, error) {
	ts := time.Now().Unix()
	sig, err := c.signer.SignAuthMessage(ts, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("POLY_ADDRESS", c.signer.Address().Hex())
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", strconv.FormatInt(ts, 10))
	req.Header.Set("POLY_NONCE", "0")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp apiKeyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode api key: %w", err)
	}
	if resp.APIKey == "" {
		return nil, errors.New("empty api key in response")
	}
	return &crypto.APICreds{Key: resp.APIKey, Secret: resp.Secret, Passphrase: resp.Passphrase}, nil
}

// doAuthenticatedRequest sends a JSON request with L2 HMAC headers.
func (c *ClobClient) doAuthenticatedRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var (
		bodyReader io.Reader
		bodyStr    string
	)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyStr = string(data)
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if creds := c.Creds(); creds != nil && c.signer != nil {
		for k, v := range creds.L2Headers(c.signer.Address().Hex(), method, path, bodyStr) {
			req.Header.Set(k, v)
		}
	}

	return c.do(req)
}

func (c *ClobClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors. The CLOB's
// own error message is used as detail when the body carries one.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	detail := string(body)
	var msg struct {
		Error    string `json:"error"`
		ErrorMsg string `json:"errorMsg"`
	}
	if json.Unmarshal(body, &msg) == nil {
		switch {
		case msg.ErrorMsg != "":
			detail = msg.ErrorMsg
		case msg.Error != "":
			detail = msg.Error
		}
	}

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, detail)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, detail)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, detail)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, detail)
	}
}
