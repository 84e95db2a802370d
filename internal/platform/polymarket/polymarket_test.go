package polymarket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polytgbot/internal/crypto"
	"github.com/alanyoungcy/polytgbot/internal/domain"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

const eventsJSON = `[
  {"id":"e1","title":"Lakers vs Celtics","markets":[
    {"id":"m1","question":"Lakers win?","conditionId":"0xc1","slug":"lakers",
     "outcomes":"[\"Yes\", \"No\"]","outcomePrices":"[\"0.6\", \"0.4\"]",
     "clobTokenIds":"[\"111\", \"222\"]","volume":"1234.5",
     "active":true,"closed":false,"enableOrderBook":true},
    {"id":"m2","question":"Closed one","outcomes":"[\"Yes\", \"No\"]",
     "clobTokenIds":"[\"3\", \"4\"]","active":true,"closed":true,"enableOrderBook":true}
  ]},
  {"id":"e2","title":"Three-way","markets":[
    {"id":"m3","question":"Who?","outcomes":"[\"A\",\"B\",\"C\"]",
     "clobTokenIds":"[\"5\",\"6\",\"7\"]","active":"true","closed":"false","enableOrderBook":true},
    {"id":"m4","question":"Up or down?","outcomes":["Up","Down"],"outcomePrices":["0.51","0.49"],
     "clobTokenIds":["8","9"],"volume":10,"active":"true","closed":"false","enableOrderBook":"true"}
  ]}
]`

func TestGammaListByCategory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		assert.Equal(t, "nba", r.URL.Query().Get("tag_slug"))
		assert.Equal(t, "false", r.URL.Query().Get("closed"))
		_, _ = w.Write([]byte(eventsJSON))
	}))
	defer srv.Close()

	listings, err := NewGammaClient(srv.URL).ListByCategory(context.Background(), "nba", 10)
	require.NoError(t, err)
	require.Len(t, listings, 2)

	l := listings[0]
	assert.Equal(t, "m1", l.ID)
	assert.Equal(t, "Lakers win?", l.Question)
	assert.Equal(t, "111", l.Outcomes[0].TokenID)
	assert.Equal(t, "No", l.Outcomes[1].Label)
	assert.InDelta(t, 0.6, l.YesPrice(), 1e-9)
	assert.InDelta(t, 1234.5, l.Volume, 1e-9)

	assert.Equal(t, "Up", listings[1].Outcomes[0].Label)
	assert.InDelta(t, 0.49, listings[1].NoPrice(), 1e-9)
}

func TestGammaSearchRespectsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/public-search", r.URL.Path)
		assert.Equal(t, "lakers", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"events":` + eventsJSON + `}`))
	}))
	defer srv.Close()

	listings, err := NewGammaClient(srv.URL).SearchListings(context.Background(), "lakers", 1)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "m1", listings[0].ID)
}

func TestGammaListingByToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("clob_token_ids") == "111" {
			_, _ = w.Write([]byte(`[{"id":"m1","question":"Lakers win?","outcomes":"[\"Yes\",\"No\"]",
				"clobTokenIds":"[\"111\",\"222\"]","closed":true}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL)
	l, err := g.ListingByToken(context.Background(), "111")
	require.NoError(t, err)
	assert.Equal(t, "Lakers win?", l.Question)

	_, err = g.ListingByToken(context.Background(), "999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDataPositions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0xabc", r.URL.Query().Get("user"))
		_, _ = w.Write([]byte(`[
		  {"asset":"111","conditionId":"0xc1","size":10,"avgPrice":0.5,"curPrice":0.6,
		   "currentValue":6,"cashPnl":1,"title":"Lakers win?","outcome":"Yes"},
		  {"asset":"222","size":0.001,"title":"dust"},
		  {"asset":"333","size":5,"redeemable":true,"title":"resolved"}
		]`))
	}))
	defer srv.Close()

	positions, err := NewDataClient(srv.URL).Positions(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	p := positions[0]
	assert.Equal(t, "111", p.TokenID)
	assert.Equal(t, "Yes", p.Outcome)
	assert.InDelta(t, 6.0, p.Value, 1e-9)
	assert.InDelta(t, 1.0, p.PnL, 1e-9)
}

func TestCheckHTTPStatus(t *testing.T) {
	assert.NoError(t, checkHTTPStatus(200, nil))
	assert.ErrorIs(t, checkHTTPStatus(404, []byte("x")), domain.ErrNotFound)
	assert.ErrorIs(t, checkHTTPStatus(401, nil), domain.ErrUnauthorized)
	assert.ErrorIs(t, checkHTTPStatus(429, nil), domain.ErrRateLimited)

	err := checkHTTPStatus(400, []byte(`{"errorMsg":"not enough balance / allowance"}`))
	require.Error(t, err)
	assert.Equal(t, "HTTP 400: not enough balance / allowance", err.Error())
}

func TestMarketPrice(t *testing.T) {
	book := OrderBook{
		Asks: []BookLevel{{Price: 0.62, Size: 100}, {Price: 0.60, Size: 10}},
		Bids: []BookLevel{{Price: 0.55, Size: 3}, {Price: 0.58, Size: 4}},
	}

	p, err := marketPrice(book, decimal.NewFromInt(5), true)
	require.NoError(t, err)
	assert.Equal(t, "0.6", p.String())

	p, err = marketPrice(book, decimal.NewFromInt(30), true)
	require.NoError(t, err)
	assert.Equal(t, "0.62", p.String())

	p, err = marketPrice(book, decimal.NewFromInt(6), false)
	require.NoError(t, err)
	assert.Equal(t, "0.55", p.String())

	_, err = marketPrice(book, decimal.NewFromInt(8), false)
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}

func TestOrderAmounts(t *testing.T) {
	maker, taker, err := buyAmounts(decimal.NewFromInt(30), decimal.RequireFromString("0.60"), 2)
	require.NoError(t, err)
	assert.Equal(t, "30000000", maker.String())
	assert.Equal(t, "50000000", taker.String())

	maker, taker, err = sellAmounts(decimal.RequireFromString("5.009"), decimal.RequireFromString("0.6"), 2)
	require.NoError(t, err)
	assert.Equal(t, "5000000", maker.String())
	assert.Equal(t, "3000000", taker.String())

	_, _, err = buyAmounts(decimal.NewFromInt(1), decimal.Zero, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	assert.Equal(t, int32(3), priceDecimals(0.001))
	assert.Equal(t, int32(2), priceDecimals(0))
}

func newClobServer(t *testing.T, orderHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/book", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"asset_id":"111","asks":[{"price":"0.60","size":"1000"}],"bids":[{"price":"0.58","size":"1000"}]}`))
	})
	mux.HandleFunc("/tick-size", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"minimum_tick_size":0.01}`))
	})
	mux.HandleFunc("/neg-risk", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"neg_risk":false}`))
	})
	mux.HandleFunc("/positions", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"asset":"111","size":10,"curPrice":0.6}]`))
	})
	mux.HandleFunc("/order", orderHandler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestTrader(t *testing.T, url string) *LiveTrader {
	t.Helper()
	signer, err := crypto.NewSigner(testKey, 137)
	require.NoError(t, err)
	creds := &crypto.APICreds{Key: "api-key", Secret: "c2VjcmV0", Passphrase: "pp"}
	clob := NewClobClient(url, signer, creds)
	return NewLiveTrader(clob, NewDataClient(url), signer, LiveConfig{}, discard())
}

func TestLiveTraderPlaceBuy(t *testing.T) {
	var got postOrderRequest
	srv := newClobServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "api-key", r.Header.Get("POLY_API_KEY"))
		assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"orderID":"0xord","status":"matched","makingAmount":"30","takingAmount":"50"}`))
	})

	res, err := newTestTrader(t, srv.URL).PlaceBuy(context.Background(), 42, "111", 30)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "0xord", res.OrderID)
	assert.Equal(t, domain.OrderStatusMatched, res.Status)
	assert.InDelta(t, 50.0, res.FilledSize, 1e-9)
	assert.InDelta(t, 0.6, res.AvgPrice, 1e-9)

	assert.Equal(t, "FOK", got.OrderType)
	assert.Equal(t, "api-key", got.Owner)
	assert.Equal(t, "BUY", got.Order.Side)
	assert.Equal(t, "30000000", got.Order.MakerAmount)
	assert.Equal(t, "50000000", got.Order.TakerAmount)
	assert.Equal(t, "111", got.Order.TokenID)
	assert.Len(t, got.Order.Signature, 132)
}

func TestLiveTraderPlaceSellHalf(t *testing.T) {
	var got postOrderRequest
	srv := newClobServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"orderID":"0xs","status":"matched","makingAmount":"5","takingAmount":"2.9"}`))
	})

	res, err := newTestTrader(t, srv.URL).PlaceSell(context.Background(), 42, "111", 50)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.InDelta(t, 5.0, res.FilledSize, 1e-9)
	assert.Equal(t, "SELL", got.Order.Side)
	assert.Equal(t, "5000000", got.Order.MakerAmount)
	assert.Equal(t, "2900000", got.Order.TakerAmount)
}

func TestLiveTraderRejectedOrder(t *testing.T) {
	srv := newClobServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorMsg":"order couldn't be fully filled, FOK orders are fully filled or killed"}`))
	})

	_, err := newTestTrader(t, srv.URL).PlaceBuy(context.Background(), 42, "111", 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOK orders are fully filled or killed")
}

func TestLiveTraderSellWithoutHolding(t *testing.T) {
	srv := newClobServer(t, func(http.ResponseWriter, *http.Request) {
		t.Error("order must not be posted")
	})
	_, err := newTestTrader(t, srv.URL).PlaceSell(context.Background(), 42, "999", 50)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostOrderWithoutCreds(t *testing.T) {
	c := NewClobClient("http://unused", nil, nil)
	_, err := c.PostOrder(context.Background(), signedOrder{}, "FOK")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDeriveAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/derive-api-key", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
		assert.Equal(t, "0", r.Header.Get("POLY_NONCE"))
		_, _ = w.Write([]byte(`{"apiKey":"k","secret":"s","passphrase":"p"}`))
	}))
	defer srv.Close()

	signer, err := crypto.NewSigner(testKey, 137)
	require.NoError(t, err)
	c := NewClobClient(srv.URL, signer, nil)
	creds, err := c.DeriveAPIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "k", creds.Key)
	assert.Same(t, creds, c.Creds())
}
