package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polytgbot/internal/crypto"
	"github.com/alanyoungcy/polytgbot/internal/domain"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// LiveConfig describes the wallet the live trader acts for.
type LiveConfig struct {
	// Funder is the proxy wallet holding the funds. Empty means the
	// signer's own address (EOA signatures).
	Funder        string
	SignatureType int
}

// LiveTrader places fill-or-kill market orders on the CLOB for a single
// operator wallet. Every allowed Telegram user trades that wallet.
type LiveTrader struct {
	clob   *ClobClient
	data   *DataClient
	signer *crypto.Signer
	cfg    LiveConfig
	logger *slog.Logger
}

// NewLiveTrader wires a live trader. clob must have been created with signer.
func NewLiveTrader(clob *ClobClient, data *DataClient, signer *crypto.Signer, cfg LiveConfig, logger *slog.Logger) *LiveTrader {
	return &LiveTrader{
		clob:   clob,
		data:   data,
		signer: signer,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "live_trader")),
	}
}

// Wallet returns the address that holds positions.
func (t *LiveTrader) Wallet() string {
	if t.cfg.Funder != "" {
		return t.cfg.Funder
	}
	return t.signer.Address().Hex()
}

// ListPositions returns the operator wallet's positions.
func (t *LiveTrader) ListPositions(ctx context.Context, _ int64) ([]domain.Position, error) {
	return t.data.Positions(ctx, t.Wallet())
}

// PlaceBuy spends usd on tokenID at the current ask side of the book.
func (t *LiveTrader) PlaceBuy(ctx context.Context, userID int64, tokenID string, usd float64) (domain.OrderResult, error) {
	amount := decimal.NewFromFloat(usd)
	book, pd, exchange, err := t.market(ctx, tokenID)
	if err != nil {
		return domain.OrderResult{}, err
	}
	price, err := marketPrice(book, amount, true)
	if err != nil {
		return domain.OrderResult{}, err
	}
	maker, taker, err := buyAmounts(amount, price.Round(pd), pd)
	if err != nil {
		return domain.OrderResult{}, err
	}

	t.logger.InfoContext(ctx, "placing buy",
		slog.Int64("user_id", userID),
		slog.String("token_id", tokenID),
		slog.String("usd", amount.StringFixed(2)),
		slog.String("price", price.String()),
	)
	return t.submit(ctx, tokenID, "BUY", maker, taker, exchange)
}

// PlaceSell sells percent of the wallet's holding in tokenID at the bid side.
func (t *LiveTrader) PlaceSell(ctx context.Context, userID int64, tokenID string, percent int) (domain.OrderResult, error) {
	positions, err := t.data.Positions(ctx, t.Wallet())
	if err != nil {
		return domain.OrderResult{}, err
	}
	var held decimal.Decimal
	for _, p := range positions {
		if p.TokenID == tokenID {
			held = decimal.NewFromFloat(p.Size)
			break
		}
	}
	if !held.IsPositive() {
		return domain.OrderResult{}, fmt.Errorf("polymarket/trader: no holding in token: %w", domain.ErrNotFound)
	}
	shares := held
	if percent < 100 {
		shares = held.Mul(decimal.NewFromInt(int64(percent))).Div(decimal.NewFromInt(100))
	}

	book, pd, exchange, err := t.market(ctx, tokenID)
	if err != nil {
		return domain.OrderResult{}, err
	}
	price, err := marketPrice(book, shares.RoundDown(sizeDecimals), false)
	if err != nil {
		return domain.OrderResult{}, err
	}
	maker, taker, err := sellAmounts(shares, price.Round(pd), pd)
	if err != nil {
		return domain.OrderResult{}, err
	}

	t.logger.InfoContext(ctx, "placing sell",
		slog.Int64("user_id", userID),
		slog.String("token_id", tokenID),
		slog.Int("percent", percent),
		slog.String("shares", shares.StringFixed(2)),
		slog.String("price", price.String()),
	)
	return t.submit(ctx, tokenID, "SELL", maker, taker, exchange)
}

// market fetches what is needed to price and sign an order for tokenID.
func (t *LiveTrader) market(ctx context.Context, tokenID string) (OrderBook, int32, string, error) {
	book, err := t.clob.Book(ctx, tokenID)
	if err != nil {
		return OrderBook{}, 0, "", err
	}
	tick, err := t.clob.TickSize(ctx, tokenID)
	if err != nil {
		return OrderBook{}, 0, "", err
	}
	negRisk, err := t.clob.NegRisk(ctx, tokenID)
	if err != nil {
		return OrderBook{}, 0, "", err
	}
	exchange := crypto.CTFExchange
	if negRisk {
		exchange = crypto.NegRiskCTFExchange
	}
	return book, priceDecimals(tick), exchange, nil
}

func (t *LiveTrader) submit(ctx context.Context, tokenID, side string, maker, taker decimal.Decimal, exchange string) (domain.OrderResult, error) {
	payload := crypto.OrderPayload{
		Salt:          strconv.FormatInt(rand.Int64N(1<<53), 10),
		Maker:         t.Wallet(),
		Signer:        t.signer.Address().Hex(),
		Taker:         zeroAddress,
		TokenID:       tokenID,
		MakerAmount:   maker.String(),
		TakerAmount:   taker.String(),
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		SignatureType: t.cfg.SignatureType,
	}
	if side == "SELL" {
		payload.Side = 1
	}

	sig, err := t.signer.SignOrder(payload, exchange)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}
	salt, _ := strconv.ParseInt(payload.Salt, 10, 64)

	return t.clob.PostOrder(ctx, signedOrder{
		Salt:          salt,
		Maker:         payload.Maker,
		Signer:        payload.Signer,
		Taker:         payload.Taker,
		TokenID:       payload.TokenID,
		MakerAmount:   payload.MakerAmount,
		TakerAmount:   payload.TakerAmount,
		Expiration:    payload.Expiration,
		Nonce:         payload.Nonce,
		FeeRateBps:    payload.FeeRateBps,
		Side:          side,
		SignatureType: payload.SignatureType,
		Signature:     sig,
	}, "FOK")
}
