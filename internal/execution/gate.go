// Package execution turns a confirmed intent into exactly one trading
// backend call and records what happened.
package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polytgbot/internal/domain"
	"github.com/alanyoungcy/polytgbot/internal/metrics"
)

// OrdersChannel is the bus channel execution events are published on.
const OrdersChannel = "orders"

// Alerter forwards operator notifications.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// ReceiptWriter archives a receipt for an execution attempt.
type ReceiptWriter interface {
	WriteReceipt(ctx context.Context, rec domain.OrderRecord) error
}

// Effects are the best-effort side effects run after every attempt. Any
// field may be nil. Failures are logged and never change the result.
type Effects struct {
	Orders   domain.OrderStore
	Audit    domain.AuditStore
	Bus      domain.SignalBus
	Receipts ReceiptWriter
	Alerts   Alerter
}

// Gate validates confirmed intents and places their orders.
type Gate struct {
	trader  domain.Trader
	ledger  *Ledger
	effects Effects
	mode    string
	logger  *slog.Logger
}

// NewGate creates a Gate. mode is "paper" or "live" and is only recorded.
func NewGate(trader domain.Trader, ledger *Ledger, effects Effects, mode string, logger *slog.Logger) *Gate {
	return &Gate{
		trader:  trader,
		ledger:  ledger,
		effects: effects,
		mode:    mode,
		logger:  logger.With(slog.String("component", "execution_gate")),
	}
}

// Mode returns the configured trading mode.
func (g *Gate) Mode() string { return g.mode }

// Execute places the order for a Confirmed intent.
//
// On success the intent moves to StageExecuted and carries the result. On a
// backend failure it stays Confirmed so the same confirmation can be retried;
// the returned result holds the backend's error detail and the error wraps
// domain.ErrBackendFailure. An intent that already executed yields
// domain.ErrAlreadyExecuted and no backend call. If the backend call never
// returns (it panics), the outcome is unknown and later attempts yield
// domain.ErrSessionExpired until the ledger TTL passes.
func (g *Gate) Execute(ctx context.Context, userID int64, in *domain.Intent) (domain.OrderResult, error) {
	if in == nil {
		return domain.OrderResult{}, fmt.Errorf("execution: no intent: %w", domain.ErrSessionExpired)
	}

	switch in.Stage {
	case domain.StageExecuted:
		var prior domain.OrderResult
		if in.Result != nil {
			prior = *in.Result
		}
		return prior, fmt.Errorf("execution: intent %s: %w", in.ID, domain.ErrAlreadyExecuted)
	case domain.StageConfirmed:
	default:
		return domain.OrderResult{}, fmt.Errorf("execution: intent %s at stage %s: %w", in.ID, in.Stage, domain.ErrNotConfirmed)
	}

	if !in.HasOrderParams() {
		return domain.OrderResult{}, fmt.Errorf("execution: intent %s missing order parameters: %w", in.ID, domain.ErrSessionExpired)
	}

	if g.ledger.Executed(in.ID) {
		return domain.OrderResult{}, fmt.Errorf("execution: intent %s: %w", in.ID, domain.ErrAlreadyExecuted)
	}
	if g.ledger.Unknown(in.ID) {
		return domain.OrderResult{}, fmt.Errorf("execution: intent %s outcome unknown: %w", in.ID, domain.ErrSessionExpired)
	}
	if !g.ledger.Begin(in.ID) {
		return domain.OrderResult{}, fmt.Errorf("execution: intent %s in flight: %w", in.ID, domain.ErrBusy)
	}
	finished := false
	defer func() {
		if !finished {
			g.ledger.Abandon(in.ID)
			g.logger.ErrorContext(ctx, "order call did not return",
				slog.String("intent_id", in.ID),
				slog.Int64("user_id", userID),
			)
		}
	}()

	order := Derive(in)

	g.logger.InfoContext(ctx, "placing order",
		slog.String("intent_id", in.ID),
		slog.Int64("user_id", userID),
		slog.String("kind", string(in.Kind)),
		slog.String("token_id", order.TokenID),
		slog.Float64("amount_usd", order.AmountUSD),
		slog.Int("percent", order.Percent),
		slog.Float64("shares", order.Shares),
	)

	start := time.Now()
	var (
		res domain.OrderResult
		err error
	)
	switch in.Kind {
	case domain.IntentBuy:
		res, err = g.trader.PlaceBuy(ctx, userID, order.TokenID, order.AmountUSD)
	case domain.IntentSell:
		res, err = g.trader.PlaceSell(ctx, userID, order.TokenID, order.Percent)
	}
	elapsed := time.Since(start)

	if err == nil && !res.Success {
		detail := res.Error
		if detail == "" {
			detail = "order not accepted"
		}
		err = errors.New(detail)
	}
	if err != nil {
		res.Success = false
		res.Status = domain.OrderStatusFailed
		if res.Error == "" {
			res.Error = err.Error()
		}
	}

	g.ledger.Finish(in.ID, err == nil)
	finished = true
	metrics.ObserveOrder(string(in.Kind), g.mode, err == nil, elapsed.Seconds())

	if err == nil {
		now := time.Now().UTC()
		in.Stage = domain.StageExecuted
		in.ExecutedAt = &now
		in.Result = &res
	} else {
		g.logger.WarnContext(ctx, "order failed",
			slog.String("intent_id", in.ID),
			slog.Int64("user_id", userID),
			slog.String("error", res.Error),
		)
	}

	g.record(ctx, userID, in, order, res)

	if err != nil {
		return res, fmt.Errorf("execution: intent %s: %w: %s", in.ID, domain.ErrBackendFailure, res.Error)
	}
	return res, nil
}

// Event is the JSON payload published on OrdersChannel.
type Event struct {
	IntentID  string    `json:"intent_id"`
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"`
	Mode      string    `json:"mode"`
	Question  string    `json:"question"`
	Outcome   string    `json:"outcome"`
	AmountUSD float64   `json:"amount_usd,omitempty"`
	Percent   int       `json:"percent,omitempty"`
	Shares    float64   `json:"shares"`
	Success   bool      `json:"success"`
	OrderID   string    `json:"order_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

func (g *Gate) record(ctx context.Context, userID int64, in *domain.Intent, order Order, res domain.OrderResult) {
	rec := domain.OrderRecord{
		IntentID:  in.ID,
		UserID:    userID,
		Kind:      in.Kind,
		Mode:      g.mode,
		TokenID:   order.TokenID,
		AmountUSD: order.AmountUSD,
		Percent:   order.Percent,
		Shares:    order.Shares,
		Price:     order.Price,
		Outcome:   in.Outcome,
		Result:    res,
		CreatedAt: time.Now().UTC(),
	}
	switch {
	case in.Listing != nil:
		rec.ListingID = in.Listing.ID
		rec.Question = in.Listing.Question
	case in.Position != nil:
		rec.ListingID = in.Position.ListingID
		rec.Question = in.Position.Question
	}

	// Side effects must not be cut short by the caller going away.
	ctx = context.WithoutCancel(ctx)
	fx := g.effects

	if fx.Orders != nil {
		if err := fx.Orders.Create(ctx, rec); err != nil {
			g.warn(ctx, "order store", err)
		}
	}

	if fx.Audit != nil {
		event := "order_executed"
		if !res.Success {
			event = "order_failed"
		}
		detail := map[string]any{
			"intent_id": rec.IntentID,
			"user_id":   rec.UserID,
			"kind":      string(rec.Kind),
			"mode":      rec.Mode,
			"token_id":  rec.TokenID,
			"order_id":  res.OrderID,
			"error":     res.Error,
		}
		if err := fx.Audit.Log(ctx, event, detail); err != nil {
			g.warn(ctx, "audit", err)
		}
	}

	if fx.Bus != nil {
		payload, err := json.Marshal(Event{
			IntentID:  rec.IntentID,
			UserID:    rec.UserID,
			Kind:      string(rec.Kind),
			Mode:      rec.Mode,
			Question:  rec.Question,
			Outcome:   rec.Outcome,
			AmountUSD: rec.AmountUSD,
			Percent:   rec.Percent,
			Shares:    rec.Shares,
			Success:   res.Success,
			OrderID:   res.OrderID,
			Error:     res.Error,
			At:        rec.CreatedAt,
		})
		if err == nil {
			err = fx.Bus.Publish(ctx, OrdersChannel, payload)
		}
		if err != nil {
			g.warn(ctx, "bus publish", err)
		}
	}

	if fx.Receipts != nil && res.Success {
		if err := fx.Receipts.WriteReceipt(ctx, rec); err != nil {
			g.warn(ctx, "receipt", err)
		}
	}

	if fx.Alerts != nil {
		if err := fx.Alerts.Notify(ctx, alertEvent(res), alertTitle(rec), alertBody(rec)); err != nil {
			g.warn(ctx, "alert", err)
		}
	}
}

func (g *Gate) warn(ctx context.Context, effect string, err error) {
	g.logger.WarnContext(ctx, "post-execution effect failed",
		slog.String("effect", effect),
		slog.String("error", err.Error()),
	)
}

func alertEvent(res domain.OrderResult) string {
	if res.Success {
		return "order_filled"
	}
	return "order_failed"
}

func alertTitle(rec domain.OrderRecord) string {
	status := "filled"
	if !rec.Result.Success {
		status = "failed"
	}
	return fmt.Sprintf("[%s] %s %s", modeLabel(rec.Mode), rec.Kind, status)
}

func alertBody(rec domain.OrderRecord) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "user %d\n%s\n%s", rec.UserID, rec.Question, rec.Outcome)
	switch rec.Kind {
	case domain.IntentBuy:
		fmt.Fprintf(&b, " $%.2f (~%.2f shares)", rec.AmountUSD, rec.Shares)
	case domain.IntentSell:
		fmt.Fprintf(&b, " %d%% (%.2f shares)", rec.Percent, rec.Shares)
	}
	if rec.Result.OrderID != "" {
		fmt.Fprintf(&b, "\norder %s", rec.Result.OrderID)
	}
	if rec.Result.Error != "" {
		fmt.Fprintf(&b, "\nerror: %s", rec.Result.Error)
	}
	return b.String()
}

func modeLabel(mode string) string {
	if mode == "live" {
		return "LIVE"
	}
	return "PAPER"
}
