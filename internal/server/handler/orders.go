package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

// OrderHandler exposes the persisted order history.
type OrderHandler struct {
	orders domain.OrderStore
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler backed by orders.
func NewOrderHandler(orders domain.OrderStore, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logHandler(logger, "orders")}
}

type orderJSON struct {
	IntentID  string  `json:"intent_id"`
	UserID    int64   `json:"user_id"`
	Kind      string  `json:"kind"`
	Mode      string  `json:"mode"`
	Question  string  `json:"question"`
	Outcome   string  `json:"outcome"`
	TokenID   string  `json:"token_id"`
	AmountUSD float64 `json:"amount_usd,omitempty"`
	Percent   int     `json:"percent,omitempty"`
	Price     float64 `json:"price"`
	Success   bool    `json:"success"`
	OrderID   string  `json:"order_id,omitempty"`
	Status    string  `json:"status,omitempty"`
	Filled    float64 `json:"filled_size"`
	Error     string  `json:"error,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// ListOrders returns a user's orders, newest first.
// GET /api/orders?user_id=...&limit=&offset=&since=&until=
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	recs, err := h.orders.ListByUser(r.Context(), userID, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list orders failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	out := make([]orderJSON, 0, len(recs))
	for _, rec := range recs {
		out = append(out, orderJSON{
			IntentID:  rec.IntentID,
			UserID:    rec.UserID,
			Kind:      string(rec.Kind),
			Mode:      rec.Mode,
			Question:  rec.Question,
			Outcome:   rec.Outcome,
			TokenID:   rec.TokenID,
			AmountUSD: rec.AmountUSD,
			Percent:   rec.Percent,
			Price:     rec.Price,
			Success:   rec.Result.Success,
			OrderID:   rec.Result.OrderID,
			Status:    string(rec.Result.Status),
			Filled:    rec.Result.FilledSize,
			Error:     rec.Result.Error,
			CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}
