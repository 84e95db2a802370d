package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL. One row per
// execution attempt; a retried intent overwrites its earlier failed row.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `intent_id, user_id, kind, mode, listing_id, question, outcome, token_id,
	amount_usd, percent, shares, price,
	success, order_id, status, filled_size, avg_price, error, created_at`

// Create records an execution attempt.
func (s *OrderStore) Create(ctx context.Context, r domain.OrderRecord) error {
	const query = `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (intent_id) DO UPDATE SET
			success     = EXCLUDED.success,
			order_id    = EXCLUDED.order_id,
			status      = EXCLUDED.status,
			filled_size = EXCLUDED.filled_size,
			avg_price   = EXCLUDED.avg_price,
			error       = EXCLUDED.error,
			created_at  = EXCLUDED.created_at`

	_, err := s.pool.Exec(ctx, query,
		r.IntentID, r.UserID, string(r.Kind), r.Mode, r.ListingID, r.Question, r.Outcome, r.TokenID,
		r.AmountUSD, r.Percent, r.Shares, r.Price,
		r.Result.Success, r.Result.OrderID, string(r.Result.Status), r.Result.FilledSize, r.Result.AvgPrice, r.Result.Error,
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create order %s: %w", r.IntentID, err)
	}
	return nil
}

// ListByUser returns a user's order attempts, newest first.
func (s *OrderStore) ListByUser(ctx context.Context, userID int64, opts domain.ListOpts) ([]domain.OrderRecord, error) {
	query, args := pageClause(`SELECT `+orderColumns+` FROM orders WHERE user_id = $1`, []any{userID}, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders for %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func scanOrder(row pgx.CollectableRow) (domain.OrderRecord, error) {
	var (
		r      domain.OrderRecord
		kind   string
		status string
	)
	err := row.Scan(
		&r.IntentID, &r.UserID, &kind, &r.Mode, &r.ListingID, &r.Question, &r.Outcome, &r.TokenID,
		&r.AmountUSD, &r.Percent, &r.Shares, &r.Price,
		&r.Result.Success, &r.Result.OrderID, &status, &r.Result.FilledSize, &r.Result.AvgPrice, &r.Result.Error,
		&r.CreatedAt,
	)
	if err != nil {
		return domain.OrderRecord{}, fmt.Errorf("postgres: scan order: %w", err)
	}
	r.Kind = domain.IntentKind(kind)
	r.Result.Status = domain.OrderStatus(status)
	return r, nil
}

var _ domain.OrderStore = (*OrderStore)(nil)
