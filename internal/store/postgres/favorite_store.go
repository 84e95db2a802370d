package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

// FavoriteStore implements domain.FavoriteStore using PostgreSQL.
type FavoriteStore struct {
	pool *pgxpool.Pool
}

// NewFavoriteStore creates a FavoriteStore backed by the given pool.
func NewFavoriteStore(pool *pgxpool.Pool) *FavoriteStore {
	return &FavoriteStore{pool: pool}
}

const favoriteColumns = `id, user_id, listing_id, label, outcome, side, token_id, price, created_at`

// Add saves fav. Saving an outcome the user already has refreshes its price
// and returns the existing row.
func (s *FavoriteStore) Add(ctx context.Context, fav domain.Favorite) (domain.Favorite, error) {
	const query = `
		INSERT INTO favorites (user_id, listing_id, label, outcome, side, token_id, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, token_id) DO UPDATE SET price = EXCLUDED.price
		RETURNING ` + favoriteColumns

	rows, err := s.pool.Query(ctx, query,
		fav.UserID, fav.ListingID, fav.Label, fav.Outcome, int16(fav.Side), fav.TokenID, fav.Price,
	)
	if err != nil {
		return domain.Favorite{}, fmt.Errorf("postgres: add favorite: %w", err)
	}
	saved, err := pgx.CollectExactlyOneRow(rows, scanFavorite)
	if err != nil {
		return domain.Favorite{}, fmt.Errorf("postgres: add favorite: %w", err)
	}
	return saved, nil
}

// List returns the user's favorites, oldest first.
func (s *FavoriteStore) List(ctx context.Context, userID int64) ([]domain.Favorite, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+favoriteColumns+` FROM favorites WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list favorites for %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanFavorite)
}

// Delete removes one of the user's favorites. It returns domain.ErrNotFound
// when the user has no favorite with that id.
func (s *FavoriteStore) Delete(ctx context.Context, userID, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("postgres: delete favorite %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete favorite %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanFavorite(row pgx.CollectableRow) (domain.Favorite, error) {
	var (
		f    domain.Favorite
		side int16
	)
	if err := row.Scan(&f.ID, &f.UserID, &f.ListingID, &f.Label, &f.Outcome, &side, &f.TokenID, &f.Price, &f.CreatedAt); err != nil {
		return domain.Favorite{}, fmt.Errorf("postgres: scan favorite: %w", err)
	}
	f.Side = domain.Side(side)
	return f, nil
}

var _ domain.FavoriteStore = (*FavoriteStore)(nil)
