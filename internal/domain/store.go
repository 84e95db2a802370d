package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// FavoriteStore persists user favorites.
type FavoriteStore interface {
	Add(ctx context.Context, fav Favorite) (Favorite, error)
	List(ctx context.Context, userID int64) ([]Favorite, error)
	Delete(ctx context.Context, userID, id int64) error
}

// OrderStore persists execution attempts.
type OrderStore interface {
	Create(ctx context.Context, rec OrderRecord) error
	ListByUser(ctx context.Context, userID int64, opts ListOpts) ([]OrderRecord, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
