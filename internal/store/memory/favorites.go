// Package memory provides in-process implementations of the storage ports,
// used when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

// FavoriteStore keeps favorites in a map. It is safe for concurrent use.
type FavoriteStore struct {
	mu     sync.Mutex
	nextID int64
	byUser map[int64]map[int64]domain.Favorite
}

// NewFavoriteStore creates an empty FavoriteStore.
func NewFavoriteStore() *FavoriteStore {
	return &FavoriteStore{byUser: make(map[int64]map[int64]domain.Favorite)}
}

// Add stores fav and returns it with ID and CreatedAt set. Adding the same
// outcome twice returns the existing entry with a refreshed price.
func (s *FavoriteStore) Add(_ context.Context, fav domain.Favorite) (domain.Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	favs, ok := s.byUser[fav.UserID]
	if !ok {
		favs = make(map[int64]domain.Favorite)
		s.byUser[fav.UserID] = favs
	}
	for id, existing := range favs {
		if existing.TokenID == fav.TokenID {
			existing.Price = fav.Price
			favs[id] = existing
			return existing, nil
		}
	}

	s.nextID++
	fav.ID = s.nextID
	fav.CreatedAt = time.Now().UTC()
	favs[fav.ID] = fav
	return fav, nil
}

// List returns the user's favorites, oldest first.
func (s *FavoriteStore) List(_ context.Context, userID int64) ([]domain.Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Favorite, 0, len(s.byUser[userID]))
	for _, f := range s.byUser[userID] {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes a favorite owned by userID.
func (s *FavoriteStore) Delete(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	favs := s.byUser[userID]
	if _, ok := favs[id]; !ok {
		return fmt.Errorf("memory: favorite %d: %w", id, domain.ErrNotFound)
	}
	delete(favs, id)
	return nil
}
