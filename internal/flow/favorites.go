package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/alanyoungcy/polytgbot/internal/domain"
	"github.com/alanyoungcy/polytgbot/internal/session"
)

var errFavoritesDisabled = errors.New("flow: favorites not configured")

func (m *Machine) showFavorites(ctx context.Context, s *session.Session) View {
	if m.favorites == nil {
		return m.failure(ctx, s.UserID, errFavoritesDisabled, scopeFavorite)
	}
	favs, err := m.favorites.List(ctx, s.UserID)
	if err != nil {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: list favorites: %w", err), scopeFavorite)
	}
	s.Favorites.Publish(favs)
	return m.favoritesView(s)
}

func (m *Machine) addFavorite(ctx context.Context, s *session.Session) View {
	in, ok := s.CurrentIntent(domain.IntentBuy)
	if !ok || in.Listing == nil || in.OutcomeID == "" {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: favorite without outcome: %w", domain.ErrSessionExpired), scopeListing)
	}
	return m.saveFavorite(ctx, s, domain.Favorite{
		ListingID: in.Listing.ID,
		Label:     in.Listing.Question,
		Outcome:   in.Outcome,
		Side:      in.Side,
		TokenID:   in.OutcomeID,
		Price:     in.Price,
	})
}

func (m *Machine) addFavoritePosition(ctx context.Context, s *session.Session, ref domain.Ref) View {
	in, err := sellIntentFor(s, ref)
	if err != nil {
		return m.failure(ctx, s.UserID, err, scopePosition)
	}
	pos := in.Position
	side := domain.SideYes
	if parsed, ok := domain.ParseSide(pos.Outcome); ok {
		side = parsed
	}
	return m.saveFavorite(ctx, s, domain.Favorite{
		ListingID: pos.ListingID,
		Label:     pos.Question,
		Outcome:   pos.Outcome,
		Side:      side,
		TokenID:   pos.TokenID,
		Price:     pos.CurrentPrice,
	})
}

func (m *Machine) saveFavorite(ctx context.Context, s *session.Session, fav domain.Favorite) View {
	if m.favorites == nil {
		return m.failure(ctx, s.UserID, errFavoritesDisabled, scopeFavorite)
	}
	fav.UserID = s.UserID
	if _, err := m.favorites.Add(ctx, fav); err != nil {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: add favorite: %w", err), scopeFavorite)
	}
	return notice("⭐ Added to favorites")
}

// selectFavorite jumps straight to the amount step for the saved outcome.
func (m *Machine) selectFavorite(ctx context.Context, s *session.Session, ref domain.Ref) View {
	fav, err := s.Favorites.Resolve(ref.Gen, ref.Index)
	if err != nil {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: select favorite: %w", err), scopeFavorite)
	}
	if fav.TokenID == "" || fav.Price <= 0 {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: favorite %d not tradable: %w", fav.ID, domain.ErrNotFound), scopeFavorite)
	}

	side := domain.SideYes
	if fav.Side == domain.SideNo {
		side = domain.SideNo
	}
	listing := domain.Listing{ID: fav.ListingID, Question: fav.Label}
	listing.Outcomes[side] = domain.Outcome{Label: fav.Outcome, TokenID: fav.TokenID, Price: fav.Price}

	in := s.NewIntent(domain.IntentBuy)
	in.Category = "favorites"
	in.Listing = &listing
	in.Side = side
	in.OutcomeID = fav.TokenID
	in.Outcome = fav.Outcome
	in.Price = fav.Price
	in.Stage = domain.StageOutcomeChosen
	return m.amountView(in)
}

func (m *Machine) deleteFavorite(ctx context.Context, s *session.Session, ref domain.Ref) View {
	fav, err := s.Favorites.Resolve(ref.Gen, ref.Index)
	if err != nil {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: delete favorite: %w", err), scopeFavorite)
	}
	if m.favorites == nil {
		return m.failure(ctx, s.UserID, errFavoritesDisabled, scopeFavorite)
	}
	if err := m.favorites.Delete(ctx, s.UserID, fav.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: delete favorite: %w", err), scopeFavorite)
	}
	v := m.showFavorites(ctx, s)
	v.Notice = "🗑 Removed"
	return v
}
