package flow

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alanyoungcy/polytgbot/internal/domain"
	"github.com/alanyoungcy/polytgbot/internal/session"
)

// buyIntent returns the current buy intent if it can still take a category
// or listing choice, or starts a new one.
func buyIntent(s *session.Session) *domain.Intent {
	if in, ok := s.CurrentIntent(domain.IntentBuy); ok && in.Stage <= domain.StageCategoryChosen {
		return in
	}
	return s.NewIntent(domain.IntentBuy)
}

func (m *Machine) chooseCategory(ctx context.Context, s *session.Session, idx int) View {
	if idx < 0 || idx >= len(categories) {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: category %d: %w", idx, domain.ErrNotFound), scopeListing)
	}
	cat := categories[idx]

	in := buyIntent(s)
	in.Category = cat.Key
	in.SubCategory = ""
	in.Stage = domain.StageCategoryChosen

	if cat.Key == sportsCategory {
		return m.sportsView()
	}

	listings, err := m.market.ListByCategory(ctx, cat.Key, m.cfg.CategoryLimit)
	if err != nil {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: list %s: %w", cat.Key, err), scopeListing)
	}
	return m.publishListings(s, cat.Label, listings)
}

func (m *Machine) chooseSport(ctx context.Context, s *session.Session, idx int) View {
	if idx < 0 || idx >= len(sports) {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: sport %d: %w", idx, domain.ErrNotFound), scopeListing)
	}
	sp := sports[idx]

	in := buyIntent(s)
	in.Category = sportsCategory
	in.SubCategory = sp.Key
	in.Stage = domain.StageCategoryChosen

	listings, err := m.market.ListByCategory(ctx, sp.Key, m.cfg.SportsLimit)
	if err != nil {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: list %s: %w", sp.Key, err), scopeListing)
	}
	if len(listings) == 0 {
		// Sports tags are sparse; fall back to a text search on the name.
		listings, err = m.market.SearchListings(ctx, sp.Key, m.cfg.SearchLimit)
		if err != nil {
			return m.failure(ctx, s.UserID, fmt.Errorf("flow: search %s: %w", sp.Key, err), scopeListing)
		}
	}
	return m.publishListings(s, sp.Label, listings)
}

func (m *Machine) startSearch(s *session.Session) View {
	in := buyIntent(s)
	in.Category = "search"
	s.Waiting = session.WaitSearch
	return m.searchPromptView()
}

func (m *Machine) search(ctx context.Context, s *session.Session, query string) View {
	in := buyIntent(s)
	in.Category = "search"
	in.SubCategory = query
	in.Stage = domain.StageCategoryChosen

	listings, err := m.market.SearchListings(ctx, query, m.cfg.SearchLimit)
	if err != nil {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: search %q: %w", query, err), scopeListing)
	}
	return m.publishListings(s, fmt.Sprintf("🔍 Results for %q", query), listings)
}

// publishListings replaces the listing table and shows its first page. An
// empty result is a normal display that offers a search.
func (m *Machine) publishListings(s *session.Session, title string, listings []domain.Listing) View {
	s.Listings.Publish(listings)
	s.ListingTitle = title
	s.ListingPage = 0
	return m.listingView(s)
}

func (m *Machine) listingPage(ctx context.Context, s *session.Session, gen uint32, page int) View {
	if !s.Listings.Published() || gen != s.Listings.Generation() {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: page of generation %d: %w", gen, domain.ErrNotFound), scopeListing)
	}
	s.ListingPage = page
	return m.listingView(s)
}

func (m *Machine) selectListing(ctx context.Context, s *session.Session, ref domain.Ref) View {
	listing, err := s.Listings.Resolve(ref.Gen, ref.Index)
	if err != nil {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: select listing: %w", err), scopeListing)
	}

	in, ok := s.CurrentIntent(domain.IntentBuy)
	if !ok || in.Stage == domain.StageIdle || in.Stage >= domain.StageConfirmed {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: select listing without category: %w", domain.ErrSessionExpired), scopeListing)
	}

	in.Listing = &listing
	in.ListingRef = ref
	in.OutcomeID, in.Outcome, in.Price, in.Amount = "", "", 0, 0
	in.Stage = domain.StageListingChosen
	return m.listingDetailView(s, listing)
}

func (m *Machine) selectOutcome(ctx context.Context, s *session.Session, side domain.Side) View {
	in, ok := s.CurrentIntent(domain.IntentBuy)
	if !ok || in.Listing == nil || in.Stage < domain.StageListingChosen || in.Stage >= domain.StageConfirmed {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: select outcome: %w", domain.ErrSessionExpired), scopeListing)
	}

	out := in.Listing.Outcome(side)
	if out.TokenID == "" || out.Price <= 0 {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: outcome %s of %s not tradable: %w", side, in.Listing.ID, domain.ErrNotFound), scopeListing)
	}

	in.Side = side
	in.OutcomeID = out.TokenID
	in.Outcome = outcomeLabel(out, side)
	in.Price = out.Price
	in.Amount = 0
	in.Stage = domain.StageOutcomeChosen
	return m.amountView(in)
}

// amountIntent returns the buy intent if it is ready to take an amount.
func amountIntent(s *session.Session) (*domain.Intent, error) {
	in, ok := s.CurrentIntent(domain.IntentBuy)
	if !ok || in.OutcomeID == "" || (in.Stage != domain.StageOutcomeChosen && in.Stage != domain.StageAmountChosen) {
		return nil, fmt.Errorf("flow: amount without outcome: %w", domain.ErrSessionExpired)
	}
	return in, nil
}

func (m *Machine) chooseAmount(ctx context.Context, s *session.Session, usd float64) View {
	in, err := amountIntent(s)
	if err != nil {
		return m.failure(ctx, s.UserID, err, scopeListing)
	}
	if err := m.checkAmount(usd); err != nil {
		return m.failure(ctx, s.UserID, err, scopeListing)
	}
	in.Amount = usd
	in.Stage = domain.StageAmountChosen
	return m.buyConfirmView(in)
}

func (m *Machine) customAmount(ctx context.Context, s *session.Session) View {
	in, err := amountIntent(s)
	if err != nil {
		return m.failure(ctx, s.UserID, err, scopeListing)
	}
	s.Waiting = session.WaitAmount
	return m.amountPromptView(in)
}

func (m *Machine) enterAmount(ctx context.Context, s *session.Session, text string) View {
	in, err := amountIntent(s)
	if err != nil {
		s.Waiting = session.WaitNone
		return m.failure(ctx, s.UserID, err, scopeListing)
	}

	usd, err := m.parseAmount(text)
	if err != nil {
		// Stay in WaitAmount; the view echoes the violated bound.
		return m.failure(ctx, s.UserID, err, scopeListing)
	}

	s.Waiting = session.WaitNone
	in.Amount = usd
	in.Stage = domain.StageAmountChosen
	return m.buyConfirmView(in)
}

func (m *Machine) parseAmount(text string) (float64, error) {
	clean := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "$"))
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &domain.OutOfBoundsError{Field: "amount", Bound: domain.BoundNaN, Limit: m.cfg.MinUSD}
	}
	if err := m.checkAmount(v); err != nil {
		return 0, err
	}
	return v, nil
}

func (m *Machine) checkAmount(usd float64) error {
	if usd < m.cfg.MinUSD {
		return &domain.OutOfBoundsError{Field: "amount", Bound: domain.BoundMin, Limit: m.cfg.MinUSD, Value: usd}
	}
	if usd > m.cfg.MaxUSD {
		return &domain.OutOfBoundsError{Field: "amount", Bound: domain.BoundMax, Limit: m.cfg.MaxUSD, Value: usd}
	}
	return nil
}

// confirm moves a ready intent to Confirmed and hands it to the executor.
// seq must match the intent the confirmation button was rendered for.
func (m *Machine) confirm(ctx context.Context, s *session.Session, kind domain.IntentKind, seq uint32) View {
	sc := scopeListing
	ready := domain.StageAmountChosen
	if kind == domain.IntentSell {
		sc = scopePosition
		ready = domain.StagePercentChosen
	}

	in, ok := s.CurrentIntent(kind)
	if !ok || in.Seq != seq {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: confirm %s #%d: %w", kind, seq, domain.ErrSessionExpired), sc)
	}

	switch in.Stage {
	case ready:
		in.Stage = domain.StageConfirmed
	case domain.StageConfirmed, domain.StageExecuted:
		// retry after failure, or a repeated tap the executor rejects
	default:
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: confirm %s at %s: %w", kind, in.Stage, domain.ErrSessionExpired), sc)
	}

	res, err := m.exec.Execute(ctx, s.UserID, in)
	if err != nil {
		if isBackendFailure(err) {
			return m.orderFailedView(in, res)
		}
		return m.failure(ctx, s.UserID, err, sc)
	}
	return m.orderPlacedView(in, res)
}
