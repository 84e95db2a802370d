package flow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polytgbot/internal/callback"
	"github.com/alanyoungcy/polytgbot/internal/domain"
	"github.com/alanyoungcy/polytgbot/internal/execution"
	"github.com/alanyoungcy/polytgbot/internal/session"
	"github.com/alanyoungcy/polytgbot/internal/store/memory"
)

const uid int64 = 77

type fakeMarket struct {
	mu         sync.Mutex
	byCategory map[string][]domain.Listing
	search     map[string][]domain.Listing
	positions  []domain.Position
	calls      []string
}

func (f *fakeMarket) ListPositions(_ context.Context, userID int64) ([]domain.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("positions:%d", userID))
	return f.positions, nil
}

func (f *fakeMarket) SearchListings(_ context.Context, q string, limit int) ([]domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("search:%s:%d", q, limit))
	return f.search[q], nil
}

func (f *fakeMarket) ListByCategory(_ context.Context, cat string, limit int) ([]domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("category:%s:%d", cat, limit))
	return f.byCategory[cat], nil
}

type fakeTrader struct {
	mu    sync.Mutex
	buys  []string
	sells []string
	fail  string
}

func (f *fakeTrader) PlaceBuy(_ context.Context, userID int64, tokenID string, usd float64) (domain.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buys = append(f.buys, fmt.Sprintf("%d:%s:%g", userID, tokenID, usd))
	if f.fail != "" {
		return domain.OrderResult{Error: f.fail}, nil
	}
	return domain.OrderResult{Success: true, OrderID: "paper-1", FilledSize: usd / 0.6, AvgPrice: 0.6}, nil
}

func (f *fakeTrader) PlaceSell(_ context.Context, userID int64, tokenID string, pct int) (domain.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sells = append(f.sells, fmt.Sprintf("%d:%s:%d", userID, tokenID, pct))
	if f.fail != "" {
		return domain.OrderResult{Error: f.fail}, nil
	}
	return domain.OrderResult{Success: true, OrderID: "paper-2"}, nil
}

func listing(i int, yes float64) domain.Listing {
	return domain.Listing{
		ID:       fmt.Sprintf("m%d", i),
		Question: fmt.Sprintf("Question %d?", i),
		Outcomes: [2]domain.Outcome{
			{Label: "Yes", TokenID: fmt.Sprintf("yes-%d", i), Price: yes},
			{Label: "No", TokenID: fmt.Sprintf("no-%d", i), Price: 1 - yes},
		},
		Volume: 1500,
	}
}

func listings(n int) []domain.Listing {
	out := make([]domain.Listing, n)
	for i := range out {
		out[i] = listing(i, 0.60)
	}
	return out
}

type harness struct {
	m      *Machine
	store  *session.Store
	market *fakeMarket
	trader *fakeTrader
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithStore(t, session.NewStoreWithSeed(0), &fakeTrader{})
}

func newHarnessWithStore(t *testing.T, store *session.Store, trader *fakeTrader) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	market := &fakeMarket{
		byCategory: map[string][]domain.Listing{"politics": listings(12)},
		search:     map[string][]domain.Listing{},
	}
	gate := execution.NewGate(trader, execution.NewLedger(time.Hour), execution.Effects{}, "paper", logger)
	m := NewMachine(store, market, gate, memory.NewFavoriteStore(), DefaultConfig(), logger)
	return &harness{m: m, store: store, market: market, trader: trader}
}

func (h *harness) tap(a callback.Action) View {
	return h.m.HandleToken(context.Background(), uid, callback.MustEncode(a))
}

func (h *harness) say(text string) View {
	return h.m.HandleText(context.Background(), uid, text)
}

func (h *harness) session() *session.Session { return h.store.Get(uid) }

// press finds the button whose label starts with prefix and taps it.
func (h *harness) press(t *testing.T, v View, prefix string) View {
	t.Helper()
	return h.m.HandleToken(context.Background(), uid, token(t, v, prefix))
}

func token(t *testing.T, v View, prefix string) string {
	t.Helper()
	for _, r := range v.Buttons {
		for _, b := range r {
			if strings.HasPrefix(b.Label, prefix) {
				return b.Token
			}
		}
	}
	t.Fatalf("no button %q in view %q", prefix, v.Text)
	return ""
}

func hasButton(v View, prefix string) bool {
	for _, r := range v.Buttons {
		for _, b := range r {
			if strings.HasPrefix(b.Label, prefix) {
				return true
			}
		}
	}
	return false
}

func (h *harness) openPolitics(t *testing.T) View {
	t.Helper()
	h.say("/buy")
	return h.tap(callback.ChooseCategory{Category: 1})
}

func TestBuyScenario(t *testing.T) {
	h := newHarness(t)
	v := h.openPolitics(t)
	assert.Contains(t, v.Text, "Question 0?")
	assert.Equal(t, domain.StageCategoryChosen, h.session().Intent.Stage)

	v = h.press(t, v, "1. ")
	assert.Contains(t, v.Text, "Yes: 60.0¢")
	assert.Equal(t, domain.StageListingChosen, h.session().Intent.Stage)

	v = h.press(t, v, "✅ Yes")
	assert.Equal(t, domain.StageOutcomeChosen, h.session().Intent.Stage)
	assert.Equal(t, "yes-0", h.session().Intent.OutcomeID)

	v = h.press(t, v, "✏️ Custom")
	assert.Equal(t, session.WaitAmount, h.session().Waiting)

	v = h.say("30")
	assert.Equal(t, session.WaitNone, h.session().Waiting)
	assert.Equal(t, domain.StageAmountChosen, h.session().Intent.Stage)
	assert.Contains(t, v.Text, "Est. shares: 50.00")
	assert.Contains(t, v.Text, "[PAPER]")
	assert.Empty(t, h.trader.buys, "confirmation screen places nothing")

	confirm := token(t, v, "✅ Confirm")
	v = h.m.HandleToken(context.Background(), uid, confirm)
	assert.Contains(t, v.Text, "Order placed")
	assert.Equal(t, []string{"77:yes-0:30"}, h.trader.buys)
	assert.Equal(t, domain.StageExecuted, h.session().Intent.Stage)

	// Repeated taps on the same confirmation.
	for range 3 {
		v = h.m.HandleToken(context.Background(), uid, confirm)
		assert.Equal(t, "This order was already placed.", v.Notice)
		assert.Empty(t, v.Text)
	}
	assert.Len(t, h.trader.buys, 1)
}

func TestStaleListingTokenAfterNewSearch(t *testing.T) {
	h := newHarness(t)
	v := h.openPolitics(t)
	v = h.press(t, v, "Next")
	v = h.tap(callback.ListingPage{Gen: h.session().Listings.Generation(), Page: 1})
	stale := token(t, v, "8. ") // index 7 of the first generation

	h.market.search["btc"] = listings(3)
	v = h.say("/search btc")
	assert.Contains(t, v.Text, "Results for \"btc\"")
	assert.Equal(t, 3, h.session().Listings.Len())

	v = h.m.HandleToken(context.Background(), uid, stale)
	assert.Equal(t, "Market not found. Use /buy to start over.", v.Text)
	assert.True(t, hasButton(v, "🛒 Buy"))
	assert.Nil(t, h.session().Intent.Listing)
	assert.Empty(t, h.trader.buys)
}

func TestStaleIndexValidInBothGenerations(t *testing.T) {
	h := newHarness(t)
	v := h.openPolitics(t)
	old := token(t, v, "1. ")

	h.say("/search btc")
	v = h.m.HandleToken(context.Background(), uid, old)
	assert.Contains(t, v.Text, "Market not found")
}

func TestMalformedTokenIsNotFound(t *testing.T) {
	h := newHarness(t)
	for _, tok := range []string{"mkt_7", "mkt:1", "garbage", ""} {
		v := h.m.HandleToken(context.Background(), uid, tok)
		assert.Equal(t, "Market not found. Use /buy to start over.", v.Text, tok)
	}
}

func TestPagination(t *testing.T) {
	h := newHarness(t)
	v := h.openPolitics(t)
	gen := h.session().Listings.Generation()
	intentID := h.session().Intent.ID

	assert.Contains(t, v.Text, "Page 1/3")
	assert.False(t, hasButton(v, "◀️ Prev"))
	assert.True(t, hasButton(v, "Next"))

	v = h.press(t, v, "Next")
	assert.Contains(t, v.Text, "Page 2/3")
	assert.Contains(t, v.Text, "6. Question 5?")
	assert.True(t, hasButton(v, "◀️ Prev"))
	assert.True(t, hasButton(v, "Next"))

	v = h.press(t, v, "Next")
	assert.Contains(t, v.Text, "Page 3/3")
	assert.Contains(t, v.Text, "12. Question 11?")
	assert.False(t, hasButton(v, "Next"))

	back := h.press(t, v, "◀️ Prev")
	again := h.tap(callback.ListingPage{Gen: gen, Page: 1})
	assert.Equal(t, again.Text, back.Text)
	assert.Equal(t, again.Buttons, back.Buttons)

	assert.Equal(t, gen, h.session().Listings.Generation())
	assert.Equal(t, intentID, h.session().Intent.ID)
	assert.Equal(t, domain.StageCategoryChosen, h.session().Intent.Stage)

	// A page token from an older generation is rejected.
	h.tap(callback.ChooseCategory{Category: 1})
	v = h.tap(callback.ListingPage{Gen: gen, Page: 1})
	assert.Contains(t, v.Text, "Market not found")
}

func TestEmptyListingOffersSearch(t *testing.T) {
	h := newHarness(t)
	h.say("/buy")
	v := h.tap(callback.ChooseCategory{Category: 2}) // crypto: nothing configured
	assert.Contains(t, v.Text, "No markets found")
	assert.True(t, hasButton(v, "🔍 Search"))
	assert.True(t, h.session().Listings.Published())
	assert.Equal(t, 0, h.session().Listings.Len())
}

func TestSportsFallsBackToSearch(t *testing.T) {
	h := newHarness(t)
	h.market.search["nba"] = listings(2)
	h.say("/buy")
	v := h.tap(callback.ChooseCategory{Category: 0})
	assert.Contains(t, v.Text, "Choose a sport")

	v = h.press(t, v, "🏀 NBA")
	assert.Contains(t, v.Text, "Question 1?")
	assert.Equal(t, []string{"category:nba:20", "search:nba:8"}, h.market.calls)
	assert.Equal(t, "nba", h.session().Intent.SubCategory)
}

func TestSearchPrompt(t *testing.T) {
	h := newHarness(t)
	h.market.search["election"] = listings(1)
	v := h.tap(callback.StartSearch{})
	assert.Equal(t, session.WaitSearch, h.session().Waiting)
	assert.Contains(t, v.Text, "Type what you are looking for")

	v = h.say("election")
	assert.Contains(t, v.Text, "Question 0?")
	assert.Equal(t, session.WaitNone, h.session().Waiting)
	assert.Equal(t, "election", h.session().Intent.SubCategory)
}

func amountStage(t *testing.T, h *harness) {
	t.Helper()
	v := h.openPolitics(t)
	v = h.press(t, v, "1. ")
	v = h.press(t, v, "✅ Yes")
	h.press(t, v, "✏️ Custom")
}

func TestAmountValidation(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"abc", "Please enter a number between $5 and $100"},
		{"", "Please enter a number"},
		{"NaN", "Please enter a number"},
		{"4.99", "Minimum amount is $5"},
		{"-5", "Minimum amount is $5"},
		{"100.01", "Maximum amount is $100"},
		{"1e9", "Maximum amount is $100"},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			h := newHarness(t)
			amountStage(t, h)

			v := h.say(tc.input)
			assert.Contains(t, v.Text, tc.want)
			assert.Equal(t, session.WaitAmount, h.session().Waiting)
			assert.Equal(t, 0.0, h.session().Intent.Amount)
			assert.Equal(t, domain.StageOutcomeChosen, h.session().Intent.Stage)
		})
	}
}

func TestAmountBoundsInclusive(t *testing.T) {
	for _, input := range []string{"5", "$100", " 42.5 "} {
		h := newHarness(t)
		amountStage(t, h)
		v := h.say(input)
		assert.Contains(t, v.Text, "Confirm order", input)
		assert.Equal(t, domain.StageAmountChosen, h.session().Intent.Stage)
	}
}

func TestPresetAmountOutsideBoundsRejected(t *testing.T) {
	h := newHarness(t)
	v := h.openPolitics(t)
	v = h.press(t, v, "1. ")
	h.press(t, v, "✅ Yes")

	v = h.tap(callback.ChooseAmount{USD: 500})
	assert.Contains(t, v.Text, "Maximum amount is $100")
	assert.Equal(t, 0.0, h.session().Intent.Amount)
}

func positionsHarness(t *testing.T) *harness {
	h := newHarness(t)
	h.market.positions = []domain.Position{
		{ListingID: "m9", Question: "Will X win?", Outcome: "Yes", TokenID: "tok-p", Size: 10, AvgPrice: 10, CurrentPrice: 12, Value: 120, PnL: 20},
		{ListingID: "m8", Question: "Will Y win?", Outcome: "No", TokenID: "tok-q", Size: 4, AvgPrice: 0.5, CurrentPrice: 0.25, Value: 1, PnL: -1},
	}
	return h
}

func TestSellScenario(t *testing.T) {
	h := positionsHarness(t)
	v := h.say("/positions")
	assert.Contains(t, v.Text, "Total value: $121")
	assert.Contains(t, v.Text, "Unrealized P&L: +$19.00")

	v = h.press(t, v, "1. ")
	assert.Equal(t, domain.StagePositionChosen, h.session().Intent.Stage)
	assert.Contains(t, v.Text, "Shares: 10.00")

	v = h.press(t, v, "50%")
	assert.Equal(t, domain.StagePercentChosen, h.session().Intent.Stage)
	assert.Contains(t, v.Text, "Shares: 5.00")
	assert.Contains(t, v.Text, "Est. value: $60")
	assert.Empty(t, h.trader.sells)

	v = h.press(t, v, "✅ Confirm")
	assert.Contains(t, v.Text, "Sold 50% of Yes")
	assert.Equal(t, []string{"77:tok-p:50"}, h.trader.sells)
	assert.Equal(t, domain.StageExecuted, h.session().Intent.Stage)
}

func TestSellFallsBackToCurrentSelection(t *testing.T) {
	h := positionsHarness(t)
	v := h.say("/positions")
	v = h.press(t, v, "1. ")
	ref := h.session().Intent.PositionRef

	// Refresh publishes a new generation with a different list.
	h.market.positions = h.market.positions[1:]
	h.say("/positions")
	require.NotEqual(t, ref.Gen, h.session().Positions.Generation())

	// The selected position still satisfies the old reference.
	v = h.tap(callback.SellPercent{Ref: ref, Percent: 50})
	assert.Contains(t, v.Text, "Confirm sell")
	assert.Equal(t, "tok-p", h.session().Intent.OutcomeID)

	// A different stale index has no fallback.
	v = h.tap(callback.SellPercent{Ref: domain.Ref{Gen: ref.Gen, Index: 1}, Percent: 50})
	assert.Equal(t, "Position not found. Use /positions to refresh.", v.Text)
}

func TestSellPercentFromTableStartsIntent(t *testing.T) {
	h := positionsHarness(t)
	h.say("/positions")
	ref := h.session().Positions.Ref(1)

	v := h.tap(callback.SellPercent{Ref: ref, Percent: 25})
	assert.Contains(t, v.Text, "Shares: 1.00")
	in := h.session().Intent
	assert.Equal(t, domain.IntentSell, in.Kind)
	assert.Equal(t, "tok-q", in.OutcomeID)
}

func TestPercentValidation(t *testing.T) {
	for _, input := range []string{"0", "101", "x", "50.5", "-3"} {
		t.Run(input, func(t *testing.T) {
			h := positionsHarness(t)
			v := h.say("/positions")
			v = h.press(t, v, "1. ")
			h.press(t, v, "✏️ Custom %")
			require.Equal(t, session.WaitPercent, h.session().Waiting)

			v = h.say(input)
			assert.Contains(t, v.Text, "between 1 and 100")
			assert.Equal(t, session.WaitPercent, h.session().Waiting)
			assert.Equal(t, 0, h.session().Intent.Percent)
		})
	}
}

func TestCustomPercent(t *testing.T) {
	h := positionsHarness(t)
	v := h.say("/positions")
	v = h.press(t, v, "1. ")
	h.press(t, v, "✏️ Custom %")
	v = h.say("30%")
	assert.Contains(t, v.Text, "Shares: 3.00")
	assert.Contains(t, v.Text, "Est. value: $36")
}

func TestPercentTokenOutOfRange(t *testing.T) {
	h := positionsHarness(t)
	h.say("/positions")
	v := h.tap(callback.SellPercent{Ref: h.session().Positions.Ref(0), Percent: 150})
	assert.Contains(t, v.Text, "cannot exceed 100")
}

func TestBackendFailureRetry(t *testing.T) {
	h := newHarness(t)
	h.trader.fail = "not enough balance / allowance"
	amountStage(t, h)
	v := h.say("30")
	v = h.press(t, v, "✅ Confirm")

	assert.Contains(t, v.Text, "not enough balance / allowance")
	assert.Equal(t, domain.StageConfirmed, h.session().Intent.Stage)
	assert.Len(t, h.trader.buys, 1)

	h.trader.fail = ""
	v = h.press(t, v, "🔁 Retry")
	assert.Contains(t, v.Text, "Order placed")
	assert.Len(t, h.trader.buys, 2)
	assert.Equal(t, domain.StageExecuted, h.session().Intent.Stage)
}

func TestConfirmFromOlderIntentRejected(t *testing.T) {
	h := newHarness(t)
	amountStage(t, h)
	v := h.say("30")
	oldConfirm := token(t, v, "✅ Confirm")

	// Start over and get to the amount stage again.
	amountStage(t, h)
	v = h.m.HandleToken(context.Background(), uid, oldConfirm)
	assert.Equal(t, "Session expired. Use /buy to start over.", v.Text)
	assert.Empty(t, h.trader.buys)
}

func TestConfirmFromEarlierProcessRejected(t *testing.T) {
	trader := &fakeTrader{}
	before := newHarnessWithStore(t, session.NewStoreWithSeed(0), trader)
	v := before.openPolitics(t)
	v = before.press(t, v, "1. ")
	v = before.press(t, v, "✅ Yes")
	v = before.press(t, v, "$10")
	oldConfirm := token(t, v, "✅ Confirm")

	// Same user, fresh process, a different order waiting for confirmation.
	after := newHarnessWithStore(t, session.NewStoreWithSeed(1<<20), trader)
	v = after.openPolitics(t)
	v = after.press(t, v, "2. ")
	v = after.press(t, v, "✅ Yes")
	after.press(t, v, "$100")
	require.Equal(t, domain.StageAmountChosen, after.session().Intent.Stage)

	v = after.m.HandleToken(context.Background(), uid, oldConfirm)
	assert.Equal(t, "Session expired. Use /buy to start over.", v.Text)
	assert.Empty(t, trader.buys)
	assert.Equal(t, domain.StageAmountChosen, after.session().Intent.Stage)
}

func TestConfirmWithoutSession(t *testing.T) {
	h := newHarness(t)
	v := h.tap(callback.ConfirmBuy{Seq: 1})
	assert.Equal(t, "Session expired. Use /buy to start over.", v.Text)
	v = h.tap(callback.ConfirmSell{Seq: 1})
	assert.Equal(t, "Session expired. Use /positions to start over.", v.Text)
	v = h.tap(callback.SelectOutcome{Side: domain.SideYes})
	assert.Contains(t, v.Text, "Session expired")
	assert.Empty(t, h.trader.buys)
	assert.Empty(t, h.trader.sells)
}

func TestExecutedIsTerminal(t *testing.T) {
	h := newHarness(t)
	v := h.openPolitics(t)
	list := v
	v = h.press(t, v, "1. ")
	v = h.press(t, v, "✅ Yes")
	v = h.press(t, v, "$25")
	h.press(t, v, "✅ Confirm")
	require.Equal(t, domain.StageExecuted, h.session().Intent.Stage)

	v = h.press(t, list, "2. ")
	assert.Contains(t, v.Text, "Session expired")
	v = h.tap(callback.ChooseAmount{USD: 10})
	assert.Contains(t, v.Text, "Session expired")
	assert.Len(t, h.trader.buys, 1)
}

func TestCancelClearsIntent(t *testing.T) {
	h := newHarness(t)
	amountStage(t, h)
	v := h.say("/cancel")
	assert.Equal(t, "Cancelled.", v.Text)
	assert.Nil(t, h.session().Intent)
	assert.Equal(t, session.WaitNone, h.session().Waiting)

	v = h.say("30")
	assert.Contains(t, v.Text, "Commands:")
}

func TestFavorites(t *testing.T) {
	h := newHarness(t)
	v := h.openPolitics(t)
	v = h.press(t, v, "1. ")
	v = h.press(t, v, "❎ No")
	v = h.press(t, v, "⭐ Favorite")
	assert.Equal(t, "⭐ Added to favorites", v.Notice)
	assert.Empty(t, v.Text)

	v = h.say("/favorites")
	assert.Contains(t, v.Text, "Question 0?")
	assert.Contains(t, v.Text, "No · last 40.0¢")

	v = h.press(t, v, "1. ")
	in := h.session().Intent
	assert.Equal(t, domain.StageOutcomeChosen, in.Stage)
	assert.Equal(t, "no-0", in.OutcomeID)
	assert.Equal(t, domain.SideNo, in.Side)
	assert.Contains(t, v.Text, "Buying No at 40.0¢")

	v = h.press(t, v, "$50")
	assert.Contains(t, v.Text, "Est. shares: 125.00")
	h.press(t, v, "✅ Confirm")
	assert.Equal(t, []string{"77:no-0:50"}, h.trader.buys)

	v = h.say("/favorites")
	v = h.press(t, v, "🗑")
	assert.Equal(t, "🗑 Removed", v.Notice)
	assert.Contains(t, v.Text, "No favorites yet")
}

func TestFavoriteFromPosition(t *testing.T) {
	h := positionsHarness(t)
	v := h.say("/positions")
	v = h.press(t, v, "2. ")
	v = h.press(t, v, "⭐ Favorite")
	assert.Equal(t, "⭐ Added to favorites", v.Notice)

	v = h.say("/favorites")
	assert.Contains(t, v.Text, "Will Y win?")
	h.press(t, v, "1. ")
	assert.Equal(t, domain.SideNo, h.session().Intent.Side)
	assert.Equal(t, "tok-q", h.session().Intent.OutcomeID)
}

func TestMenuAndHelp(t *testing.T) {
	h := newHarness(t)
	v := h.say("/start")
	assert.Contains(t, v.Text, "[PAPER]")
	assert.True(t, hasButton(v, "💼 Positions"))

	v = h.say("hello")
	assert.Contains(t, v.Text, "/buy")
	v = h.say("/BUY@polytgbot")
	assert.Contains(t, v.Text, "Choose a category")
}

func TestNoPositions(t *testing.T) {
	h := newHarness(t)
	v := h.say("/positions")
	assert.Equal(t, "💼 No open positions.", v.Text)
}

func TestUsersAreIndependent(t *testing.T) {
	h := newHarness(t)
	amountStage(t, h)

	other := h.m.HandleText(context.Background(), uid+1, "30")
	assert.Contains(t, other.Text, "Commands:")
	assert.Equal(t, session.WaitAmount, h.session().Waiting)
}

func TestRejectLeavesSessionUntouched(t *testing.T) {
	h := newHarness(t)
	amountStage(t, h)
	ctx := context.Background()

	v := h.m.Reject(ctx, uid, domain.ErrBusy)
	assert.Contains(t, v.Notice, "Still working")
	assert.Empty(t, v.Text)

	v = h.m.Reject(ctx, uid, fmt.Errorf("transport: %w", domain.ErrRateLimited))
	assert.Contains(t, v.Notice, "Too many taps")

	v = h.m.Reject(ctx, uid, domain.ErrUnauthorized)
	assert.Contains(t, v.Text, "not authorized")

	require.NotNil(t, h.session().Intent)
	assert.Equal(t, session.WaitAmount, h.session().Waiting)
}
