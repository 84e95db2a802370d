package execution

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

type buyCall struct {
	userID  int64
	tokenID string
	usd     float64
}

type sellCall struct {
	userID  int64
	tokenID string
	percent int
}

type fakeTrader struct {
	mu    sync.Mutex
	buys  []buyCall
	sells []sellCall
	fail  string
	err   error
}

func (f *fakeTrader) PlaceBuy(_ context.Context, userID int64, tokenID string, usd float64) (domain.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buys = append(f.buys, buyCall{userID, tokenID, usd})
	return f.result()
}

func (f *fakeTrader) PlaceSell(_ context.Context, userID int64, tokenID string, percent int) (domain.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sells = append(f.sells, sellCall{userID, tokenID, percent})
	return f.result()
}

func (f *fakeTrader) result() (domain.OrderResult, error) {
	if f.err != nil {
		return domain.OrderResult{}, f.err
	}
	if f.fail != "" {
		return domain.OrderResult{Success: false, Error: f.fail}, nil
	}
	return domain.OrderResult{Success: true, OrderID: "ord-1", Status: domain.OrderStatusMatched}, nil
}

type fakeOrders struct{ recs []domain.OrderRecord }

func (f *fakeOrders) Create(_ context.Context, rec domain.OrderRecord) error {
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeOrders) ListByUser(context.Context, int64, domain.ListOpts) ([]domain.OrderRecord, error) {
	return f.recs, nil
}

type fakeBus struct{ msgs [][]byte }

func (f *fakeBus) Publish(_ context.Context, _ string, payload []byte) error {
	f.msgs = append(f.msgs, payload)
	return nil
}

func (f *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }

type failingAudit struct{ calls int }

func (f *failingAudit) Log(context.Context, string, map[string]any) error {
	f.calls++
	return errors.New("db down")
}

func (f *failingAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func confirmedBuy() *domain.Intent {
	return &domain.Intent{
		ID:        "intent-buy",
		Kind:      domain.IntentBuy,
		Stage:     domain.StageConfirmed,
		Listing:   &domain.Listing{ID: "m1", Question: "Will it rain?"},
		OutcomeID: "tok-yes",
		Outcome:   "YES",
		Side:      domain.SideYes,
		Price:     0.60,
		Amount:    30,
	}
}

func confirmedSell() *domain.Intent {
	pos := domain.Position{ListingID: "m2", Question: "Q", Outcome: "NO", TokenID: "tok-no", Size: 10, Value: 120, CurrentPrice: 12}
	return &domain.Intent{
		ID:        "intent-sell",
		Kind:      domain.IntentSell,
		Stage:     domain.StageConfirmed,
		Position:  &pos,
		OutcomeID: "tok-no",
		Outcome:   "NO",
		Percent:   50,
	}
}

func TestExecuteBuyOnce(t *testing.T) {
	tr := &fakeTrader{}
	orders := &fakeOrders{}
	bus := &fakeBus{}
	g := NewGate(tr, NewLedger(time.Hour), Effects{Orders: orders, Bus: bus}, "paper", testLogger())

	in := confirmedBuy()
	res, err := g.Execute(context.Background(), 42, in)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, domain.StageExecuted, in.Stage)
	require.NotNil(t, in.Result)
	require.NotNil(t, in.ExecutedAt)

	require.Len(t, tr.buys, 1)
	assert.Equal(t, buyCall{42, "tok-yes", 30}, tr.buys[0])

	require.Len(t, orders.recs, 1)
	assert.InDelta(t, 50.0, orders.recs[0].Shares, 1e-9)
	assert.Equal(t, "Will it rain?", orders.recs[0].Question)

	require.Len(t, bus.msgs, 1)
	var ev Event
	require.NoError(t, json.Unmarshal(bus.msgs[0], &ev))
	assert.Equal(t, "intent-buy", ev.IntentID)
	assert.True(t, ev.Success)

	// Repeated confirmation taps never reach the backend again.
	for range 3 {
		again, err := g.Execute(context.Background(), 42, in)
		assert.ErrorIs(t, err, domain.ErrAlreadyExecuted)
		assert.Equal(t, "ord-1", again.OrderID)
	}
	assert.Len(t, tr.buys, 1)
}

func TestExecuteSellDerivesPortion(t *testing.T) {
	tr := &fakeTrader{}
	orders := &fakeOrders{}
	g := NewGate(tr, NewLedger(time.Hour), Effects{Orders: orders}, "live", testLogger())

	in := confirmedSell()
	_, err := g.Execute(context.Background(), 1, in)
	require.NoError(t, err)

	require.Len(t, tr.sells, 1)
	assert.Equal(t, sellCall{1, "tok-no", 50}, tr.sells[0])
	require.Len(t, orders.recs, 1)
	assert.InDelta(t, 5.0, orders.recs[0].Shares, 1e-9)
	assert.Equal(t, "live", orders.recs[0].Mode)
}

func TestExecuteBackendFailureStaysConfirmed(t *testing.T) {
	tr := &fakeTrader{fail: "not enough balance / allowance"}
	g := NewGate(tr, NewLedger(time.Hour), Effects{}, "paper", testLogger())

	in := confirmedBuy()
	res, err := g.Execute(context.Background(), 1, in)
	require.ErrorIs(t, err, domain.ErrBackendFailure)
	assert.False(t, res.Success)
	assert.Equal(t, "not enough balance / allowance", res.Error)
	assert.Equal(t, domain.StageConfirmed, in.Stage)
	assert.Nil(t, in.Result)
	assert.Len(t, tr.buys, 1)

	// The same confirmation can be retried; no automatic retry happened.
	tr.fail = ""
	res, err = g.Execute(context.Background(), 1, in)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, tr.buys, 2)
	assert.Equal(t, domain.StageExecuted, in.Stage)
}

func TestExecuteTransportErrorIsVerbatim(t *testing.T) {
	tr := &fakeTrader{err: errors.New("dial tcp: connection refused")}
	g := NewGate(tr, NewLedger(time.Hour), Effects{}, "live", testLogger())

	res, err := g.Execute(context.Background(), 1, confirmedSell())
	require.ErrorIs(t, err, domain.ErrBackendFailure)
	assert.Equal(t, "dial tcp: connection refused", res.Error)
	assert.Equal(t, domain.OrderStatusFailed, res.Status)
}

func TestExecutePreconditions(t *testing.T) {
	tests := []struct {
		name   string
		intent func() *domain.Intent
		want   error
	}{
		{"nil intent", func() *domain.Intent { return nil }, domain.ErrSessionExpired},
		{"amount chosen only", func() *domain.Intent {
			in := confirmedBuy()
			in.Stage = domain.StageAmountChosen
			return in
		}, domain.ErrNotConfirmed},
		{"missing outcome", func() *domain.Intent {
			in := confirmedBuy()
			in.OutcomeID = ""
			return in
		}, domain.ErrSessionExpired},
		{"missing amount", func() *domain.Intent {
			in := confirmedBuy()
			in.Amount = 0
			return in
		}, domain.ErrSessionExpired},
		{"missing position", func() *domain.Intent {
			in := confirmedSell()
			in.Position = nil
			return in
		}, domain.ErrSessionExpired},
		{"percent out of range", func() *domain.Intent {
			in := confirmedSell()
			in.Percent = 101
			return in
		}, domain.ErrSessionExpired},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := &fakeTrader{}
			g := NewGate(tr, NewLedger(time.Hour), Effects{}, "paper", testLogger())
			_, err := g.Execute(context.Background(), 1, tc.intent())
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, tr.buys)
			assert.Empty(t, tr.sells)
		})
	}
}

func TestExecuteLedgerBlocksCopiedIntent(t *testing.T) {
	tr := &fakeTrader{}
	g := NewGate(tr, NewLedger(time.Hour), Effects{}, "paper", testLogger())

	in := confirmedBuy()
	clone := *in
	_, err := g.Execute(context.Background(), 1, in)
	require.NoError(t, err)

	// A stale copy still at Confirmed carries the same id.
	_, err = g.Execute(context.Background(), 1, &clone)
	assert.ErrorIs(t, err, domain.ErrAlreadyExecuted)
	assert.Len(t, tr.buys, 1)
}

func TestEffectFailuresDoNotChangeResult(t *testing.T) {
	audit := &failingAudit{}
	g := NewGate(&fakeTrader{}, NewLedger(time.Hour), Effects{Audit: audit}, "paper", testLogger())

	res, err := g.Execute(context.Background(), 1, confirmedBuy())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, audit.calls)
}

func TestAlertBody(t *testing.T) {
	rec := domain.OrderRecord{
		UserID: 5, Kind: domain.IntentSell, Mode: "live", Question: "Q?", Outcome: "YES",
		Percent: 25, Shares: 2.5, Result: domain.OrderResult{Success: true, OrderID: "abc"},
	}
	assert.Equal(t, "[LIVE] sell filled", alertTitle(rec))
	assert.Equal(t, "user 5\nQ?\nYES 25% (2.50 shares)\norder abc", alertBody(rec))
}

type panickingTrader struct{ fakeTrader }

func (p *panickingTrader) PlaceBuy(ctx context.Context, userID int64, tokenID string, usd float64) (domain.OrderResult, error) {
	_, _ = p.fakeTrader.PlaceBuy(ctx, userID, tokenID, usd)
	panic("connection reset mid-order")
}

func TestExecutePanicLeavesOutcomeUnknown(t *testing.T) {
	tr := &panickingTrader{}
	ledger := NewLedger(time.Hour)
	g := NewGate(tr, ledger, Effects{}, "paper", testLogger())
	in := confirmedBuy()

	assert.Panics(t, func() { _, _ = g.Execute(context.Background(), 1, in) })
	assert.Equal(t, domain.StageConfirmed, in.Stage)

	for range 2 {
		_, err := g.Execute(context.Background(), 1, in)
		assert.ErrorIs(t, err, domain.ErrSessionExpired)
		assert.NotErrorIs(t, err, domain.ErrBusy)
	}
	assert.Len(t, tr.buys, 1)
	assert.Equal(t, 1, ledger.Len())
}

func TestLedgerCleanupExpiresEveryState(t *testing.T) {
	l := NewLedger(0)
	require.True(t, l.Begin("in-flight"))
	require.True(t, l.Begin("executed"))
	l.Finish("executed", true)
	require.True(t, l.Begin("abandoned"))
	l.Abandon("abandoned")
	assert.Equal(t, 3, l.Len())

	l.Cleanup()
	assert.Equal(t, 0, l.Len())
	assert.False(t, l.Unknown("abandoned"))
}

func TestLedgerUnknownWithinTTL(t *testing.T) {
	l := NewLedger(time.Hour)
	require.True(t, l.Begin("a"))
	l.Abandon("a")
	assert.True(t, l.Unknown("a"))
	assert.False(t, l.Executed("a"))
	assert.False(t, l.Begin("a"))

	l.Cleanup()
	assert.Equal(t, 1, l.Len())
}
