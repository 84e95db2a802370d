// Package flow drives the buy and sell conversations: it validates each
// inbound action against the user's session, advances the current intent,
// republishes reference tables and hands confirmed intents to the execution
// gate.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/polytgbot/internal/callback"
	"github.com/alanyoungcy/polytgbot/internal/domain"
	"github.com/alanyoungcy/polytgbot/internal/metrics"
	"github.com/alanyoungcy/polytgbot/internal/session"
)

// Executor places the order for a confirmed intent.
type Executor interface {
	Execute(ctx context.Context, userID int64, in *domain.Intent) (domain.OrderResult, error)
}

// Machine is the flow state machine. Calls for one user must be serialized
// by the caller; calls for different users may run in parallel.
type Machine struct {
	sessions  *session.Store
	market    domain.MarketData
	exec      Executor
	favorites domain.FavoriteStore
	cfg       Config
	logger    *slog.Logger
}

// NewMachine creates a Machine. favorites may be nil, which disables the
// favorites screens.
func NewMachine(
	sessions *session.Store,
	market domain.MarketData,
	exec Executor,
	favorites domain.FavoriteStore,
	cfg Config,
	logger *slog.Logger,
) *Machine {
	return &Machine{
		sessions:  sessions,
		market:    market,
		exec:      exec,
		favorites: favorites,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "flow")),
	}
}

// HandleToken processes an inline-button action.
func (m *Machine) HandleToken(ctx context.Context, userID int64, token string) View {
	s := m.sessions.Get(userID)
	metrics.SetActiveSessions(m.sessions.Len())

	a, err := callback.Decode(token)
	if err != nil {
		m.logger.DebugContext(ctx, "malformed token",
			slog.Int64("user_id", userID),
			slog.String("token", token),
		)
		return m.failure(ctx, userID, err, scopeNone)
	}
	metrics.IncAction(callback.Name(a))

	// Any button press leaves a pending free-text prompt.
	s.Waiting = session.WaitNone

	switch a := a.(type) {
	case callback.Menu:
		s.Reset()
		return m.menuView()
	case callback.Cancel:
		s.Reset()
		return m.cancelledView()
	case callback.StartBuy:
		s.NewIntent(domain.IntentBuy)
		return m.categoryView()
	case callback.ChooseCategory:
		return m.chooseCategory(ctx, s, a.Category)
	case callback.ChooseSport:
		return m.chooseSport(ctx, s, a.Sport)
	case callback.StartSearch:
		return m.startSearch(s)
	case callback.ListingPage:
		return m.listingPage(ctx, s, a.Gen, a.Page)
	case callback.SelectListing:
		return m.selectListing(ctx, s, a.Ref)
	case callback.SelectOutcome:
		return m.selectOutcome(ctx, s, a.Side)
	case callback.ChooseAmount:
		return m.chooseAmount(ctx, s, float64(a.USD))
	case callback.CustomAmount:
		return m.customAmount(ctx, s)
	case callback.ConfirmBuy:
		return m.confirm(ctx, s, domain.IntentBuy, a.Seq)
	case callback.ShowPositions:
		return m.showPositions(ctx, s)
	case callback.SelectPosition:
		return m.selectPosition(ctx, s, a.Ref)
	case callback.SellPercent:
		return m.sellPercent(ctx, s, a.Ref, a.Percent)
	case callback.CustomPercent:
		return m.customPercent(ctx, s, a.Ref)
	case callback.ConfirmSell:
		return m.confirm(ctx, s, domain.IntentSell, a.Seq)
	case callback.ShowFavorites:
		return m.showFavorites(ctx, s)
	case callback.AddFavorite:
		return m.addFavorite(ctx, s)
	case callback.AddFavoritePosition:
		return m.addFavoritePosition(ctx, s, a.Ref)
	case callback.SelectFavorite:
		return m.selectFavorite(ctx, s, a.Ref)
	case callback.DeleteFavorite:
		return m.deleteFavorite(ctx, s, a.Ref)
	}
	return m.failure(ctx, userID, domain.ErrMalformedToken, scopeNone)
}

// HandleText processes a typed message: a slash command, or the answer to a
// pending free-text prompt.
func (m *Machine) HandleText(ctx context.Context, userID int64, text string) View {
	s := m.sessions.Get(userID)
	metrics.SetActiveSessions(m.sessions.Len())
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "/") {
		return m.command(ctx, s, text)
	}

	switch s.Waiting {
	case session.WaitAmount:
		metrics.IncAction("text_amount")
		return m.enterAmount(ctx, s, text)
	case session.WaitPercent:
		metrics.IncAction("text_percent")
		return m.enterPercent(ctx, s, text)
	case session.WaitSearch:
		metrics.IncAction("text_search")
		if text == "" {
			return m.searchPromptView()
		}
		s.Waiting = session.WaitNone
		return m.search(ctx, s, text)
	}
	return m.helpView()
}

var commands = map[string]bool{
	"/start": true, "/menu": true, "/buy": true, "/positions": true,
	"/search": true, "/favorites": true, "/cancel": true, "/help": true,
}

func (m *Machine) command(ctx context.Context, s *session.Session, text string) View {
	name, arg, _ := strings.Cut(text, " ")
	// Commands may be addressed as /buy@botname in groups.
	name, _, _ = strings.Cut(strings.ToLower(name), "@")
	arg = strings.TrimSpace(arg)
	if commands[name] {
		metrics.IncAction("cmd_" + strings.TrimPrefix(name, "/"))
	} else {
		metrics.IncAction("cmd_unknown")
	}

	s.Waiting = session.WaitNone

	switch name {
	case "/start", "/menu":
		s.Reset()
		return m.menuView()
	case "/buy":
		s.NewIntent(domain.IntentBuy)
		return m.categoryView()
	case "/positions":
		return m.showPositions(ctx, s)
	case "/search":
		if arg == "" {
			return m.startSearch(s)
		}
		s.NewIntent(domain.IntentBuy)
		return m.search(ctx, s, arg)
	case "/favorites":
		return m.showFavorites(ctx, s)
	case "/cancel":
		s.Reset()
		return m.cancelledView()
	}
	return m.helpView()
}

type scope int

const (
	scopeNone scope = iota
	scopeListing
	scopePosition
	scopeFavorite
)

// Reject renders the view for an action refused before it reached the
// machine, e.g. a busy or throttled user.
func (m *Machine) Reject(ctx context.Context, userID int64, err error) View {
	return m.failure(ctx, userID, err, scopeNone)
}

// failure maps an error to the view the user sees. Nothing here is fatal.
func (m *Machine) failure(ctx context.Context, userID int64, err error, sc scope) View {
	var oob *domain.OutOfBoundsError
	class := "other"
	var v View

	switch {
	case errors.As(err, &oob):
		class = "out_of_bounds"
		v = View{Text: m.boundsText(oob), Buttons: [][]Button{row(btn("❌ Cancel", callback.Cancel{}))}}
	case errors.Is(err, domain.ErrMalformedToken), errors.Is(err, domain.ErrNotFound):
		class = "not_found"
		v = notFoundView(sc)
	case errors.Is(err, domain.ErrSessionExpired), errors.Is(err, domain.ErrNotConfirmed):
		class = "session_expired"
		v = expiredView(sc)
	case errors.Is(err, domain.ErrAlreadyExecuted):
		class = "already_executed"
		v = View{Notice: "This order was already placed."}
	case errors.Is(err, domain.ErrBusy):
		class = "busy"
		v = View{Notice: "⏳ Still working on your previous request."}
	case errors.Is(err, domain.ErrRateLimited):
		class = "rate_limited"
		v = View{Notice: "🐢 Too many taps. Try again in a moment."}
	case errors.Is(err, domain.ErrUnauthorized):
		class = "unauthorized"
		v = View{Text: "⛔ You are not authorized to use this bot."}
	default:
		v = View{
			Text:    "⚠️ Something went wrong talking to Polymarket. Please try again.",
			Buttons: [][]Button{row(btn("🏠 Menu", callback.Menu{}))},
		}
	}

	metrics.IncActionError(class)
	level := slog.LevelDebug
	if class == "other" {
		level = slog.LevelWarn
	}
	m.logger.Log(ctx, level, "action rejected",
		slog.Int64("user_id", userID),
		slog.String("class", class),
		slog.String("error", err.Error()),
	)
	return v
}

func notFoundView(sc scope) View {
	switch sc {
	case scopePosition:
		return View{
			Text:    "Position not found. Use /positions to refresh.",
			Buttons: [][]Button{row(btn("💼 Positions", callback.ShowPositions{}))},
		}
	case scopeFavorite:
		return View{
			Text:    "Favorite not found. Use /favorites to refresh.",
			Buttons: [][]Button{row(btn("⭐ Favorites", callback.ShowFavorites{}))},
		}
	}
	return View{
		Text:    "Market not found. Use /buy to start over.",
		Buttons: [][]Button{row(btn("🛒 Buy", callback.StartBuy{}), btn("🏠 Menu", callback.Menu{}))},
	}
}

func expiredView(sc scope) View {
	if sc == scopePosition {
		return View{
			Text:    "Session expired. Use /positions to start over.",
			Buttons: [][]Button{row(btn("💼 Positions", callback.ShowPositions{}))},
		}
	}
	return View{
		Text:    "Session expired. Use /buy to start over.",
		Buttons: [][]Button{row(btn("🛒 Buy", callback.StartBuy{}), btn("🏠 Menu", callback.Menu{}))},
	}
}
