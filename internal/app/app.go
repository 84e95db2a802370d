// Package app wires the bot's dependencies and runs its goroutines: the
// Telegram long-poll loop, per-user dispatcher, status server, WebSocket hub
// and housekeeping.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polytgbot/internal/config"
	"github.com/alanyoungcy/polytgbot/internal/execution"
	"github.com/alanyoungcy/polytgbot/internal/flow"
	"github.com/alanyoungcy/polytgbot/internal/notify"
	"github.com/alanyoungcy/polytgbot/internal/platform/polymarket"
	"github.com/alanyoungcy/polytgbot/internal/server"
	"github.com/alanyoungcy/polytgbot/internal/server/handler"
	"github.com/alanyoungcy/polytgbot/internal/server/ws"
	"github.com/alanyoungcy/polytgbot/internal/service"
	"github.com/alanyoungcy/polytgbot/internal/session"
	"github.com/alanyoungcy/polytgbot/internal/transport/telegram"
)

// App is the root application object. It owns the configuration, logger and
// the cleanup functions run in reverse order on Close.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	closers   []func()
	startedAt time.Time
}

// New creates an App from a validated configuration.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "app")),
		startedAt: time.Now().UTC(),
	}
}

// Run wires everything and blocks until ctx is cancelled or a component
// fails.
func (a *App) Run(ctx context.Context) error {
	cfg := a.cfg
	a.logger.InfoContext(ctx, "starting",
		slog.String("mode", cfg.Trading.Mode),
		slog.String("log_level", cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost)
	var be backend
	if cfg.Trading.Mode == "live" {
		if be, err = liveBackend(ctx, cfg, a.logger); err != nil {
			return err
		}
	} else {
		be = paperBackend(cfg, gamma, a.logger)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("app: telegram: %w", err)
	}
	api.Debug = cfg.Telegram.Debug
	a.logger.InfoContext(ctx, "telegram authorized", slog.String("bot", api.Self.UserName))

	ledger := execution.NewLedger(cfg.Trading.DedupTTL.Duration)
	gate := execution.NewGate(be.trader, ledger, execution.Effects{
		Orders:   deps.Orders,
		Audit:    deps.Audit,
		Bus:      deps.Bus,
		Receipts: receiptWriter(deps),
		Alerts:   a.notifier(api),
	}, cfg.Trading.Mode, a.logger)

	market := service.NewMarketService(gamma, be.positions, deps.ListingCache, a.logger)
	sessions := session.NewStore()
	machine := flow.NewMachine(sessions, market, gate, deps.Favorites, flowConfig(cfg.Trading), a.logger)

	dispatcher := session.NewDispatcher(session.DispatcherConfig{
		QueueDepth:  cfg.Telegram.QueueDepth,
		IdleTimeout: cfg.Telegram.IdleTimeout.Duration,
		LockTTL:     cfg.Redis.LockTTL.Duration,
	}, deps.Locks, a.logger)

	bot := telegram.NewBot(api, machine, dispatcher, deps.RateLimiter, telegram.Config{
		AllowedUsers: cfg.Telegram.AllowedUsers,
		PollTimeout:  cfg.Telegram.PollTimeout,
		RateLimit:    cfg.Telegram.RateLimit,
		RateWindow:   cfg.Telegram.RateWindow.Duration,
	}, a.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(ctx) })
	g.Go(func() error { return bot.Run(ctx) })
	g.Go(func() error {
		a.sweepLedger(ctx, ledger, cfg.Trading.DedupTTL.Duration)
		return nil
	})

	if cfg.Server.Enabled {
		hub := ws.NewHub(deps.Bus, ws.Config{
			Mode:      cfg.Trading.Mode,
			Channels:  []string{execution.OrdersChannel},
			StartedAt: a.startedAt,
		}, a.logger)
		h := server.Handlers{
			Health:  handler.NewHealthHandler(deps.Pingers),
			Status:  handler.NewStatusHandler(cfg.Trading.Mode, a.startedAt, sessions.Len, dispatcher.Active),
			Hub:     hub,
			Limiter: deps.RateLimiter,
		}
		if deps.Orders != nil {
			h.Orders = handler.NewOrderHandler(deps.Orders, a.logger)
		}
		if deps.Audit != nil {
			h.Audit = handler.NewAuditHandler(deps.Audit, a.logger)
		}
		srv := server.NewServer(server.Config{
			Port:        cfg.Server.Port,
			CORSOrigins: cfg.Server.CORSOrigins,
			APIKey:      cfg.Server.APIKey,
			RateLimit:   cfg.Server.RateLimit,
			RateWindow:  cfg.Server.RateWindow.Duration,
		}, h, a.logger)
		g.Go(func() error { return hub.Run(ctx) })
		g.Go(func() error { return srv.Run(ctx) })
	}

	err = g.Wait()
	a.logger.Info("stopped", slog.Duration("uptime", time.Since(a.startedAt)))
	return err
}

// Close tears down resources in reverse registration order. Repeated calls
// are no-ops.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// notifier builds the operator alert fan-out, or returns nil when no channel
// is configured. Telegram alerts reuse the bot's own connection.
func (a *App) notifier(api notify.BotSender) execution.Alerter {
	var senders []notify.Sender
	if id := a.cfg.Notify.TelegramChatID; id != 0 {
		senders = append(senders, notify.NewTelegramSender(api, id))
	}
	if url := a.cfg.Notify.DiscordWebhookURL; url != "" {
		senders = append(senders, notify.NewDiscordSender(url, a.cfg.Notify.DiscordUsername))
	}
	n := notify.NewNotifier(senders, a.cfg.Notify.Events, a.logger)
	if !n.Enabled() {
		return nil
	}
	return n
}

// sweepLedger drops expired dedup entries until ctx is done.
func (a *App) sweepLedger(ctx context.Context, ledger *execution.Ledger, ttl time.Duration) {
	interval := max(ttl/4, time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ledger.Cleanup()
			a.logger.Debug("ledger swept", slog.Int("entries", ledger.Len()))
		}
	}
}

// receiptWriter avoids handing the gate a typed nil.
func receiptWriter(deps *Dependencies) execution.ReceiptWriter {
	if deps.Receipts == nil {
		return nil
	}
	return deps.Receipts
}

func flowConfig(t config.TradingConfig) flow.Config {
	return flow.Config{
		Mode:           t.Mode,
		MinUSD:         t.MinUSD,
		MaxUSD:         t.MaxUSD,
		PageSize:       t.PageSize,
		SearchLimit:    t.SearchLimit,
		CategoryLimit:  t.CategoryLimit,
		SportsLimit:    t.SportsLimit,
		PositionsLimit: t.PositionsLimit,
		PresetAmounts:  t.PresetAmounts,
		PresetPercents: t.PresetPercents,
	}
}
