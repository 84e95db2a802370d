// Package telegram is the chat transport: it long-polls the Bot API, hands
// each update to the per-user dispatcher and renders the resulting views as
// messages with inline keyboards.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/alanyoungcy/polytgbot/internal/domain"
	"github.com/alanyoungcy/polytgbot/internal/flow"
	"github.com/alanyoungcy/polytgbot/internal/session"
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Handler turns user input into views.
type Handler interface {
	HandleToken(ctx context.Context, userID int64, token string) flow.View
	HandleText(ctx context.Context, userID int64, text string) flow.View
	Reject(ctx context.Context, userID int64, err error) flow.View
}

// Submitter queues a job on the user's serial worker.
type Submitter interface {
	Submit(userID int64, job session.Job) error
}

// Config tunes the transport.
type Config struct {
	AllowedUsers []int64 // empty allows everyone
	PollTimeout  int     // long-poll timeout in seconds
	RateLimit    int     // actions per RateWindow per user; 0 disables
	RateWindow   time.Duration
}

// Bot connects Telegram updates to the flow machine.
type Bot struct {
	api     API
	handler Handler
	jobs    Submitter
	limiter domain.RateLimiter
	allowed map[int64]bool
	cfg     Config
	logger  *slog.Logger
}

// NewBot creates a Bot. limiter may be nil.
func NewBot(api API, handler Handler, jobs Submitter, limiter domain.RateLimiter, cfg Config, logger *slog.Logger) *Bot {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = 10 * time.Second
	}
	allowed := make(map[int64]bool, len(cfg.AllowedUsers))
	for _, id := range cfg.AllowedUsers {
		allowed[id] = true
	}
	return &Bot{
		api:     api,
		handler: handler,
		jobs:    jobs,
		limiter: limiter,
		allowed: allowed,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "telegram")),
	}
}

// target is where a view is rendered.
type target struct {
	chatID     int64
	messageID  int    // message to edit; 0 sends a new one
	callbackID string // callback query to answer
}

// Run long-polls updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := b.api.GetUpdatesChan(u)

	b.logger.InfoContext(ctx, "polling for updates", slog.Int("allowed_users", len(b.allowed)))
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		q := upd.CallbackQuery
		if q.From == nil {
			return
		}
		tgt := target{callbackID: q.ID}
		if q.Message != nil && q.Message.Chat != nil {
			tgt.chatID = q.Message.Chat.ID
			tgt.messageID = q.Message.MessageID
		}
		data := q.Data
		b.dispatch(ctx, q.From.ID, tgt, func(ctx context.Context) flow.View {
			return b.handler.HandleToken(ctx, q.From.ID, data)
		})

	case upd.Message != nil:
		m := upd.Message
		if m.From == nil || m.Chat == nil || strings.TrimSpace(m.Text) == "" {
			return
		}
		text := m.Text
		b.dispatch(ctx, m.From.ID, target{chatID: m.Chat.ID}, func(ctx context.Context) flow.View {
			return b.handler.HandleText(ctx, m.From.ID, text)
		})
	}
}

// dispatch runs the allow-list and throttle checks, then queues handle on
// the user's worker.
func (b *Bot) dispatch(ctx context.Context, userID int64, tgt target, handle func(context.Context) flow.View) {
	if len(b.allowed) > 0 && !b.allowed[userID] {
		b.logger.WarnContext(ctx, "unauthorized user", slog.Int64("user_id", userID))
		b.render(ctx, tgt, b.handler.Reject(ctx, userID, domain.ErrUnauthorized))
		return
	}

	if b.limiter != nil && b.cfg.RateLimit > 0 {
		ok, err := b.limiter.Allow(ctx, fmt.Sprintf("user:%d", userID), b.cfg.RateLimit, b.cfg.RateWindow)
		switch {
		case err != nil:
			b.logger.WarnContext(ctx, "rate limiter unavailable", slog.String("error", err.Error()))
		case !ok:
			b.render(ctx, tgt, b.handler.Reject(ctx, userID, domain.ErrRateLimited))
			return
		}
	}

	err := b.jobs.Submit(userID, session.Job{
		Run: func(ctx context.Context) {
			b.render(ctx, tgt, handle(ctx))
		},
		Reject: func(ctx context.Context, err error) {
			b.render(ctx, tgt, b.handler.Reject(ctx, userID, err))
		},
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrBusy):
		b.render(ctx, tgt, b.handler.Reject(ctx, userID, err))
	default:
		b.logger.ErrorContext(ctx, "submit failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// render shows v: a callback is always answered (with the notice, if any);
// text edits the pressed message or is sent as a new one.
func (b *Bot) render(ctx context.Context, tgt target, v flow.View) {
	if tgt.callbackID != "" {
		if _, err := b.api.Request(tgbotapi.NewCallback(tgt.callbackID, v.Notice)); err != nil {
			b.logger.DebugContext(ctx, "answer callback failed", slog.String("error", err.Error()))
		}
	} else if v.Text == "" && v.Notice != "" {
		v.Text = v.Notice
	}

	if v.Text == "" || tgt.chatID == 0 {
		return
	}

	if tgt.messageID != 0 {
		edit := tgbotapi.NewEditMessageText(tgt.chatID, tgt.messageID, v.Text)
		if len(v.Buttons) > 0 {
			kb := keyboard(v.Buttons)
			edit.ReplyMarkup = &kb
		}
		_, err := b.api.Send(edit)
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			return
		}
		b.logger.DebugContext(ctx, "edit failed, sending new message", slog.String("error", err.Error()))
	}

	msg := tgbotapi.NewMessage(tgt.chatID, v.Text)
	msg.DisableWebPagePreview = true
	if len(v.Buttons) > 0 {
		msg.ReplyMarkup = keyboard(v.Buttons)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.WarnContext(ctx, "send failed",
			slog.Int64("chat_id", tgt.chatID),
			slog.String("error", err.Error()),
		)
	}
}

func keyboard(rows [][]flow.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, r := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, btn := range r {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Token))
		}
		out = append(out, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}
