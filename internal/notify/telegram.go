package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotSender is the part of *tgbotapi.BotAPI the Telegram sender needs.
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender posts alerts to an operator chat through the bot itself.
type TelegramSender struct {
	bot    BotSender
	chatID int64
}

// NewTelegramSender creates a TelegramSender for chatID.
func NewTelegramSender(bot BotSender, chatID int64) *TelegramSender {
	return &TelegramSender{bot: bot, chatID: chatID}
}

// Send delivers the alert as plain text, title on the first line.
func (t *TelegramSender) Send(_ context.Context, title, message string) error {
	msg := tgbotapi.NewMessage(t.chatID, title+"\n"+message)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram: send alert: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
