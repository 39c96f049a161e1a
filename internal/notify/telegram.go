package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/telebot.v4"
)

// API is the subset of the telebot client used by TelegramSender.
type API interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelegramSender delivers alert messages to a Telegram chat.
type TelegramSender struct {
	bot    API
	chatID int64
	log    *slog.Logger
}

// NewTelegramSender authorizes a Telegram bot for the given token and binds
// it to one destination chat.
func NewTelegramSender(log *slog.Logger, token string, chatID int64) (*TelegramSender, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info("Authorized on account", "account", bot.Me.Username)

	return &TelegramSender{bot: bot, chatID: chatID, log: log}, nil
}

// Send posts the message to the configured chat as HTML.
func (t *TelegramSender) Send(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	if _, err := t.bot.Send(telebot.ChatID(t.chatID), message, telebot.ModeHTML); err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}

	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
