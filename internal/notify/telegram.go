package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/mymmrac/telego"
)

// Sender is the part of telego.Bot used for notifications.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// TelegramConfig configures the Telegram notifier.
type TelegramConfig struct {
	Token        string
	ChatIDs      []int64
	Timeout      time.Duration
	OnlyFailures bool
}

// Telegram sends notifications to one or more chats as HTML messages.
type Telegram struct {
	sender       Sender
	chatIDs      []int64
	timeout      time.Duration
	onlyFailures bool
}

// NewTelegram creates a notifier backed by a telego bot.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is required")
	}
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return NewTelegramWithSender(bot, cfg), nil
}

// NewTelegramWithSender creates a notifier with an explicit sender.
func NewTelegramWithSender(sender Sender, cfg TelegramConfig) *Telegram {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Telegram{
		sender:       sender,
		chatIDs:      cfg.ChatIDs,
		timeout:      cfg.Timeout,
		onlyFailures: cfg.OnlyFailures,
	}
}

func (t *Telegram) Notify(ctx context.Context, n Notification) error {
	if t.onlyFailures && !n.IsFailure() {
		return nil
	}

	text := FormatHTML(n)
	var errs []error
	for _, chatID := range t.chatIDs {
		sendCtx, cancel := context.WithTimeout(ctx, t.timeout)
		_, err := t.sender.SendMessage(sendCtx, &telego.SendMessageParams{
			ChatID:    telego.ChatID{ID: chatID},
			Text:      text,
			ParseMode: telego.ModeHTML,
		})
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

var levelIcons = map[Level]string{
	LevelInfo:    "ℹ️",
	LevelSuccess: "✅",
	LevelWarning: "⚠️",
	LevelError:   "❌",
}

// FormatHTML renders a notification for Telegram's HTML parse mode.
func FormatHTML(n Notification) string {
	icon := levelIcons[n.Level]
	if icon == "" {
		icon = levelIcons[LevelInfo]
	}
	out := fmt.Sprintf("%s <b>%s</b>", icon, html.EscapeString(n.Title))
	if n.Message != "" {
		out += "\n" + html.EscapeString(n.Message)
	}
	return out
}
