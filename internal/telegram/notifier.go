// Package telegram delivers reminder notifications to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/njoerd114/placereminder/internal/notify"
)

// Sender is the subset of [tgbotapi.BotAPI] used by the notifier.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier implements [notify.Notifier] for one chat.
type Notifier struct {
	api    Sender
	chatID int64
	log    *slog.Logger
}

// New authorises the bot token and returns a notifier for chatID.
func New(token string, chatID int64, logger *slog.Logger) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	logger.Info("telegram bot authorised", "username", api.Self.UserName)
	return NewWithSender(api, chatID, logger), nil
}

// NewWithSender creates a notifier with a caller-supplied sender.
func NewWithSender(api Sender, chatID int64, logger *slog.Logger) *Notifier {
	return &Notifier{api: api, chatID: chatID, log: logger}
}

func (t *Notifier) Name() string { return "telegram" }

// Notify sends an HTML message and, when the reminder has a point, a map pin.
// The pin is best effort: its failure is logged, not returned.
func (t *Notifier) Notify(ctx context.Context, n notify.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, formatMessage(n))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	if n.Latitude != nil && n.Longitude != nil {
		pin := tgbotapi.NewLocation(t.chatID, *n.Latitude, *n.Longitude)
		pin.DisableNotification = true
		if _, err := t.api.Send(pin); err != nil {
			t.log.Warn("sending telegram location", "reminder_id", n.ReminderID, "error", err)
		}
	}
	return nil
}

func formatMessage(n notify.Notification) string {
	var b strings.Builder
	b.WriteString("🔔 <b>")
	b.WriteString(html.EscapeString(n.Title))
	b.WriteString("</b>")
	switch n.Transition {
	case "enter":
		b.WriteString(" (arrived)")
	case "exit":
		b.WriteString(" (left)")
	}
	if n.Description != "" {
		b.WriteString("\n")
		b.WriteString(html.EscapeString(n.Description))
	}
	if n.Location != "" {
		b.WriteString("\n📍 <i>")
		b.WriteString(html.EscapeString(n.Location))
		b.WriteString("</i>")
	}
	if n.Link != "" {
		b.WriteString("\n<code>")
		b.WriteString(html.EscapeString(n.Link))
		b.WriteString("</code>")
	}
	return b.String()
}
