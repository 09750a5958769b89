// Package notify sends operator notifications to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"html"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier delivers short operator messages.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// sender is the subset of *tgbotapi.BotAPI used here.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts HTML-formatted messages to one chat.
type Telegram struct {
	bot    sender
	chatID int64
}

// NewTelegram authenticates the bot token.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Notify sends text, which may contain Telegram HTML markup.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// Log writes notifications to the log.
type Log struct{}

// Notify logs text.
func (Log) Notify(_ context.Context, text string) error {
	log.Printf("[notify] %s", text)
	return nil
}

// CompanyPending formats the verification request sent when a company registers.
func CompanyPending(companyID, name, registrationNumber, contactEmail string) string {
	return fmt.Sprintf(
		"🏢 <b>New company awaiting verification</b>\n"+
			"Name: %s\n"+
			"Registration: %s\n"+
			"Contact: %s\n"+
			"ID: <code>%s</code>",
		html.EscapeString(name),
		html.EscapeString(registrationNumber),
		html.EscapeString(contactEmail),
		html.EscapeString(companyID),
	)
}

// SweepReport formats the maintenance summary.
func SweepReport(expired, orphaned int64) string {
	return fmt.Sprintf("🧹 <b>Maintenance</b>\nExpired jobs: %d\nOrphaned jobs removed: %d", expired, orphaned)
}
