// ABOUTME: Admin notification port
// ABOUTME: Sends error reports to configured Telegram admins
package bot

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxMessageLen is Telegram's limit on message text.
const maxMessageLen = 4096

// Notifier delivers operational alerts.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// NopNotifier drops every alert.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string) error { return nil }

// AdminNotifier messages every admin chat.
type AdminNotifier struct {
	api      Sender
	adminIDs []int64
}

func NewAdminNotifier(api Sender, adminIDs []int64) *AdminNotifier {
	return &AdminNotifier{api: api, adminIDs: adminIDs}
}

// Notify tries every admin and returns the joined delivery errors.
func (n *AdminNotifier) Notify(ctx context.Context, text string) error {
	text = truncateMessage(text)

	var errs []error
	for _, id := range n.adminIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := n.api.Send(tgbotapi.NewMessage(id, text)); err != nil {
			errs = append(errs, fmt.Errorf("admin %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// truncateMessage shortens text to Telegram's limit without splitting a rune.
func truncateMessage(text string) string {
	if len(text) <= maxMessageLen {
		return text
	}
	cut := maxMessageLen - len("...")
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
