// ABOUTME: Telegram command handlers
// ABOUTME: Registration, Google authorization, contact sync with progress, search, notes, and social links
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/networkgpt/networkgpt/models"
	"github.com/networkgpt/networkgpt/sync"
)

// account returns the caller's account, registering them if this is their
// first interaction.
func (b *Bot) account(ctx context.Context, from *tgbotapi.User) (*models.Account, bool, error) {
	if from == nil {
		return nil, false, errors.New("update has no sender")
	}

	existing, err := b.store.GetAccountByTelegramID(ctx, from.ID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	account := &models.Account{
		TelegramID: from.ID,
		Username:   from.UserName,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
	}
	if _, err := b.store.UpsertAccount(ctx, account); err != nil {
		return nil, false, fmt.Errorf("failed to register account: %w", err)
	}
	return account, true, nil
}

func (b *Bot) handleStart(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	_, created, err := b.account(ctx, from)
	if err != nil {
		return err
	}

	var text string
	if created {
		text = fmt.Sprintf("Welcome, %s!\n\n%s\n\nTo get started, connect your Google account so I can sync your contacts.",
			displayName(from), b.welcome)
	} else {
		text = fmt.Sprintf("Welcome back, %s! What would you like to do today?", displayName(from))
	}

	return b.reply(chatID, text, startKeyboard())
}

func (b *Bot) handleAuth(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	if _, _, err := b.account(ctx, from); err != nil {
		return err
	}
	return b.sendAuthLink(chatID, from.ID, "Open the link below to let me read your Google contacts.")
}

func (b *Bot) sendAuthLink(chatID, telegramID int64, text string) error {
	authURL, err := b.auth.AuthURL(telegramID)
	if err != nil {
		return err
	}
	return b.reply(chatID, text, authKeyboard(authURL))
}

func (b *Bot) handleAuthCode(ctx context.Context, chatID int64, from *tgbotapi.User, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return b.reply(chatID, "Please put the authorization code after the command, for example:\n/auth_code 4/0Adeu5B...", nil)
	}

	account, _, err := b.account(ctx, from)
	if err != nil {
		return err
	}

	if err := b.auth.Exchange(ctx, account, code); err != nil {
		b.logger.Warn().Err(err).Int64("account_id", account.ID).Msg("authorization code exchange failed")
		return b.reply(chatID, "Google authorization failed. Please request a new code with /auth and try again.", nil)
	}

	return b.reply(chatID, "Google authorization complete! Do you want to sync your contacts now?", syncKeyboard())
}

func (b *Bot) handleSync(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	account, _, err := b.account(ctx, from)
	if err != nil {
		return err
	}

	if !account.Authorized() {
		return b.sendAuthLink(chatID, from.ID, "You need to connect your Google account before syncing. Tap the button below to authorize.")
	}

	progress, err := b.api.Send(tgbotapi.NewMessage(chatID, "Syncing your contacts..."))
	if err != nil {
		return fmt.Errorf("failed to send progress message: %w", err)
	}

	stats, runErr := b.syncer.Run(ctx, account)

	var text string
	switch {
	case runErr == nil:
		text = FormatStats(stats)
	case errors.Is(runErr, sync.ErrSyncInProgress):
		text = "A sync is already running for your account. Please wait for it to finish."
	case errors.Is(runErr, sync.ErrNotAuthorized):
		text = "Your Google authorization is missing. Use /auth to connect again."
	default:
		text = fmt.Sprintf("Sync failed: %v", runErr)
		report := fmt.Sprintf("Sync failed for account %d (@%s): %v", account.ID, account.Username, runErr)
		if nerr := b.notifier.Notify(ctx, report); nerr != nil {
			b.logger.Warn().Err(nerr).Msg("failed to notify admins")
		}
	}

	edit := tgbotapi.NewEditMessageText(chatID, progress.MessageID, text)
	if _, err := b.api.Send(edit); err != nil {
		return fmt.Errorf("failed to update progress message: %w", err)
	}
	return nil
}

func (b *Bot) handleContact(ctx context.Context, chatID int64, from *tgbotapi.User, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return b.reply(chatID, "Usage: /contact <name>", nil)
	}

	account, _, err := b.account(ctx, from)
	if err != nil {
		return err
	}

	contacts, err := b.store.SearchContacts(ctx, account.ID, query, searchLimit)
	if err != nil {
		return err
	}
	if len(contacts) == 0 {
		return b.reply(chatID, fmt.Sprintf("No contacts found for %q.", query), nil)
	}

	cards := make([]string, 0, len(contacts))
	for i := range contacts {
		links, err := b.store.ListSocialLinks(ctx, contacts[i].ID)
		if err != nil {
			return err
		}
		cards = append(cards, FormatContact(&contacts[i], links))
	}

	return b.reply(chatID, strings.Join(cards, "\n\n"), nil)
}

func (b *Bot) handleAddNote(ctx context.Context, chatID int64, from *tgbotapi.User, args string) error {
	name, note, ok := strings.Cut(strings.TrimSpace(args), " ")
	note = strings.TrimSpace(note)
	if !ok || name == "" || note == "" {
		return b.reply(chatID, "Usage: /add_note <name> <text>", nil)
	}

	contact, err := b.findContact(ctx, from, name)
	if err != nil {
		return err
	}
	if contact == nil {
		return b.reply(chatID, fmt.Sprintf("Contact %q not found.", name), nil)
	}

	if err := b.store.AppendNote(ctx, contact.ID, note); err != nil {
		return err
	}
	return b.reply(chatID, fmt.Sprintf("Note added to %s.", contact.Name), nil)
}

func (b *Bot) handleAddSocial(ctx context.Context, chatID int64, from *tgbotapi.User, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return b.reply(chatID, "Usage: /add_social <name> <platform> <url>", nil)
	}
	name, platform, link := fields[0], strings.ToLower(fields[1]), fields[2]

	if !validLink(link) {
		return b.reply(chatID, fmt.Sprintf("%q is not a valid http(s) link.", link), nil)
	}

	contact, err := b.findContact(ctx, from, name)
	if err != nil {
		return err
	}
	if contact == nil {
		return b.reply(chatID, fmt.Sprintf("Contact %q not found.", name), nil)
	}

	if err := b.store.AddSocialLink(ctx, contact.ID, platform, link); err != nil {
		return err
	}
	return b.reply(chatID, fmt.Sprintf("Added %s link to %s.", platform, contact.Name), nil)
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	account, _, err := b.account(ctx, from)
	if err != nil {
		return err
	}

	run, err := b.store.LatestRun(ctx, account.ID)
	if err != nil {
		return err
	}

	return b.reply(chatID, FormatStatus(account, run), nil)
}

func (b *Bot) findContact(ctx context.Context, from *tgbotapi.User, name string) (*models.Contact, error) {
	account, _, err := b.account(ctx, from)
	if err != nil {
		return nil, err
	}
	return b.store.FindContactByName(ctx, account.ID, name)
}

func validLink(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func displayName(u *tgbotapi.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return "there"
}

func startKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Connect Google", callbackAuth)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Help", callbackHelp)),
	)
}

func helpKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Sync contacts", callbackSync)),
	)
}

func syncKeyboard() tgbotapi.InlineKeyboardMarkup {
	return helpKeyboard()
}

func authKeyboard(authURL string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Authorize with Google", authURL)),
	)
}
