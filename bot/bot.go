// ABOUTME: Telegram bot update loop and dependencies
// ABOUTME: Routes commands and button presses to handlers and reports handler failures to admins
package bot

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/networkgpt/networkgpt/models"
	"github.com/networkgpt/networkgpt/sync"
	"github.com/rs/zerolog"
)

const (
	callbackSync = "sync_contacts"
	callbackHelp = "help"
	callbackAuth = "auth_google"

	searchLimit = 5
)

// Sender is the subset of the Telegram API the bot uses. *tgbotapi.BotAPI
// satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Store is the persistence the bot's commands need.
type Store interface {
	UpsertAccount(ctx context.Context, account *models.Account) (bool, error)
	GetAccountByTelegramID(ctx context.Context, telegramID int64) (*models.Account, error)
	SearchContacts(ctx context.Context, accountID int64, query string, limit int) ([]models.Contact, error)
	FindContactByName(ctx context.Context, accountID int64, name string) (*models.Contact, error)
	AppendNote(ctx context.Context, contactID uuid.UUID, note string) error
	ListSocialLinks(ctx context.Context, contactID uuid.UUID) ([]models.SocialLink, error)
	AddSocialLink(ctx context.Context, contactID uuid.UUID, platform, url string) error
	LatestRun(ctx context.Context, accountID int64) (*models.SyncRun, error)
}

// Authorizer runs the Google consent flow.
type Authorizer interface {
	AuthURL(telegramID int64) (string, error)
	VerifyState(state string) (int64, error)
	Exchange(ctx context.Context, account *models.Account, code string) error
}

// Bot handles Telegram updates for the contact sync service.
type Bot struct {
	api      Sender
	store    Store
	auth     Authorizer
	syncer   sync.Syncer
	notifier Notifier
	welcome  string
	logger   zerolog.Logger

	wg gosync.WaitGroup
}

func New(api Sender, store Store, auth Authorizer, syncer sync.Syncer, notifier Notifier, welcome string, logger zerolog.Logger) *Bot {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Bot{
		api:      api,
		store:    store,
		auth:     auth,
		syncer:   syncer,
		notifier: notifier,
		welcome:  welcome,
		logger:   logger,
	}
}

// Run consumes updates until ctx is done or the channel closes, then waits for
// in-flight handlers. Each update is handled on its own goroutine so a long
// sync never blocks other users.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	b.logger.Info().Msg("bot started")
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("bot stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate dispatches a single update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if p := recover(); p != nil {
			b.fail(ctx, update, fmt.Errorf("panic: %v", p))
		}
	}()

	var err error
	switch {
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		err = b.handleCommand(ctx, update.Message)
	case update.Message != nil && update.Message.Text != "":
		err = b.handleContact(ctx, update.Message.Chat.ID, update.Message.From, update.Message.Text)
	default:
		return
	}

	if err != nil {
		b.fail(ctx, update, err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := msg.CommandArguments()

	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, chatID, msg.From)
	case "help":
		return b.reply(chatID, helpText, helpKeyboard())
	case "auth":
		return b.handleAuth(ctx, chatID, msg.From)
	case "auth_code":
		return b.handleAuthCode(ctx, chatID, msg.From, args)
	case "sync":
		return b.handleSync(ctx, chatID, msg.From)
	case "contact":
		return b.handleContact(ctx, chatID, msg.From, args)
	case "add_note":
		return b.handleAddNote(ctx, chatID, msg.From, args)
	case "add_social":
		return b.handleAddSocial(ctx, chatID, msg.From, args)
	case "status":
		return b.handleStatus(ctx, chatID, msg.From)
	default:
		return b.reply(chatID, "Unknown command. Send /help to see what I can do.", nil)
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query.Message == nil {
		return nil
	}
	chatID := query.Message.Chat.ID

	var ack string
	switch query.Data {
	case callbackSync:
		ack = "Starting sync..."
	case callbackAuth:
		ack = "Opening Google authorization..."
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, ack)); err != nil {
		b.logger.Warn().Err(err).Msg("failed to answer callback query")
	}

	switch query.Data {
	case callbackSync:
		return b.handleSync(ctx, chatID, query.From)
	case callbackAuth:
		return b.handleAuth(ctx, chatID, query.From)
	case callbackHelp:
		return b.reply(chatID, helpText, helpKeyboard())
	default:
		return nil
	}
}

// fail tells the user something went wrong and forwards the details to admins.
func (b *Bot) fail(ctx context.Context, update tgbotapi.Update, err error) {
	chatID, user, text := describeUpdate(update)

	b.logger.Error().Err(err).
		Int64("chat_id", chatID).
		Str("username", user).
		Msg("failed to handle update")

	if chatID != 0 {
		_ = b.reply(chatID, "Sorry, something went wrong while handling your request. Please try again later.", nil)
	}

	report := fmt.Sprintf("Bot error: %v\n\nUser: %s (chat %d)\nRequest: %s", err, user, chatID, text)
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if nerr := b.notifier.Notify(notifyCtx, report); nerr != nil {
		b.logger.Warn().Err(nerr).Msg("failed to notify admins")
	}
}

func describeUpdate(update tgbotapi.Update) (chatID int64, user string, text string) {
	var from *tgbotapi.User
	switch {
	case update.Message != nil:
		chatID = update.Message.Chat.ID
		from = update.Message.From
		text = update.Message.Text
	case update.CallbackQuery != nil:
		from = update.CallbackQuery.From
		text = "button: " + update.CallbackQuery.Data
		if update.CallbackQuery.Message != nil {
			chatID = update.CallbackQuery.Message.Chat.ID
		}
	}
	if from != nil {
		user = fmt.Sprintf("%d @%s", from.ID, from.UserName)
	}
	return chatID, user, text
}

func (b *Bot) reply(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
