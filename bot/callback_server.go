// ABOUTME: HTTP server receiving the Google OAuth redirect
// ABOUTME: Verifies the signed state, stores the user's tokens, and confirms in Telegram
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/networkgpt/networkgpt/models"
	"github.com/rs/zerolog"
)

// AccountFinder looks up the account an OAuth callback belongs to.
type AccountFinder interface {
	GetAccountByTelegramID(ctx context.Context, telegramID int64) (*models.Account, error)
}

// CallbackServer serves /oauth/callback and /healthz.
type CallbackServer struct {
	router   chi.Router
	auth     Authorizer
	accounts AccountFinder
	api      Sender
	logger   zerolog.Logger
	server   *http.Server
}

func NewCallbackServer(addr string, auth Authorizer, accounts AccountFinder, api Sender, logger zerolog.Logger) *CallbackServer {
	s := &CallbackServer{
		router:   chi.NewRouter(),
		auth:     auth,
		accounts: accounts,
		api:      api,
		logger:   logger,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

func (s *CallbackServer) setupRoutes() {
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Get("/oauth/callback", s.handleCallback)
}

// Handler exposes the router for tests.
func (s *CallbackServer) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *CallbackServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("oauth callback server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve oauth callback: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down oauth callback server: %w", err)
	}
	return nil
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if reason := q.Get("error"); reason != "" {
		s.logger.Info().Str("reason", reason).Msg("google authorization denied")
		http.Error(w, "Authorization was not granted. You can close this page and try /auth again.", http.StatusBadRequest)
		return
	}

	telegramID, err := s.auth.VerifyState(q.Get("state"))
	if err != nil {
		s.logger.Warn().Err(err).Msg("rejected oauth callback")
		http.Error(w, "This authorization link is invalid or has expired. Request a new one with /auth.", http.StatusBadRequest)
		return
	}

	account, err := s.accounts.GetAccountByTelegramID(r.Context(), telegramID)
	if err != nil {
		s.logger.Error().Err(err).Int64("telegram_id", telegramID).Msg("failed to load account for oauth callback")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if account == nil {
		http.Error(w, "Unknown user. Send /start to the bot first.", http.StatusNotFound)
		return
	}

	if err := s.auth.Exchange(r.Context(), account, q.Get("code")); err != nil {
		s.logger.Warn().Err(err).Int64("account_id", account.ID).Msg("oauth code exchange failed")
		http.Error(w, "Google authorization failed. Please try /auth again.", http.StatusBadGateway)
		return
	}

	s.logger.Info().Int64("account_id", account.ID).Msg("google account connected")

	// Private chats share the user's id
	msg := tgbotapi.NewMessage(telegramID, "Google authorization complete! Do you want to sync your contacts now?")
	msg.ReplyMarkup = syncKeyboard()
	if _, err := s.api.Send(msg); err != nil {
		s.logger.Warn().Err(err).Int64("telegram_id", telegramID).Msg("failed to confirm authorization in telegram")
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Authorization complete. You can return to Telegram."))
}
