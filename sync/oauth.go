// ABOUTME: OAuth configuration and token management for Google APIs
// ABOUTME: Builds per-user consent URLs with signed state, exchanges codes, and persists refreshed tokens
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/networkgpt/networkgpt/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ContactsReadonlyScope is the only scope the sync needs.
const ContactsReadonlyScope = "https://www.googleapis.com/auth/contacts.readonly"

var (
	ErrInvalidState = errors.New("invalid oauth state")
	ErrMissingCode  = errors.New("authorization code is empty")
)

// TokenStore persists Google tokens for an account.
type TokenStore interface {
	SaveGoogleToken(ctx context.Context, accountID int64, accessToken, refreshToken, tokenType string, expiry *time.Time) error
}

// NewOAuthConfig creates OAuth2 config for Google APIs.
func NewOAuthConfig(clientID, clientSecret, redirectURL string, scopes []string) *oauth2.Config {
	if len(scopes) == 0 {
		scopes = []string{ContactsReadonlyScope}
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		Endpoint:     google.Endpoint,
	}
}

// OAuth drives the Google consent flow for bot users.
type OAuth struct {
	config *oauth2.Config
	state  *StateSigner
	tokens TokenStore
}

func NewOAuth(config *oauth2.Config, state *StateSigner, tokens TokenStore) *OAuth {
	return &OAuth{
		config: config,
		state:  state,
		tokens: tokens,
	}
}

// AuthURL returns the consent URL for a Telegram user. Offline access with a
// forced consent prompt makes Google return a refresh token every time.
func (o *OAuth) AuthURL(telegramID int64) (string, error) {
	state, err := o.state.Sign(telegramID)
	if err != nil {
		return "", err
	}
	return o.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// VerifyState returns the Telegram user id bound to a callback's state.
func (o *OAuth) VerifyState(state string) (int64, error) {
	return o.state.Verify(state)
}

// Exchange trades an authorization code for tokens and stores them on the account.
func (o *OAuth) Exchange(ctx context.Context, account *models.Account, code string) error {
	if code == "" {
		return ErrMissingCode
	}

	token, err := o.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := o.save(ctx, account, token); err != nil {
		return err
	}
	return nil
}

func (o *OAuth) save(ctx context.Context, account *models.Account, token *oauth2.Token) error {
	var expiry *time.Time
	if !token.Expiry.IsZero() {
		e := token.Expiry.UTC()
		expiry = &e
	}

	if err := o.tokens.SaveGoogleToken(ctx, account.ID, token.AccessToken, token.RefreshToken, token.TokenType, expiry); err != nil {
		return fmt.Errorf("failed to save google token: %w", err)
	}

	account.GoogleAccessToken = token.AccessToken
	if token.RefreshToken != "" {
		account.GoogleRefreshToken = token.RefreshToken
	}
	account.GoogleTokenType = token.TokenType
	account.GoogleTokenExpiry = expiry
	return nil
}

// TokenSource returns a source that refreshes the account's token as needed
// and writes every new token back to the store.
func (o *OAuth) TokenSource(ctx context.Context, account *models.Account) oauth2.TokenSource {
	current := AccountToken(account)
	return &persistingTokenSource{
		ctx:     context.WithoutCancel(ctx),
		oauth:   o,
		account: account,
		base:    oauth2.ReuseTokenSource(current, o.config.TokenSource(ctx, current)),
		last:    current.AccessToken,
	}
}

// AccountToken rebuilds an oauth2 token from the stored account fields.
func AccountToken(account *models.Account) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  account.GoogleAccessToken,
		RefreshToken: account.GoogleRefreshToken,
		TokenType:    account.GoogleTokenType,
	}
	if account.GoogleTokenExpiry != nil {
		token.Expiry = *account.GoogleTokenExpiry
	}
	return token
}

type persistingTokenSource struct {
	ctx     context.Context
	oauth   *OAuth
	account *models.Account
	base    oauth2.TokenSource

	mu   gosync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token.AccessToken != s.last {
		if err := s.oauth.save(s.ctx, s.account, token); err != nil {
			return nil, err
		}
		s.last = token.AccessToken
	}
	return token, nil
}

type stateClaims struct {
	TelegramID int64 `json:"tid"`
	jwt.RegisteredClaims
}

// StateSigner issues and verifies the OAuth state parameter as a short-lived
// HS256 JWT carrying the Telegram user id.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &StateSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *StateSigner) Sign(telegramID int64) (string, error) {
	now := s.now()
	claims := stateClaims{
		TelegramID: telegramID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign oauth state: %w", err)
	}
	return signed, nil
}

func (s *StateSigner) Verify(state string) (int64, error) {
	claims := &stateClaims{}
	token, err := jwt.ParseWithClaims(state, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if !token.Valid || claims.TelegramID == 0 {
		return 0, ErrInvalidState
	}
	return claims.TelegramID, nil
}
