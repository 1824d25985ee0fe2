// ABOUTME: Tests for the Google OAuth flow helpers
// ABOUTME: Covers consent URL parameters, signed state, code exchange, and token persistence
package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/networkgpt/networkgpt/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type savedToken struct {
	accountID int64
	access    string
	refresh   string
	tokenType string
	expiry    *time.Time
}

type fakeTokenStore struct {
	saved []savedToken
}

func (f *fakeTokenStore) SaveGoogleToken(_ context.Context, accountID int64, access, refresh, tokenType string, expiry *time.Time) error {
	f.saved = append(f.saved, savedToken{accountID, access, refresh, tokenType, expiry})
	return nil
}

func TestOAuthConfigCreation(t *testing.T) {
	config := NewOAuthConfig("id", "secret", "http://localhost:8080/oauth/callback", nil)

	assert.Equal(t, []string{ContactsReadonlyScope}, config.Scopes)
	assert.Equal(t, "id", config.ClientID)
	assert.Contains(t, config.Endpoint.AuthURL, "accounts.google.com")
}

func TestAuthURL(t *testing.T) {
	signer := NewStateSigner("s3cret", time.Minute)
	o := NewOAuth(NewOAuthConfig("id", "secret", "http://localhost/cb", nil), signer, &fakeTokenStore{})

	raw, err := o.AuthURL(1001)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "id", q.Get("client_id"))

	telegramID, err := o.VerifyState(q.Get("state"))
	require.NoError(t, err)
	assert.Equal(t, int64(1001), telegramID)
}

func TestStateSigner(t *testing.T) {
	signer := NewStateSigner("s3cret", time.Minute)

	state, err := signer.Sign(42)
	require.NoError(t, err)

	id, err := signer.Verify(state)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = NewStateSigner("other", time.Minute).Verify(state)
	assert.ErrorIs(t, err, ErrInvalidState, "wrong secret")

	_, err = signer.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidState)

	expired := NewStateSigner("s3cret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.Sign(42)
	require.NoError(t, err)
	_, err = signer.Verify(old)
	assert.ErrorIs(t, err, ErrInvalidState, "expired state")
}

func newTokenServer(t *testing.T, refresh string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": refresh,
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOAuth(srv *httptest.Server, store TokenStore) *OAuth {
	config := NewOAuthConfig("id", "secret", "http://localhost/cb", nil)
	config.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	return NewOAuth(config, NewStateSigner("s3cret", time.Minute), store)
}

func TestExchangeSavesToken(t *testing.T) {
	srv := newTokenServer(t, "new-refresh")
	store := &fakeTokenStore{}
	o := testOAuth(srv, store)

	account := &models.Account{ID: 5}
	require.NoError(t, o.Exchange(context.Background(), account, "code-123"))

	require.Len(t, store.saved, 1)
	assert.Equal(t, int64(5), store.saved[0].accountID)
	assert.Equal(t, "new-access", store.saved[0].access)
	assert.Equal(t, "new-refresh", store.saved[0].refresh)
	require.NotNil(t, store.saved[0].expiry)
	assert.True(t, account.Authorized())
}

func TestExchangeEmptyCode(t *testing.T) {
	o := NewOAuth(NewOAuthConfig("id", "secret", "", nil), NewStateSigner("s", 0), &fakeTokenStore{})

	err := o.Exchange(context.Background(), &models.Account{ID: 1}, "")
	assert.ErrorIs(t, err, ErrMissingCode)
}

func TestTokenSourcePersistsRefresh(t *testing.T) {
	srv := newTokenServer(t, "")
	store := &fakeTokenStore{}
	o := testOAuth(srv, store)

	expired := time.Now().Add(-time.Hour)
	account := &models.Account{
		ID:                 9,
		GoogleAccessToken:  "old-access",
		GoogleRefreshToken: "old-refresh",
		GoogleTokenType:    "Bearer",
		GoogleTokenExpiry:  &expired,
	}

	token, err := o.TokenSource(context.Background(), account).Token()
	require.NoError(t, err)
	assert.Equal(t, "new-access", token.AccessToken)

	require.Len(t, store.saved, 1)
	assert.Equal(t, "new-access", store.saved[0].access)
	assert.Equal(t, "old-refresh", account.GoogleRefreshToken)
}

func TestTokenSourceValidTokenNotSaved(t *testing.T) {
	store := &fakeTokenStore{}
	o := NewOAuth(NewOAuthConfig("id", "secret", "", nil), NewStateSigner("s", 0), store)

	valid := time.Now().Add(time.Hour)
	account := &models.Account{ID: 9, GoogleAccessToken: "access", GoogleTokenExpiry: &valid}

	token, err := o.TokenSource(context.Background(), account).Token()
	require.NoError(t, err)
	assert.Equal(t, "access", token.AccessToken)
	assert.Empty(t, store.saved)
}
