// ABOUTME: Account database operations
// ABOUTME: Registers Telegram users and stores their Google OAuth tokens
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/networkgpt/networkgpt/models"
)

const accountColumns = `id, telegram_id, username, first_name, last_name,
	google_access_token, google_refresh_token, google_token_type, google_token_expiry,
	created_at, updated_at`

// UpsertAccount registers a Telegram user or refreshes their profile fields.
// It returns true when the account did not exist before.
func (s *Store) UpsertAccount(ctx context.Context, account *models.Account) (bool, error) {
	existing, err := s.GetAccountByTelegramID(ctx, account.TelegramID)
	if err != nil {
		return false, err
	}

	now := s.stamp()
	account.UpdatedAt = now

	var id int64
	err = s.db.QueryRowxContext(ctx, s.rebind(`
		INSERT INTO accounts (telegram_id, username, first_name, last_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			updated_at = excluded.updated_at
		RETURNING id
	`), account.TelegramID, account.Username, account.FirstName, account.LastName, now, now).Scan(&id)
	if err != nil {
		return false, fmt.Errorf("failed to upsert account: %w", err)
	}

	account.ID = id
	if existing != nil {
		account.CreatedAt = existing.CreatedAt
		account.GoogleAccessToken = existing.GoogleAccessToken
		account.GoogleRefreshToken = existing.GoogleRefreshToken
		account.GoogleTokenType = existing.GoogleTokenType
		account.GoogleTokenExpiry = existing.GoogleTokenExpiry
		return false, nil
	}

	account.CreatedAt = now
	return true, nil
}

// GetAccountByTelegramID returns nil when the user never started the bot.
func (s *Store) GetAccountByTelegramID(ctx context.Context, telegramID int64) (*models.Account, error) {
	var account models.Account
	err := s.db.GetContext(ctx, &account, s.rebind(`
		SELECT `+accountColumns+`
		FROM accounts WHERE telegram_id = ?
	`), telegramID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// SaveGoogleToken stores OAuth tokens for an account. An empty refresh token
// keeps the stored one, since Google only returns it on the first consent.
func (s *Store) SaveGoogleToken(ctx context.Context, accountID int64, accessToken, refreshToken, tokenType string, expiry *time.Time) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE accounts
		SET google_access_token = ?,
			google_refresh_token = CASE WHEN ? <> '' THEN ? ELSE google_refresh_token END,
			google_token_type = ?,
			google_token_expiry = ?,
			updated_at = ?
		WHERE id = ?
	`), accessToken, refreshToken, refreshToken, tokenType, expiry, s.stamp(), accountID)
	if err != nil {
		return fmt.Errorf("failed to save google token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// ListAuthorizedAccounts returns every account that completed Google OAuth.
func (s *Store) ListAuthorizedAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.SelectContext(ctx, &accounts, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE google_access_token <> '' OR google_refresh_token <> ''
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list authorized accounts: %w", err)
	}
	return accounts, nil
}

// IsAuthorized reports whether the Telegram user has connected a Google account.
func (s *Store) IsAuthorized(ctx context.Context, telegramID int64) (bool, error) {
	account, err := s.GetAccountByTelegramID(ctx, telegramID)
	if err != nil {
		return false, err
	}
	return account.Authorized(), nil
}
