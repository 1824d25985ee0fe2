// ABOUTME: Contact database operations
// ABOUTME: Handles per-account contact creation, lookups by external id, partial updates, and search
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/networkgpt/networkgpt/models"
)

const contactColumns = `id, account_id, external_id, name, email, phone, company, position, notes, created_at, updated_at`

// Create inserts a new contact for the account.
func (s *Store) Create(ctx context.Context, accountID int64, attrs models.ContactAttrs) (*models.Contact, error) {
	now := s.stamp()
	contact := &models.Contact{
		ID:        uuid.New(),
		AccountID: accountID,
		Name:      attrs.Name,
		Email:     attrs.Email,
		Phone:     attrs.Phone,
		Company:   attrs.Company,
		Position:  attrs.Position,
		Notes:     attrs.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if attrs.ExternalID != "" {
		externalID := attrs.ExternalID
		contact.ExternalID = &externalID
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO contacts (id, account_id, external_id, name, email, phone, company, position, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), contact.ID, contact.AccountID, contact.ExternalID, contact.Name, contact.Email, contact.Phone,
		contact.Company, contact.Position, contact.Notes, contact.CreatedAt, contact.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	return contact, nil
}

// GetContact returns nil when no contact has the id.
func (s *Store) GetContact(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	var contact models.Contact
	err := s.db.GetContext(ctx, &contact, s.rebind(`
		SELECT `+contactColumns+`
		FROM contacts WHERE id = ?
	`), id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return &contact, nil
}

// FindByExternalID returns nil when the account has no contact with that external id.
func (s *Store) FindByExternalID(ctx context.Context, accountID int64, externalID string) (*models.Contact, error) {
	var contact models.Contact
	err := s.db.GetContext(ctx, &contact, s.rebind(`
		SELECT `+contactColumns+`
		FROM contacts
		WHERE account_id = ? AND external_id = ?
		ORDER BY created_at
		LIMIT 1
	`), accountID, externalID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find contact by external id: %w", err)
	}

	return &contact, nil
}

// ListForAccount returns every contact owned by the account, oldest first.
func (s *Store) ListForAccount(ctx context.Context, accountID int64) ([]models.Contact, error) {
	var contacts []models.Contact
	err := s.db.SelectContext(ctx, &contacts, s.rebind(`
		SELECT `+contactColumns+`
		FROM contacts
		WHERE account_id = ?
		ORDER BY created_at, id
	`), accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return contacts, nil
}

// Update writes only the changed fields of a contact in one statement.
func (s *Store) Update(ctx context.Context, contactID uuid.UUID, changes models.ContactChanges) error {
	if changes.IsEmpty() {
		return nil
	}

	var sets []string
	var args []interface{}
	add := func(column string, value *string) {
		if value != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *value)
		}
	}
	add("name", changes.Name)
	add("email", changes.Email)
	add("phone", changes.Phone)
	add("company", changes.Company)
	add("position", changes.Position)
	add("notes", changes.Notes)

	sets = append(sets, "updated_at = ?")
	args = append(args, s.stamp(), contactID)

	query := "UPDATE contacts SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	result, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrContactNotFound
	}

	return nil
}

// SearchContacts finds contacts of the account whose name, email, or company contains query.
func (s *Store) SearchContacts(ctx context.Context, accountID int64, query string, limit int) ([]models.Contact, error) {
	if limit <= 0 {
		limit = 10
	}

	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	var contacts []models.Contact
	err := s.db.SelectContext(ctx, &contacts, s.rebind(`
		SELECT `+contactColumns+`
		FROM contacts
		WHERE account_id = ?
			AND (LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?)
		ORDER BY name
		LIMIT ?
	`), accountID, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search contacts: %w", err)
	}

	return contacts, nil
}

// FindContactByName returns the best name match for the account, preferring an exact
// case-insensitive match over a substring match. It returns nil when nothing matches.
func (s *Store) FindContactByName(ctx context.Context, accountID int64, name string) (*models.Contact, error) {
	contacts, err := s.SearchContacts(ctx, accountID, name, 20)
	if err != nil {
		return nil, err
	}

	for i := range contacts {
		if strings.EqualFold(contacts[i].Name, strings.TrimSpace(name)) {
			return &contacts[i], nil
		}
	}
	for i := range contacts {
		if strings.Contains(strings.ToLower(contacts[i].Name), strings.ToLower(strings.TrimSpace(name))) {
			return &contacts[i], nil
		}
	}

	return nil, nil
}

// AppendNote adds a line to the contact's notes.
func (s *Store) AppendNote(ctx context.Context, contactID uuid.UUID, note string) error {
	contact, err := s.GetContact(ctx, contactID)
	if err != nil {
		return err
	}
	if contact == nil {
		return ErrContactNotFound
	}

	notes := strings.TrimSpace(note)
	if contact.Notes != "" {
		notes = contact.Notes + "\n" + notes
	}

	return s.Update(ctx, contactID, models.ContactChanges{Notes: &notes})
}
