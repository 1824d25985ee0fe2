// ABOUTME: Data models for the contact sync bot
// ABOUTME: Defines Account, Contact, SocialLink, SyncRun, and the normalized remote contact shape
package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultPlatform labels a social link whose source entry has no type.
const DefaultPlatform = "website"

// Account is a Telegram user of the bot together with their Google OAuth tokens.
type Account struct {
	ID                 int64      `db:"id" json:"id"`
	TelegramID         int64      `db:"telegram_id" json:"telegram_id"`
	Username           string     `db:"username" json:"username,omitempty"`
	FirstName          string     `db:"first_name" json:"first_name,omitempty"`
	LastName           string     `db:"last_name" json:"last_name,omitempty"`
	GoogleAccessToken  string     `db:"google_access_token" json:"-"`
	GoogleRefreshToken string     `db:"google_refresh_token" json:"-"`
	GoogleTokenType    string     `db:"google_token_type" json:"-"`
	GoogleTokenExpiry  *time.Time `db:"google_token_expiry" json:"-"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Authorized reports whether the account has completed the Google OAuth flow.
func (a *Account) Authorized() bool {
	return a != nil && (a.GoogleAccessToken != "" || a.GoogleRefreshToken != "")
}

// Contact is a locally persisted contact owned by one account.
type Contact struct {
	ID         uuid.UUID `db:"id" json:"id"`
	AccountID  int64     `db:"account_id" json:"account_id"`
	ExternalID *string   `db:"external_id" json:"external_id,omitempty"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email,omitempty"`
	Phone      string    `db:"phone" json:"phone,omitempty"`
	Company    string    `db:"company" json:"company,omitempty"`
	Position   string    `db:"position" json:"position,omitempty"`
	Notes      string    `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ContactAttrs is the attribute set written when a contact is created.
type ContactAttrs struct {
	ExternalID string
	Name       string
	Email      string
	Phone      string
	Company    string
	Position   string
	Notes      string
}

// SocialLink is a child of Contact. URL is the identity within a contact.
type SocialLink struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ContactID uuid.UUID `db:"contact_id" json:"contact_id"`
	Platform  string    `db:"platform" json:"platform"`
	URL       string    `db:"url" json:"url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SocialLinkInput is a social link as it arrives from the remote source.
type SocialLinkInput struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// NormalizedContact is the extractor's view of one remote contact.
type NormalizedContact struct {
	ExternalID  string            `json:"external_id"`
	Name        string            `json:"name"`
	Email       string            `json:"email,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Company     string            `json:"company,omitempty"`
	Position    string            `json:"position,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	SocialLinks []SocialLinkInput `json:"social_links,omitempty"`
}

// Attrs returns the attribute set used to create a contact from n.
func (n NormalizedContact) Attrs() ContactAttrs {
	return ContactAttrs{
		ExternalID: n.ExternalID,
		Name:       n.Name,
		Email:      n.Email,
		Phone:      n.Phone,
		Company:    n.Company,
		Position:   n.Position,
		Notes:      n.Notes,
	}
}

// ContactChanges holds the scalar fields to overwrite. A nil field is unchanged.
type ContactChanges struct {
	Name     *string
	Email    *string
	Phone    *string
	Company  *string
	Position *string
	Notes    *string
}

// IsEmpty reports whether no field is set.
func (c ContactChanges) IsEmpty() bool {
	return c.Name == nil && c.Email == nil && c.Phone == nil &&
		c.Company == nil && c.Position == nil && c.Notes == nil
}

// Fields returns the names of the changed fields in a stable order.
func (c ContactChanges) Fields() []string {
	var fields []string
	if c.Name != nil {
		fields = append(fields, "name")
	}
	if c.Email != nil {
		fields = append(fields, "email")
	}
	if c.Phone != nil {
		fields = append(fields, "phone")
	}
	if c.Company != nil {
		fields = append(fields, "company")
	}
	if c.Position != nil {
		fields = append(fields, "position")
	}
	if c.Notes != nil {
		fields = append(fields, "notes")
	}
	return fields
}

// Apply copies the changed fields onto contact.
func (c ContactChanges) Apply(contact *Contact) {
	if c.Name != nil {
		contact.Name = *c.Name
	}
	if c.Email != nil {
		contact.Email = *c.Email
	}
	if c.Phone != nil {
		contact.Phone = *c.Phone
	}
	if c.Company != nil {
		contact.Company = *c.Company
	}
	if c.Position != nil {
		contact.Position = *c.Position
	}
	if c.Notes != nil {
		contact.Notes = *c.Notes
	}
}

// SyncStats counts the outcome of one reconciliation run.
type SyncStats struct {
	Total   int `db:"total_contacts" json:"total"`
	Added   int `db:"added_contacts" json:"added"`
	Updated int `db:"updated_contacts" json:"updated"`
	Skipped int `db:"skipped_contacts" json:"skipped"`
	Failed  int `db:"failed_contacts" json:"failed"`
}

// Consistent reports whether every record was classified exactly once.
func (s SyncStats) Consistent() bool {
	return s.Added+s.Updated+s.Skipped+s.Failed == s.Total
}

// SyncRun records one invocation of the sync pipeline for one account.
type SyncRun struct {
	ID           string     `db:"id" json:"id"`
	AccountID    int64      `db:"account_id" json:"account_id"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	FinishedAt   *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	Success      bool       `db:"success" json:"success"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	SyncStats
}

// Open reports whether the run has not been finalized yet.
func (r *SyncRun) Open() bool {
	return r.FinishedAt == nil
}
