// ABOUTME: Tests for contact sync data models
// ABOUTME: Validates change sets, stats consistency, and account authorization checks
package models

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestContactChangesEmpty(t *testing.T) {
	var changes ContactChanges
	if !changes.IsEmpty() {
		t.Error("zero ContactChanges should be empty")
	}
	if len(changes.Fields()) != 0 {
		t.Errorf("expected no fields, got %v", changes.Fields())
	}

	changes.Notes = strPtr("")
	if changes.IsEmpty() {
		t.Error("ContactChanges with a set field should not be empty")
	}
}

func TestContactChangesApply(t *testing.T) {
	contact := &Contact{
		Name:  "Ann",
		Email: "ann@x.com",
		Notes: "existing",
	}

	changes := ContactChanges{
		Phone:    strPtr("+1-555-0100"),
		Position: strPtr("CTO"),
	}
	changes.Apply(contact)

	if contact.Phone != "+1-555-0100" {
		t.Errorf("expected phone to be applied, got %q", contact.Phone)
	}
	if contact.Position != "CTO" {
		t.Errorf("expected position to be applied, got %q", contact.Position)
	}
	if contact.Notes != "existing" {
		t.Errorf("unchanged field was modified: %q", contact.Notes)
	}
	if contact.Name != "Ann" || contact.Email != "ann@x.com" {
		t.Error("unchanged fields were modified")
	}

	fields := changes.Fields()
	if len(fields) != 2 || fields[0] != "phone" || fields[1] != "position" {
		t.Errorf("unexpected field order: %v", fields)
	}
}

func TestSyncStatsConsistent(t *testing.T) {
	tests := []struct {
		name  string
		stats SyncStats
		want  bool
	}{
		{"empty", SyncStats{}, true},
		{"balanced", SyncStats{Total: 5, Added: 2, Updated: 1, Skipped: 1, Failed: 1}, true},
		{"missing record", SyncStats{Total: 3, Added: 2}, false},
		{"over counted", SyncStats{Total: 1, Added: 1, Skipped: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.Consistent(); got != tt.want {
				t.Errorf("Consistent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccountAuthorized(t *testing.T) {
	var nilAccount *Account
	if nilAccount.Authorized() {
		t.Error("nil account should not be authorized")
	}

	account := &Account{TelegramID: 42}
	if account.Authorized() {
		t.Error("account without tokens should not be authorized")
	}

	account.GoogleRefreshToken = "refresh"
	if !account.Authorized() {
		t.Error("account with refresh token should be authorized")
	}
}

func TestSyncRunOpen(t *testing.T) {
	run := &SyncRun{ID: "01H", StartedAt: time.Now()}
	if !run.Open() {
		t.Error("new run should be open")
	}

	now := time.Now()
	run.FinishedAt = &now
	if run.Open() {
		t.Error("finished run should not be open")
	}
}

func TestNormalizedContactAttrs(t *testing.T) {
	n := NormalizedContact{
		ExternalID: "p123",
		Name:       "Ann",
		Email:      "ann@x.com",
		Company:    "Acme",
		SocialLinks: []SocialLinkInput{
			{Platform: "linkedin", URL: "https://li/ann"},
		},
	}

	attrs := n.Attrs()
	if attrs.ExternalID != "p123" || attrs.Name != "Ann" || attrs.Email != "ann@x.com" || attrs.Company != "Acme" {
		t.Errorf("unexpected attrs: %+v", attrs)
	}
}
