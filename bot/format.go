// ABOUTME: Plain-text rendering of sync results, contacts, and run status for Telegram
// ABOUTME: Keeps message wording in one place so handlers and the CLI print the same thing
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/networkgpt/networkgpt/models"
)

const helpText = `NetworkGPT keeps your Google contacts in sync and lets you enrich them.

Commands:
/start - register and show the main menu
/help - show this help
/auth - connect your Google account
/auth_code <code> - finish authorization with a code
/sync - sync contacts from Google
/contact <name> - find a contact
/add_note <name> <text> - add a note to a contact
/add_social <name> <platform> <url> - add a social link
/status - show the last sync

Examples:
/contact Ann
/add_note Ann Met at the AI conference
/add_social Ann instagram https://instagram.com/ann`

// FormatStats renders the outcome of a successful sync.
func FormatStats(stats models.SyncStats) string {
	return fmt.Sprintf("Sync complete!\n\nTotal: %d\nAdded: %d\nUpdated: %d\nSkipped: %d\nFailed: %d",
		stats.Total, stats.Added, stats.Updated, stats.Skipped, stats.Failed)
}

// FormatContact renders one contact card with its social links.
func FormatContact(c *models.Contact, links []models.SocialLink) string {
	var sb strings.Builder
	sb.WriteString(c.Name)

	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "\n%s: %s", label, value)
		}
	}
	line("Email", c.Email)
	line("Phone", c.Phone)
	line("Company", c.Company)
	line("Position", c.Position)
	line("Notes", c.Notes)

	if len(links) > 0 {
		sb.WriteString("\nLinks:")
		for _, l := range links {
			fmt.Fprintf(&sb, "\n- %s: %s", l.Platform, l.URL)
		}
	}

	return sb.String()
}

// FormatRun renders a single sync run on one line.
func FormatRun(run *models.SyncRun) string {
	started := run.StartedAt.Local().Format("2006-01-02 15:04")
	switch {
	case run.Open():
		return fmt.Sprintf("%s running", started)
	case run.Success:
		return fmt.Sprintf("%s ok in %s: %d total, %d added, %d updated, %d skipped, %d failed",
			started, run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
			run.Total, run.Added, run.Updated, run.Skipped, run.Failed)
	default:
		msg := "unknown error"
		if run.ErrorMessage != nil {
			msg = *run.ErrorMessage
		}
		return fmt.Sprintf("%s failed: %s", started, msg)
	}
}

// FormatStatus renders the account's authorization state and last run.
func FormatStatus(account *models.Account, run *models.SyncRun) string {
	var sb strings.Builder
	if account.Authorized() {
		sb.WriteString("Google account: connected")
	} else {
		sb.WriteString("Google account: not connected (use /auth)")
	}

	if run == nil {
		sb.WriteString("\nLast sync: never")
	} else {
		sb.WriteString("\nLast sync: " + FormatRun(run))
	}
	return sb.String()
}
